package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type testMW struct {
	id       string
	priority int
	cancel   bool
	replace  string
	seen     *[]string
}

func (m testMW) ID() string    { return m.id }
func (m testMW) Priority() int { return m.priority }
func (m testMW) OnEvent(_ context.Context, _ *Event) (Decision, error) {
	*m.seen = append(*m.seen, m.id)
	dec := Decision{Cancel: m.cancel}
	if m.replace != "" {
		r := m.replace
		dec.ReplaceText = &r
	}
	return dec, nil
}

type conditionalTestMW struct {
	testMW
	enabled bool
}

func (m conditionalTestMW) ShouldLoad(_ context.Context, _ *Event) bool { return m.enabled }

type failingMW struct{}

func (failingMW) ID() string    { return "failing" }
func (failingMW) Priority() int { return 1 }
func (failingMW) OnEvent(_ context.Context, _ *Event) (Decision, error) {
	return Decision{}, errors.New("boom")
}

func TestChainPriorityAndCancel(t *testing.T) {
	seen := []string{}
	c := NewChain(
		testMW{id: "low", priority: 1, seen: &seen},
		testMW{id: "high", priority: 10, cancel: true, seen: &seen},
		testMW{id: "mid", priority: 5, seen: &seen},
	)

	_, err := c.Dispatch(context.Background(), &Event{Name: EventBeforeAssistantRequest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 1 || seen[0] != "high" {
		t.Fatalf("expected only high to run (cancel), got %v", seen)
	}
}

func TestChainConditionalMiddlewareSkip(t *testing.T) {
	seen := []string{}
	c := NewChain(
		conditionalTestMW{testMW: testMW{id: "off", priority: 10, seen: &seen}, enabled: false},
		conditionalTestMW{testMW: testMW{id: "on", priority: 5, seen: &seen}, enabled: true},
	)

	results, err := c.Dispatch(context.Background(), &Event{Name: EventBeforeUserReply})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(seen, ","); got != "on" {
		t.Fatalf("expected only enabled middleware to run, got %s", got)
	}
	if len(results) != 2 {
		t.Fatalf("expected results for both middlewares, got %d", len(results))
	}
	if results[0].MiddlewareID != "off" || !results[0].Skipped {
		t.Fatalf("expected first result to be the skipped middleware, got %+v", results[0])
	}
}

func TestChainStableOrderOnEqualPriority(t *testing.T) {
	seen := []string{}
	c := NewChain(
		testMW{id: "a", priority: 5, seen: &seen},
		testMW{id: "b", priority: 5, seen: &seen},
		testMW{id: "c", priority: 5, seen: &seen},
	)

	_, err := c.Dispatch(context.Background(), &Event{Name: EventBeforeAssistantRequest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(seen, ","); got != "a,b,c" {
		t.Fatalf("expected stable registration order, got %s", got)
	}
}

func TestChainReplacementsReachTheEvent(t *testing.T) {
	seen := []string{}
	c := NewChain(testMW{id: "fmt", priority: 5, replace: "*hi*", seen: &seen})

	e := &Event{Name: EventBeforeUserReply, ReplyText: "**hi**"}
	if _, err := c.Dispatch(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ReplyText != "*hi*" {
		t.Fatalf("expected reply to be rewritten, got %q", e.ReplyText)
	}
	if e.UserText != "" {
		t.Fatalf("user text must not change on before_user_reply, got %q", e.UserText)
	}
}

func TestChainErrorAborts(t *testing.T) {
	seen := []string{}
	c := NewChain(failingMW{}, testMW{id: "after", priority: 0, seen: &seen})

	if _, err := c.Dispatch(context.Background(), &Event{Name: EventBeforeAssistantRequest}); err == nil {
		t.Fatal("expected error")
	}
	if len(seen) != 0 {
		t.Fatalf("expected dispatch to stop at the error, got %v", seen)
	}
}

func TestChainDebugWriter(t *testing.T) {
	var buf bytes.Buffer
	seen := []string{}
	c := NewChain(testMW{id: "fmt", priority: 5, replace: "short", seen: &seen})
	c.SetDebugWriter(&buf)

	_, err := c.Dispatch(context.Background(), &Event{Name: EventBeforeUserReply, UserID: "15550001111", ReplyText: "a longer reply"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry debugEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry.MiddlewareID != "fmt" || !entry.Changed || entry.UserID != "15550001111" {
		t.Fatalf("unexpected debug entry %+v", entry)
	}
	if entry.InputChars != 14 || entry.OutputChars != 5 {
		t.Fatalf("unexpected char counts %+v", entry)
	}
}

func TestFilterDisabled(t *testing.T) {
	seen := []string{}
	mws := []Middleware{
		testMW{id: "wa_format", seen: &seen},
		testMW{id: "other", seen: &seen},
	}
	kept := filterDisabled(mws, " wa_format , nope")
	if len(kept) != 1 || kept[0].ID() != "other" {
		t.Fatalf("expected only other to remain, got %v", kept)
	}
	if got := filterDisabled(mws, ""); len(got) != 2 {
		t.Fatalf("expected nothing filtered, got %d", len(got))
	}
}
