// Package assistanttest provides an in-memory assistant.API for tests.
package assistanttest

import (
	"context"
	"fmt"
	"sync"

	"wassistant/internal/assistant"
)

// FakeAPI is an in-memory remote assistant. Runs walk through Statuses (the
// last status repeats) and, on reaching completed, append Reply as an
// assistant message.
type FakeAPI struct {
	mu sync.Mutex

	Statuses  []assistant.RunStatus
	Reply     string
	RunError  string
	Errors    map[string]error
	OnCreate  func()
	NoMessage bool

	threads  map[string][]assistant.Message
	runs     map[string]int
	replied  map[string]bool
	nextID   int
	calls    []string
	created  []string
	runCount int

	files        []UploadedFile
	vectorStores []VectorStore
	assistants   []CreatedAssistant
}

func NewFakeAPI(reply string) *FakeAPI {
	return &FakeAPI{
		Statuses: []assistant.RunStatus{assistant.RunStatusQueued, assistant.RunStatusInProgress, assistant.RunStatusCompleted},
		Reply:    reply,
		Errors:   map[string]error{},
		threads:  map[string][]assistant.Message{},
		runs:     map[string]int{},
		replied:  map[string]bool{},
	}
}

// Calls returns the names of the methods invoked so far, in order.
func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CreatedThreads returns the ids of all threads created so far.
func (f *FakeAPI) CreatedThreads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.created...)
}

// Messages returns a thread's messages oldest first.
func (f *FakeAPI) Messages(threadID string) []assistant.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]assistant.Message(nil), f.threads[threadID]...)
}

// Count returns how many times method was called.
func (f *FakeAPI) Count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *FakeAPI) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	return f.Errors[method]
}

func (f *FakeAPI) CreateThread(ctx context.Context) (assistant.Thread, error) {
	if err := f.record("CreateThread"); err != nil {
		return assistant.Thread{}, err
	}
	if f.OnCreate != nil {
		f.OnCreate()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("thread_%d", f.nextID)
	f.threads[id] = nil
	f.created = append(f.created, id)
	return assistant.Thread{ID: id}, nil
}

func (f *FakeAPI) GetThread(ctx context.Context, threadID string) (assistant.Thread, error) {
	if err := f.record("GetThread"); err != nil {
		return assistant.Thread{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[threadID]; !ok {
		return assistant.Thread{}, fmt.Errorf("no such thread: %s", threadID)
	}
	return assistant.Thread{ID: threadID}, nil
}

func (f *FakeAPI) AppendMessage(ctx context.Context, threadID, role, content string) error {
	if err := f.record("AppendMessage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendLocked(threadID, role, content)
	return nil
}

func (f *FakeAPI) appendLocked(threadID, role, content string) {
	msgs := f.threads[threadID]
	f.nextID++
	f.threads[threadID] = append(msgs, assistant.Message{
		ID:        fmt.Sprintf("msg_%d", f.nextID),
		Role:      role,
		CreatedAt: int64(len(msgs) + 1),
		Content:   []assistant.Segment{{Type: "text", Text: content}},
	})
}

func (f *FakeAPI) CreateRun(ctx context.Context, threadID, assistantID string) (assistant.Run, error) {
	if err := f.record("CreateRun"); err != nil {
		return assistant.Run{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCount++
	id := fmt.Sprintf("run_%d", f.runCount)
	f.runs[id] = 0
	return f.snapshotLocked(threadID, id), nil
}

func (f *FakeAPI) GetRun(ctx context.Context, threadID, runID string) (assistant.Run, error) {
	if err := f.record("GetRun"); err != nil {
		return assistant.Run{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[runID]++
	return f.snapshotLocked(threadID, runID), nil
}

func (f *FakeAPI) snapshotLocked(threadID, runID string) assistant.Run {
	step := f.runs[runID]
	if step >= len(f.Statuses) {
		step = len(f.Statuses) - 1
	}
	status := f.Statuses[step]
	run := assistant.Run{ID: runID, ThreadID: threadID, Status: status}
	switch status {
	case assistant.RunStatusCompleted:
		if !f.NoMessage && !f.replied[runID] {
			f.appendLocked(threadID, assistant.RoleAssistant, f.Reply)
			f.replied[runID] = true
		}
	case assistant.RunStatusFailed:
		run.ErrorCode = f.RunError
		run.ErrorText = "the run failed"
	}
	return run
}

func (f *FakeAPI) ListMessages(ctx context.Context, threadID string) ([]assistant.Message, error) {
	if err := f.record("ListMessages"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.threads[threadID]
	out := make([]assistant.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}
