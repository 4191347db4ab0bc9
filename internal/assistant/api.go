// Package assistant talks to the hosted assistant service: it keeps one
// remote thread per user, appends user messages to it, starts runs of the
// pre-provisioned assistant and waits for them to finish.
package assistant

import (
	"context"
)

// Message roles accepted by AppendMessage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RunStatus is the lifecycle state of a remote run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether the run will not change status any more without
// outside action. requires_action counts as terminal here: nothing in this
// package submits tool outputs, so such a run would never progress.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled,
		RunStatusExpired, RunStatusIncomplete, RunStatusRequiresAction:
		return true
	}
	return false
}

// Thread is a handle to a remote conversation thread.
type Thread struct {
	ID string
}

// Run is a snapshot of a remote run.
type Run struct {
	ID        string
	ThreadID  string
	Status    RunStatus
	ErrorCode string
	ErrorText string
}

// Segment is one piece of message content. Only text segments carry Text.
type Segment struct {
	Type string
	Text string
}

// Message is a message on a remote thread.
type Message struct {
	ID        string
	Role      string
	CreatedAt int64
	Content   []Segment
}

// FirstText returns the first text segment of the message.
func (m Message) FirstText() (string, bool) {
	for _, seg := range m.Content {
		if seg.Type == "text" {
			return seg.Text, true
		}
	}
	return "", false
}

// API is the remote assistant service.
type API interface {
	CreateThread(ctx context.Context) (Thread, error)
	GetThread(ctx context.Context, threadID string) (Thread, error)
	AppendMessage(ctx context.Context, threadID, role, content string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	// ListMessages returns the thread's messages, newest first.
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
}

// Observer receives counters from the resolver and orchestrator.
type Observer interface {
	ThreadResolved(created bool)
	RunFinished(status RunStatus, pollAttempts int)
}

type nopObserver struct{}

func (nopObserver) ThreadResolved(bool)        {}
func (nopObserver) RunFinished(RunStatus, int) {}
