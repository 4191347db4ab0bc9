package middleware

import "context"

type EventName string

const (
	// EventBeforeAssistantRequest fires with the user's text before it is
	// posted to the assistant or the vision model.
	EventBeforeAssistantRequest EventName = "before_assistant_request"
	// EventBeforeUserReply fires with the generated reply before it is handed
	// back to the messaging layer.
	EventBeforeUserReply EventName = "before_user_reply"
)

type Decision struct {
	Cancel      bool   // stop the pipeline for this event
	Reason      string // for logs
	ReplaceText *string
}

type Event struct {
	Name      EventName
	UserID    string // WhatsApp id of the sender
	UserName  string
	UserText  string // for before_assistant_request
	ReplyText string // for before_user_reply
	HasImage  bool
	Context   map[string]any
}

type Middleware interface {
	ID() string
	Priority() int
	OnEvent(ctx context.Context, e *Event) (Decision, error)
}

// ConditionalMiddleware is an optional extension that lets a middleware opt
// out of a single event. Skipped middlewares are still recorded in the
// dispatch results.
type ConditionalMiddleware interface {
	ShouldLoad(ctx context.Context, e *Event) bool
}
