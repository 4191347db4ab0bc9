package chat

import (
	"context"
	"errors"

	"wassistant/internal/assistant"
)

// Kind classifies why a turn did not produce a reply.
type Kind string

const (
	KindImageMissing  Kind = "image_missing"
	KindImageEncode   Kind = "image_encode"
	KindRemote        Kind = "remote"
	KindRunFailed     Kind = "run_failed"
	KindPollExhausted Kind = "poll_exhausted"
	KindEmptyReply    Kind = "empty_reply"
	KindStore         Kind = "store"
	KindCanceled      Kind = "canceled"
)

// ErrCanceledByMiddleware is returned when a middleware cancels a turn
// without supplying replacement text.
var ErrCanceledByMiddleware = errors.New("canceled by middleware")

// ReplyError is the error returned by Service for a failed turn.
type ReplyError struct {
	Kind Kind
	Err  error
}

func (e *ReplyError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *ReplyError) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *ReplyError
	if errors.As(err, &re) {
		return re.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	var runErr *assistant.RunError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrCanceledByMiddleware):
		return KindCanceled
	case errors.Is(err, assistant.ErrStore):
		return KindStore
	case errors.As(err, &runErr):
		return KindRunFailed
	case errors.Is(err, assistant.ErrPollExhausted):
		return KindPollExhausted
	case errors.Is(err, assistant.ErrEmptyReply):
		return KindEmptyReply
	default:
		return KindRemote
	}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var re *ReplyError
	if errors.As(err, &re) {
		return err
	}
	return &ReplyError{Kind: classify(err), Err: err}
}
