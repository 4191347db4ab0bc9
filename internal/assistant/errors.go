package assistant

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrPollExhausted is returned when a run is still not terminal after the
	// poll policy's attempt budget.
	ErrPollExhausted = errors.New("run did not finish within poll budget")

	// ErrEmptyReply is returned when a completed run left no assistant text.
	ErrEmptyReply = errors.New("assistant produced no text reply")

	// ErrStore marks failures of the local thread store, as opposed to the
	// remote service.
	ErrStore = errors.New("thread store")
)

// RunError reports a run that reached a terminal status other than completed.
type RunError struct {
	RunID   string
	Status  RunStatus
	Code    string
	Message string
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsRateLimited reports whether err came from the remote service rejecting
// the request for rate limiting, either on the HTTP call or as a run error.
func IsRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var runErr *RunError
	if errors.As(err, &runErr) && runErr.Code == string(openai.RunErrorRateLimitExceeded) {
		return true
	}
	return false
}
