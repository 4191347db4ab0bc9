package middleware

import (
	"encoding/json"
	"io"
	"time"
	"unicode/utf8"
)

type debugEntry struct {
	Timestamp    string `json:"ts"`
	Event        string `json:"event"`
	UserID       string `json:"wa_id,omitempty"`
	MiddlewareID string `json:"middleware"`
	Priority     int    `json:"priority"`
	Skipped      bool   `json:"skipped,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Cancel       bool   `json:"cancel,omitempty"`
	Changed      bool   `json:"changed,omitempty"`

	InputChars  int `json:"in_chars"`
	OutputChars int `json:"out_chars"`
}

func eventText(e *Event) string {
	if e == nil {
		return ""
	}
	switch e.Name {
	case EventBeforeAssistantRequest:
		return e.UserText
	case EventBeforeUserReply:
		return e.ReplyText
	default:
		return ""
	}
}

func applyDecisionToEvent(e *Event, dec Decision) {
	if e == nil || dec.ReplaceText == nil {
		return
	}
	switch e.Name {
	case EventBeforeAssistantRequest:
		e.UserText = *dec.ReplaceText
	case EventBeforeUserReply:
		e.ReplyText = *dec.ReplaceText
	}
}

func (c *Chain) debugLog(e *Event, mw Middleware, skipped bool, inText, outText string, dec Decision) {
	c.debugMu.Lock()
	defer c.debugMu.Unlock()
	if c.debugW == nil {
		return
	}

	entry := debugEntry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Event:        string(e.Name),
		UserID:       e.UserID,
		MiddlewareID: mw.ID(),
		Priority:     mw.Priority(),
		Skipped:      skipped,
		Reason:       dec.Reason,
		Cancel:       dec.Cancel,
		Changed:      inText != outText,
		InputChars:   utf8.RuneCountInString(inText),
		OutputChars:  utf8.RuneCountInString(outText),
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = io.WriteString(c.debugW, string(b)+"\n")
}
