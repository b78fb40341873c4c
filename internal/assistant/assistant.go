// Package assistant defines the interface to the intent-classification
// service.
//
// An assistant receives a workspace id, the conversation context, and the
// user input, and returns the recognized intents and entities together with
// an updated context. The relay treats the reply as opaque JSON apart from
// confidence annotation.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nadzzz/scenerelay/internal/message"
)

// Assistant is the interface to an intent-classification backend.
type Assistant interface {
	// Name returns the backend identifier (e.g., "watson").
	Name() string

	// Message sends one conversation turn and returns the raw JSON reply.
	Message(ctx context.Context, payload message.Payload) ([]byte, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Error is an upstream failure. Code is the HTTP status to relay to the
// caller and Body the upstream error body, if any.
type Error struct {
	Code int
	Body []byte
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assistant error (status %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("assistant error (status %d): %.200s", e.Code, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// JSON renders the error for the caller. A JSON upstream body is passed
// through unchanged.
func (e *Error) JSON() []byte {
	if len(e.Body) > 0 && json.Valid(e.Body) {
		return e.Body
	}
	msg := http.StatusText(e.Code)
	switch {
	case e.Err != nil:
		msg = e.Err.Error()
	case len(e.Body) > 0:
		msg = string(e.Body)
	}
	b, _ := json.Marshal(struct {
		Code  int    `json:"code"`
		Error string `json:"error"`
	}{Code: e.Code, Error: msg})
	return b
}

// AsError converts any error into an *Error, defaulting to status 500.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Code == 0 {
			ae.Code = http.StatusInternalServerError
		}
		return ae
	}
	return &Error{Code: http.StatusInternalServerError, Err: err}
}
