// Package message defines the data types flowing between the chat UI, the
// relay, the intent service, and the command dispatcher.
package message

import (
	"encoding/json"
)

// Request is the body the chat UI posts to the relay.
type Request struct {
	// Context is the conversation context returned by the previous turn.
	// It is opaque to the relay and forwarded verbatim.
	Context json.RawMessage `json:"context,omitempty" swaggertype:"object"`

	// Input carries the user utterance, typically {"text": "..."}.
	Input json.RawMessage `json:"input,omitempty" swaggertype:"object"`
}

// emptyObject is substituted for a missing context or input.
var emptyObject = json.RawMessage(`{}`)

// Normalize replaces a missing or null context and input with {}.
func (r *Request) Normalize() {
	if isAbsent(r.Context) {
		r.Context = emptyObject
	}
	if isAbsent(r.Input) {
		r.Input = emptyObject
	}
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// TextInput builds an Input payload for a plain-text utterance.
func TextInput(text string) json.RawMessage {
	b, _ := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	return b
}

// Payload is what the relay sends to the intent service.
type Payload struct {
	WorkspaceID string          `json:"workspace_id"`
	Context     json.RawMessage `json:"context"`
	Input       json.RawMessage `json:"input"`
}

// Intent is a classified purpose with its confidence in [0,1].
type Intent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Entity is a recognized (category, value) extraction.
type Entity struct {
	// Entity is the category name, e.g. "object", "color", "action".
	Entity     string  `json:"entity"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
	Location   []int   `json:"location,omitempty"`
}

// Output is the assistant's reply to show in the chat.
type Output struct {
	// Text is nil when no intent was recognized.
	Text any `json:"text" swaggertype:"string"`
}

// Response is an intent-service reply as seen by the chat UI.
type Response struct {
	Intents  []Intent        `json:"intents"`
	Entities []Entity        `json:"entities"`
	Context  json.RawMessage `json:"context,omitempty" swaggertype:"object"`
	Output   *Output         `json:"output,omitempty"`
}

// TopIntent returns the highest-ranked intent, if any.
func (r *Response) TopIntent() (Intent, bool) {
	if r == nil || len(r.Intents) == 0 {
		return Intent{}, false
	}
	return r.Intents[0], true
}

// OutputText returns the output text as a string, or "" when absent.
func (r *Response) OutputText() string {
	if r == nil || r.Output == nil {
		return ""
	}
	switch t := r.Output.Text.(type) {
	case string:
		return t
	case []any:
		// The intent service may return text as a list of lines.
		var s string
		for i, line := range t {
			if i > 0 {
				s += "\n"
			}
			if str, ok := line.(string); ok {
				s += str
			}
		}
		return s
	default:
		return ""
	}
}
