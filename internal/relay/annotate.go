package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nadzzz/scenerelay/internal/message"
)

// Confidence thresholds for the annotated reply.
const (
	UnderstoodThreshold = 0.75
	TentativeThreshold  = 0.5
)

// Band is the confidence band a response fell into.
type Band string

const (
	BandUnderstood    Band = "understood"
	BandTentative     Band = "tentative"
	BandNotUnderstood Band = "not_understood"
	BandNone          Band = "none"
	// BandPassThrough marks a response that already carried output.
	BandPassThrough Band = "passthrough"
)

// Annotation is the result of annotating one intent-service reply.
type Annotation struct {
	Body []byte
	Band Band
}

// Classify maps the top intent to its band and reply text. The text is nil
// when no intent was recognized.
func Classify(intents []message.Intent) (Band, *string) {
	if len(intents) == 0 {
		return BandNone, nil
	}
	top := intents[0]

	var band Band
	var text string
	switch {
	case top.Confidence >= UnderstoodThreshold:
		band, text = BandUnderstood, "I understood your intent was "+top.Intent
	case top.Confidence >= TentativeThreshold:
		band, text = BandTentative, "I think your intent was "+top.Intent
	default:
		band, text = BandNotUnderstood, "I did not understand your intent"
	}
	return band, &text
}

// Annotate injects output.text into a raw intent-service reply based on the
// top intent's confidence. A reply that already carries an output other than
// null, false, 0 or "" is
// returned unchanged, byte for byte. All other members are preserved.
func Annotate(raw []byte) (Annotation, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Annotation{}, fmt.Errorf("decoding assistant response: %w", err)
	}
	if top == nil {
		return Annotation{}, errors.New("assistant response is not a JSON object")
	}
	if out, ok := top["output"]; ok && !falsy(out) {
		return Annotation{Body: raw, Band: BandPassThrough}, nil
	}

	var intents []message.Intent
	if rawIntents, ok := top["intents"]; ok {
		// Malformed intents are treated as absent.
		_ = json.Unmarshal(rawIntents, &intents)
	}

	band, text := Classify(intents)
	output, err := json.Marshal(message.Output{Text: text})
	if err != nil {
		return Annotation{}, fmt.Errorf("encoding output: %w", err)
	}
	top["output"] = output

	body, err := json.Marshal(top)
	if err != nil {
		return Annotation{}, fmt.Errorf("encoding annotated response: %w", err)
	}
	return Annotation{Body: body, Band: band}, nil
}

// falsy reports whether raw is null, false, zero or the empty string.
func falsy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	}
	return false
}
