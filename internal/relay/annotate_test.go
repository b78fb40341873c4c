package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outputText(t *testing.T, body []byte) any {
	t.Helper()
	var resp struct {
		Output struct {
			Text any `json:"text"`
		} `json:"output"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Output.Text
}

func TestAnnotate_ConfidenceBands(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		band       Band
		text       string
	}{
		{"certain", 0.99, BandUnderstood, "I understood your intent was changer"},
		{"at upper threshold", 0.75, BandUnderstood, "I understood your intent was changer"},
		{"just below upper", 0.7499, BandTentative, "I think your intent was changer"},
		{"at lower threshold", 0.5, BandTentative, "I think your intent was changer"},
		{"just below lower", 0.4999, BandNotUnderstood, "I did not understand your intent"},
		{"zero", 0, BandNotUnderstood, "I did not understand your intent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(map[string]any{
				"intents": []map[string]any{
					{"intent": "changer", "confidence": tt.confidence},
					{"intent": "ajouter", "confidence": 1.0},
				},
				"entities": []any{},
			})

			ann, err := Annotate(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.band, ann.Band)
			assert.Equal(t, tt.text, outputText(t, ann.Body))
		})
	}
}

func TestAnnotate_NoIntentsYieldsNullText(t *testing.T) {
	for _, raw := range []string{
		`{"intents":[],"entities":[]}`,
		`{"entities":[]}`,
		`{"intents":"garbage"}`,
	} {
		ann, err := Annotate([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, BandNone, ann.Band)
		assert.Nil(t, outputText(t, ann.Body))
		assert.Contains(t, string(ann.Body), `"output":{"text":null}`)
	}
}

func TestAnnotate_ExistingOutputIsUntouched(t *testing.T) {
	raw := []byte(`{ "output" : {"text": ["Bonjour"]},   "intents":[{"intent":"x","confidence":0.1}] }`)

	ann, err := Annotate(raw)
	require.NoError(t, err)
	assert.Equal(t, BandPassThrough, ann.Band)
	assert.Equal(t, raw, ann.Body)

	again, err := Annotate(ann.Body)
	require.NoError(t, err)
	assert.Equal(t, raw, again.Body)
}

func TestAnnotate_FalsyOutputIsAnnotated(t *testing.T) {
	for _, out := range []string{`null`, `""`, `false`, `0`, `0.0`} {
		ann, err := Annotate([]byte(`{"output":` + out + `,"intents":[{"intent":"ajouter","confidence":0.9}]}`))
		require.NoError(t, err, out)
		assert.Equal(t, BandUnderstood, ann.Band, out)
		assert.Equal(t, "I understood your intent was ajouter", outputText(t, ann.Body), out)
	}

	// Empty objects and arrays are truthy and pass through.
	for _, out := range []string{`{}`, `[]`, `"x"`} {
		ann, err := Annotate([]byte(`{"output":` + out + `}`))
		require.NoError(t, err, out)
		assert.Equal(t, BandPassThrough, ann.Band, out)
	}
}

func TestAnnotate_PreservesOtherMembers(t *testing.T) {
	raw := []byte(`{"intents":[],"entities":[{"entity":"color","value":"bleu"}],"context":{"conversation_id":"abc","system":{"dialog_turn_counter":2}},"alternate_intents":false}`)

	ann, err := Annotate(raw)
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(ann.Body, &got))
	assert.JSONEq(t, `{"conversation_id":"abc","system":{"dialog_turn_counter":2}}`, string(got["context"]))
	assert.JSONEq(t, `[{"entity":"color","value":"bleu"}]`, string(got["entities"]))
	assert.JSONEq(t, `false`, string(got["alternate_intents"]))
}

func TestAnnotate_InvalidJSON(t *testing.T) {
	for _, raw := range []string{`not json`, `null`, `[1,2]`, `"text"`} {
		_, err := Annotate([]byte(raw))
		assert.Error(t, err, raw)
	}
}
