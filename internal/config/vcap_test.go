package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServicesLookup_PrefixMatch(t *testing.T) {
	s, err := ParseVCAP(`{
		"text_to_speech_v2": [{"credentials": {"iam_apikey": "k2"}}],
		"text_to_speech": [{"credentials": {"iam_apikey": "k1"}}],
		"empty": []
	}`)
	require.NoError(t, err)

	bc, ok := s.Lookup("text_to_speech")
	require.True(t, ok)
	assert.Equal(t, "k1", bc.IAMAPIKey)

	_, ok = s.Lookup("empty")
	assert.False(t, ok)
	_, ok = s.Lookup("speech_to_text")
	assert.False(t, ok)
}

func TestServicesApply_KeepsUnsetFields(t *testing.T) {
	cfg := &Config{}
	cfg.Speech.TTS.URL = "https://tts.default"
	cfg.Speech.TTS.Credentials.IAMURL = DefaultIAMURL

	s := Services{"text_to_speech": {{Credentials: BoundCredential{APIKey: "vcap-key"}}}}
	s.Apply(cfg)

	assert.Equal(t, "vcap-key", cfg.Speech.TTS.Credentials.APIKey)
	assert.Equal(t, "https://tts.default", cfg.Speech.TTS.URL)
	assert.Equal(t, DefaultIAMURL, cfg.Speech.TTS.Credentials.IAMURL)
	assert.Empty(t, cfg.Assistant.Credentials.APIKey)
}

func TestServicesApply_APIKeyReplacesBasic(t *testing.T) {
	cfg := &Config{}
	cfg.Speech.STT.Credentials = Credentials{Username: "env-user", Password: "env-pass"}
	cfg.Assistant.Credentials = Credentials{Username: "wa-user", Password: "wa-pass"}

	s := Services{
		"speech_to_text": {{Credentials: BoundCredential{APIKey: "vcap-key"}}},
		"conversation":   {{Credentials: BoundCredential{IAMAPIKey: "wa-key"}}},
	}
	s.Apply(cfg)

	assert.False(t, cfg.Speech.STT.Credentials.UsesBasicAuth())
	assert.Empty(t, cfg.Speech.STT.Credentials.Password)
	assert.Equal(t, "vcap-key", cfg.Speech.STT.Credentials.APIKey)
	assert.False(t, cfg.Assistant.Credentials.UsesBasicAuth())
	assert.Equal(t, "wa-key", cfg.Assistant.Credentials.APIKey)
}

func TestServicesApply_BoundBasicKeepsBasic(t *testing.T) {
	cfg := &Config{}
	cfg.Speech.TTS.Credentials = Credentials{APIKey: "env-key"}

	s := Services{"text_to_speech": {{Credentials: BoundCredential{Username: "u", Password: "p"}}}}
	s.Apply(cfg)

	assert.True(t, cfg.Speech.TTS.Credentials.UsesBasicAuth())
	assert.Equal(t, "p", cfg.Speech.TTS.Credentials.Password)
}
