// Package speech defines the interface for vending speech-service tokens.
//
// The browser talks to the speech-to-text and text-to-speech services
// directly; the relay only exchanges its own credentials for a short-lived
// token the browser can present.
package speech

import "context"

// Service identifies a speech service for which tokens are issued.
type Service string

const (
	// SpeechToText is the speech recognition service.
	SpeechToText Service = "speech-to-text"

	// TextToSpeech is the speech synthesis service.
	TextToSpeech Service = "text-to-speech"
)

// Issuer obtains access tokens for one speech service.
type Issuer interface {
	// Service returns the service this issuer vends tokens for.
	Service() Service

	// Token returns a fresh token. No token is cached between calls.
	Token(ctx context.Context) (string, error)
}
