// Package watson implements speech.Issuer using the Watson authorization
// service for username/password credentials and IAM for API keys.
package watson

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nadzzz/scenerelay/internal/auth"
	"github.com/nadzzz/scenerelay/internal/config"
	"github.com/nadzzz/scenerelay/internal/speech"
)

// Issuer vends tokens for one speech service.
type Issuer struct {
	service          speech.Service
	serviceURL       string
	authorizationURL string
	creds            config.Credentials
	client           *http.Client
}

// New creates an issuer for service from config.
func New(service speech.Service, authorizationURL string, cfg config.SpeechService) *Issuer {
	return &Issuer{
		service:          service,
		serviceURL:       cfg.URL,
		authorizationURL: authorizationURL,
		creds:            cfg.Credentials,
		client:           &http.Client{Timeout: 30 * time.Second},
	}
}

// Service returns the service this issuer vends tokens for.
func (i *Issuer) Service() speech.Service { return i.service }

// Token returns a token for the configured service URL.
func (i *Issuer) Token(ctx context.Context) (string, error) {
	if !i.creds.UsesBasicAuth() {
		tok, err := auth.NewIAM(i.creds.APIKey, i.creds.IAMURL, i.client).Token(ctx)
		if err != nil {
			return "", fmt.Errorf("%s iam token: %w", i.service, err)
		}
		return tok.AccessToken, nil
	}

	q := url.Values{}
	q.Set("url", i.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.authorizationURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(i.creds.Username, i.creds.Password)

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s token request: %w", i.service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s token failed (status %d): %.200s", i.service, resp.StatusCode, body)
	}

	slog.Debug("speech token issued", "service", i.service, "bytes", len(body))
	return string(body), nil
}
