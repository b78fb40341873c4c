// Package auth attaches service credentials to outbound requests.
//
// Two schemes are supported: HTTP basic auth with a username and password,
// and IAM, where an API key is exchanged for a short-lived bearer token. No
// token is cached; every call performs a fresh exchange.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nadzzz/scenerelay/internal/config"
)

// ErrNoCredentials is returned when neither a username nor an API key is set.
var ErrNoCredentials = errors.New("no credentials configured")

// Authorizer decorates outbound requests with credentials.
type Authorizer interface {
	// Authorize sets the Authorization header on req.
	Authorize(ctx context.Context, req *http.Request) error
}

// New selects basic auth when a username is configured and IAM otherwise.
func New(c config.Credentials, client *http.Client) Authorizer {
	if c.UsesBasicAuth() {
		return &Basic{Username: c.Username, Password: c.Password}
	}
	return NewIAM(c.APIKey, c.IAMURL, client)
}

// Basic authenticates with a fixed username and password.
type Basic struct {
	Username string
	Password string
}

// Authorize sets HTTP basic auth on req.
func (b *Basic) Authorize(_ context.Context, req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// IAM exchanges an API key for a bearer token on every call.
type IAM struct {
	apiKey string
	url    string
	client *http.Client
}

// NewIAM creates an IAM authenticator. An empty tokenURL selects the default
// IAM endpoint.
func NewIAM(apiKey, tokenURL string, client *http.Client) *IAM {
	if tokenURL == "" {
		tokenURL = config.DefaultIAMURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &IAM{apiKey: apiKey, url: tokenURL, client: client}
}

// Token is an IAM access token.
type Token struct {
	AccessToken string
	// ExpiresAt is zero when the expiry could not be determined.
	ExpiresAt time.Time
}

// Token performs the API key exchange.
func (i *IAM) Token(ctx context.Context) (*Token, error) {
	if i.apiKey == "" {
		return nil, ErrNoCredentials
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	form.Set("apikey", i.apiKey)
	form.Set("response_type", "cloud_iam")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating iam request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("iam request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("iam token exchange failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		Expiration  int64  `json:"expiration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding iam token: %w", err)
	}
	if result.AccessToken == "" {
		return nil, errors.New("iam response carried no access_token")
	}

	tok := &Token{AccessToken: result.AccessToken, ExpiresAt: expiry(result.AccessToken)}
	if tok.ExpiresAt.IsZero() && result.Expiration > 0 {
		tok.ExpiresAt = time.Unix(result.Expiration, 0)
	}
	slog.Debug("iam token issued", "expires_at", tok.ExpiresAt)
	return tok, nil
}

// Authorize sets a fresh bearer token on req.
func (i *IAM) Authorize(ctx context.Context, req *http.Request) error {
	tok, err := i.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	return nil
}

// expiry reads the exp claim without verifying the signature.
func expiry(accessToken string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
