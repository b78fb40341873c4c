// Package watson implements the Assistant interface against the Watson
// Assistant v1 message API.
package watson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nadzzz/scenerelay/internal/assistant"
	"github.com/nadzzz/scenerelay/internal/auth"
	"github.com/nadzzz/scenerelay/internal/config"
	"github.com/nadzzz/scenerelay/internal/message"
)

// Client calls POST {url}/v1/workspaces/{id}/message.
type Client struct {
	baseURL string
	version string
	auth    auth.Authorizer
	client  *http.Client
}

// New creates a new Watson Assistant client from config.
func New(cfg config.AssistantConfig) *Client {
	client := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		version: cfg.Version,
		auth:    auth.New(cfg.Credentials, client),
		client:  client,
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "watson" }

// Message sends one turn to the workspace and returns the raw reply.
func (c *Client) Message(ctx context.Context, payload message.Payload) ([]byte, error) {
	body, err := json.Marshal(struct {
		Context json.RawMessage `json:"context"`
		Input   json.RawMessage `json:"input"`
	}{Context: payload.Context, Input: payload.Input})
	if err != nil {
		return nil, fmt.Errorf("marshalling message request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/workspaces/%s/message?version=%s",
		c.baseURL, url.PathEscape(payload.WorkspaceID), url.QueryEscape(c.version))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.auth.Authorize(ctx, req); err != nil {
		return nil, &assistant.Error{Code: http.StatusInternalServerError, Err: fmt.Errorf("authorizing: %w", err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &assistant.Error{Code: http.StatusInternalServerError, Err: fmt.Errorf("message request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &assistant.Error{Code: http.StatusBadGateway, Err: fmt.Errorf("reading message response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		return nil, &assistant.Error{Code: resp.StatusCode, Body: respBody}
	}
	if !json.Valid(respBody) {
		return nil, &assistant.Error{Code: http.StatusBadGateway, Err: fmt.Errorf("message response is not JSON: %.200s", respBody)}
	}

	slog.Debug("assistant message complete", "workspace_id", payload.WorkspaceID, "bytes", len(respBody))
	return respBody, nil
}

// Close is a no-op for the Watson client.
func (c *Client) Close() error { return nil }
