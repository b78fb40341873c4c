package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nadzzz/scenerelay/internal/message"
)

// Client sends utterances to the relay and publishes each reply on a bus.
// It threads the conversation context between turns.
type Client struct {
	baseURL    string
	httpClient *http.Client
	bus        *Bus

	mu      sync.Mutex
	context json.RawMessage
}

// NewClient creates a client for the relay at baseURL.
func NewClient(baseURL string, bus *Bus) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		bus: bus,
	}
}

// Send posts one utterance and publishes the reply. Turns are sent one at a
// time so the context of each reply feeds the next request.
func (c *Client) Send(ctx context.Context, text string) (*message.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body, err := json.Marshal(message.Request{Context: c.context, Input: message.TextInput(text)})
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/message", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned status %d: %.200s", resp.StatusCode, respBody)
	}

	var out message.Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Context) > 0 {
		c.context = out.Context
	}

	c.bus.Publish(&out)
	return &out, nil
}

// Reset forgets the conversation context.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context = nil
}
