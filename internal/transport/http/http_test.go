package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/scenerelay/internal/assistant"
	"github.com/nadzzz/scenerelay/internal/chat"
	"github.com/nadzzz/scenerelay/internal/message"
	"github.com/nadzzz/scenerelay/internal/metrics"
	"github.com/nadzzz/scenerelay/internal/relay"
	"github.com/nadzzz/scenerelay/internal/speech"
)

type fakeAssistant struct {
	calls   atomic.Int32
	reply   []byte
	err     error
	payload message.Payload
}

func (f *fakeAssistant) Name() string { return "fake" }
func (f *fakeAssistant) Close() error { return nil }

func (f *fakeAssistant) Message(_ context.Context, p message.Payload) ([]byte, error) {
	f.calls.Add(1)
	f.payload = p
	return f.reply, f.err
}

type fakeIssuer struct {
	svc speech.Service
	tok string
	err error
}

func (f fakeIssuer) Service() speech.Service { return f.svc }
func (f fakeIssuer) Token(context.Context) (string, error) { return f.tok, f.err }

func serve(t *testing.T, tr *Transport) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(tr.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestMessage_UnconfiguredWorkspace(t *testing.T) {
	asst := &fakeAssistant{}
	srv := serve(t, New(0, relay.New(asst, "<workspace-id>", false)))

	resp, body := post(t, srv.URL+"/api/message", `{"input":{"text":"bonjour"}}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, relay.UnconfiguredText, out["output"]["text"])
	assert.Zero(t, asst.calls.Load(), "intent service must not be contacted")
}

func TestMessage_AnnotatesReply(t *testing.T) {
	asst := &fakeAssistant{reply: []byte(`{"intents":[{"intent":"changer","confidence":0.9}],"entities":[],"context":{"n":2}}`)}
	srv := serve(t, New(0, relay.New(asst, "ws-1", true)))

	resp, body := post(t, srv.URL+"/api/message", `{"context":{"n":1},"input":{"text":"change le cube en bleu"}}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"intents":[{"intent":"changer","confidence":0.9}],"entities":[],"context":{"n":2},
		"output":{"text":"I understood your intent was changer"}}`, body)
	assert.Equal(t, "ws-1", asst.payload.WorkspaceID)
	assert.JSONEq(t, `{"n":1}`, string(asst.payload.Context))
}

func TestMessage_EmptyBodyDefaults(t *testing.T) {
	asst := &fakeAssistant{reply: []byte(`{"intents":[],"entities":[]}`)}
	srv := serve(t, New(0, relay.New(asst, "ws-1", true)))

	resp, body := post(t, srv.URL+"/api/message", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"intents":[],"entities":[],"output":{"text":null}}`, body)
	assert.Equal(t, "{}", string(asst.payload.Input))
}

func TestMessage_InvalidJSON(t *testing.T) {
	asst := &fakeAssistant{}
	srv := serve(t, New(0, relay.New(asst, "ws-1", true)))

	resp, _ := post(t, srv.URL+"/api/message", `{"input":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, asst.calls.Load())
}

func TestMessage_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "json body passed through",
			err:    &assistant.Error{Code: http.StatusUnauthorized, Body: []byte(`{"code":401,"error":"Unauthorized"}`)},
			status: http.StatusUnauthorized,
			body:   `{"code":401,"error":"Unauthorized"}`,
		},
		{
			name:   "plain error",
			err:    errors.New("connection refused"),
			status: http.StatusInternalServerError,
			body:   `{"code":500,"error":"connection refused"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asst := &fakeAssistant{err: tt.err}
			srv := serve(t, New(0, relay.New(asst, "ws-1", true)))

			resp, body := post(t, srv.URL+"/api/message", `{}`)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.JSONEq(t, tt.body, body)
			assert.EqualValues(t, 1, asst.calls.Load(), "no retries")
		})
	}
}

func TestTokens(t *testing.T) {
	r := relay.New(&fakeAssistant{}, "ws-1", true, relay.WithIssuers(
		fakeIssuer{svc: speech.SpeechToText, tok: "stt-token"},
		fakeIssuer{svc: speech.TextToSpeech, err: errors.New("bad credentials")},
	))
	srv := serve(t, New(0, r))

	resp, err := http.Get(srv.URL + "/api/speech-to-text/token")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stt-token", string(body))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	resp, _ = post(t, srv.URL+"/api/speech-to-text/token", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "any method is accepted")

	resp, err = http.Get(srv.URL + "/api/text-to-speech/token")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, tokenErrorText, string(body))
}

func TestForceHTTPS(t *testing.T) {
	srv := serve(t, New(0, relay.New(&fakeAssistant{}, "", false), WithForceHTTPS(true)))
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(srv.URL + "/index.html?q=1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "https://"+strings.TrimPrefix(srv.URL, "http://")+"/index.html?q=1", resp.Header.Get("Location"))

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/message", strings.NewReader(`{}`))
	req.Header.Set("X-Forwarded-Proto", "https")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	srv := serve(t, New(0, relay.New(&fakeAssistant{}, "", false)))

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/message", strings.NewReader(`{}`))
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(requestIDHeader))

	resp, _ = post(t, srv.URL+"/api/message", `{}`)
	assert.Len(t, resp.Header.Get(requestIDHeader), 36)
}

func TestRateLimit(t *testing.T) {
	srv := serve(t, New(0, relay.New(&fakeAssistant{}, "", false), WithRateLimit(0.001, 1)))

	resp, _ := post(t, srv.URL+"/api/message", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, srv.URL+"/api/message", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.JSONEq(t, `{"code":429,"error":"rate limit exceeded"}`, body)
}

func TestMetricsAndStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<a-scene></a-scene>"), 0o600))

	m := metrics.New()
	srv := serve(t, New(0, relay.New(&fakeAssistant{}, "", false, relay.WithMetrics(m)),
		WithMetrics(m, "/metrics"), WithStaticDir(dir)))

	post(t, srv.URL+"/api/message", `{}`)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `scenerelay_messages_total{status="unconfigured"} 1`)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "<a-scene></a-scene>", string(body))
}

func TestFeedRouteAbsentWithoutFeed(t *testing.T) {
	srv := serve(t, New(0, relay.New(&fakeAssistant{}, "", false)))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedBroadcastsAnnotatedReplies(t *testing.T) {
	asst := &fakeAssistant{reply: []byte(`{"intents":[{"intent":"ajouter","confidence":0.3}],"entities":[{"entity":"object","value":"cube"}]}`)}
	feed := chat.NewFeed(nil)
	srv := serve(t, New(0, relay.New(asst, "ws-1", true), WithFeed(feed)))
	t.Cleanup(feed.Close)

	bus := chat.NewBus()
	got := make(chan *message.Response, 1)
	bus.Subscribe(func(resp *message.Response) { got <- resp })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = chat.Watch(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", bus) }()
	require.Eventually(t, func() bool { return feed.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	post(t, srv.URL+"/api/message", `{"input":{"text":"ajoute un cube"}}`)

	select {
	case resp := <-got:
		assert.Equal(t, "I did not understand your intent", resp.OutputText())
		assert.Equal(t, "cube", resp.Entities[0].Value)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not deliver the reply")
	}
}
