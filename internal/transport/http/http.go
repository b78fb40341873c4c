// Package http implements the HTTP transport of the relay.
//
// It serves the chat relay API (POST /api/message and the speech token
// endpoints), the websocket feed of annotated responses, Prometheus
// metrics, the Swagger UI, and the static chat UI.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/scenerelay/internal/assistant"
	"github.com/nadzzz/scenerelay/internal/chat"
	"github.com/nadzzz/scenerelay/internal/message"
	"github.com/nadzzz/scenerelay/internal/metrics"
	"github.com/nadzzz/scenerelay/internal/relay"
	"github.com/nadzzz/scenerelay/internal/speech"
)

// maxBodyBytes bounds the size of a chat turn.
const maxBodyBytes = 1 << 20

// tokenErrorText is the body returned when a speech token cannot be issued.
const tokenErrorText = "Error retrieving token"

// Transport serves the relay over HTTP.
type Transport struct {
	port        int
	relay       *relay.Relay
	feed        *chat.Feed
	metrics     *metrics.Metrics
	metricsPath string
	staticDir   string
	forceHTTPS  bool
	limiter     *rateLimiter
	server      *http.Server
}

// Option configures a Transport.
type Option func(*Transport)

// WithFeed serves GET /ws and broadcasts every annotated response on f.
func WithFeed(f *chat.Feed) Option {
	return func(t *Transport) { t.feed = f }
}

// WithMetrics exposes m at path.
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(t *Transport) {
		t.metrics = m
		t.metricsPath = path
	}
}

// WithStaticDir serves the files under dir at /.
func WithStaticDir(dir string) Option {
	return func(t *Transport) { t.staticDir = dir }
}

// WithForceHTTPS redirects plain-HTTP requests to https.
func WithForceHTTPS(enabled bool) Option {
	return func(t *Transport) { t.forceHTTPS = enabled }
}

// WithRateLimit limits /api requests to reqPerSec with the given burst. A
// non-positive rate disables limiting.
func WithRateLimit(reqPerSec float64, burst int) Option {
	return func(t *Transport) {
		if reqPerSec > 0 {
			t.limiter = newRateLimiter(reqPerSec, burst)
		}
	}
}

// New creates a new HTTP transport on the given port.
func New(port int, r *relay.Relay, opts ...Option) *Transport {
	t := &Transport{port: port, relay: r}
	for _, opt := range opts {
		opt(t)
	}
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the fully wired request handler.
func (t *Transport) Handler() http.Handler {
	mux := http.NewServeMux()

	// Chat relay API.
	mux.Handle("POST /api/message", t.limiter.wrap(http.HandlerFunc(t.handleMessage)))
	mux.Handle("/api/speech-to-text/token", t.limiter.wrap(t.tokenHandler(speech.SpeechToText)))
	mux.Handle("/api/text-to-speech/token", t.limiter.wrap(t.tokenHandler(speech.TextToSpeech)))

	if t.feed != nil {
		mux.Handle("GET /ws", t.feed)
	}

	if t.metrics != nil && t.metricsPath != "" {
		mux.Handle("GET "+t.metricsPath, t.metrics.Handler())
	}

	// Swagger UI for the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	if t.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(t.staticDir)))
	}

	var h http.Handler = mux
	if t.forceHTTPS {
		h = requireHTTPS(h)
	}
	return withRequestID(h)
}

// Listen starts the HTTP server.
func (t *Transport) Listen(ctx context.Context) error {
	slog.Info("http transport listening", "port", t.port, "feed", t.feed != nil, "https_only", t.forceHTTPS)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		if t.feed != nil {
			t.feed.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleMessage relays one chat turn.
//
// @Summary     Relay a chat message
// @Description Forwards the conversation context and user input to the intent service and returns its reply.
// @Description When the reply carries no output, one is synthesized from the top intent's confidence:
// @Description "I understood your intent was X" (>= 0.75), "I think your intent was X" (>= 0.5),
// @Description "I did not understand your intent" (< 0.5), or null when no intent was recognized.
// @Tags        relay
// @Accept      json
// @Produce     json
// @Param       message  body      message.Request   true  "Conversation turn"
// @Success     200      {object}  message.Response  "Intent service reply with output"
// @Failure     400      {object}  map[string]any    "Invalid request body"
// @Failure     500      {object}  map[string]any    "Intent service error, relayed with its status code"
// @Router      /api/message [post]
func (t *Transport) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req message.Request
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
			return
		}
	}

	out, err := t.relay.Message(r.Context(), req)
	if err != nil {
		ae := assistant.AsError(err)
		writeJSON(w, ae.Code, ae.JSON())
		return
	}

	writeJSON(w, http.StatusOK, out)
	if t.feed != nil {
		t.feed.Broadcast(out)
	}
}

// tokenHandler vends a token for svc.
//
// @Summary     Get a speech token
// @Description Returns a short-lived token the browser uses to call the speech service directly.
// @Tags        speech
// @Produce     plain
// @Param       service  path      string  true  "speech-to-text or text-to-speech"
// @Success     200      {string}  string  "Token"
// @Failure     500      {string}  string  "Error retrieving token"
// @Router      /api/{service}/token [get]
func (t *Transport) tokenHandler(svc speech.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		tok, err := t.relay.Token(r.Context(), svc)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, tokenErrorText)
			return
		}
		_, _ = io.WriteString(w, tok)
	})
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.feed != nil {
		t.feed.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	b, _ := json.Marshal(struct {
		Code  int    `json:"code"`
		Error string `json:"error"`
	}{Code: status, Error: msg})
	writeJSON(w, status, b)
}
