// Package relay implements the chat relay: it forwards conversation turns to
// the intent service, annotates replies with a confidence-banded message,
// and vends speech tokens.
//
// The relay keeps no conversation state. Every call is independent, so a
// single Relay is safe for concurrent use.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nadzzz/scenerelay/internal/assistant"
	"github.com/nadzzz/scenerelay/internal/message"
	"github.com/nadzzz/scenerelay/internal/metrics"
	"github.com/nadzzz/scenerelay/internal/speech"
)

// UnconfiguredText is returned instead of calling the intent service when no
// workspace id is configured.
const UnconfiguredText = "The app has not been configured with a <b>WORKSPACE_ID</b> environment variable. " +
	"Please refer to the README documentation on how to set this variable. <br>" +
	"Once a workspace has been defined the intents may be imported from the training " +
	"directory in order to get a working application."

// ErrUnknownService is returned by Token for a service with no issuer.
var ErrUnknownService = errors.New("unknown speech service")

// Relay is the stateless request handler behind the HTTP transport.
type Relay struct {
	assistant   assistant.Assistant
	workspaceID string
	configured  bool
	issuers     map[speech.Service]speech.Issuer
	metrics     *metrics.Metrics
}

// Option configures a Relay.
type Option func(*Relay)

// WithMetrics records relay outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithIssuers registers speech token issuers.
func WithIssuers(issuers ...speech.Issuer) Option {
	return func(r *Relay) {
		for _, iss := range issuers {
			r.issuers[iss.Service()] = iss
		}
	}
}

// New creates a Relay. configured reports whether workspaceID is usable; when
// false Message answers with UnconfiguredText and never contacts asst.
func New(asst assistant.Assistant, workspaceID string, configured bool, opts ...Option) *Relay {
	r := &Relay{
		assistant:   asst,
		workspaceID: workspaceID,
		configured:  configured,
		issuers:     make(map[speech.Service]speech.Issuer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Message relays one chat turn and returns the annotated reply body.
// Upstream failures are returned as *assistant.Error.
func (r *Relay) Message(ctx context.Context, req message.Request) ([]byte, error) {
	logger := loggerFrom(ctx)

	if !r.configured {
		logger.Warn("workspace not configured, returning setup instructions")
		r.metrics.Message("unconfigured")
		return json.Marshal(struct {
			Output message.Output `json:"output"`
		}{Output: message.Output{Text: UnconfiguredText}})
	}

	req.Normalize()
	payload := message.Payload{
		WorkspaceID: r.workspaceID,
		Context:     req.Context,
		Input:       req.Input,
	}

	start := time.Now()
	raw, err := r.assistant.Message(ctx, payload)
	r.metrics.Upstream(r.assistant.Name(), start)
	if err != nil {
		r.metrics.Message("upstream_error")
		logger.Error("assistant message failed", "backend", r.assistant.Name(), "error", err)
		return nil, err
	}

	ann, err := Annotate(raw)
	if err != nil {
		r.metrics.Message("upstream_error")
		logger.Error("annotating response failed", "error", err)
		return nil, &assistant.Error{Code: http.StatusBadGateway, Err: err}
	}

	r.metrics.Message("ok")
	r.metrics.Annotation(string(ann.Band))
	logger.Info("message relayed", "band", ann.Band, "duration", time.Since(start))
	return ann.Body, nil
}

// Token returns a fresh token for the given speech service.
func (r *Relay) Token(ctx context.Context, svc speech.Service) (string, error) {
	logger := loggerFrom(ctx)

	iss, ok := r.issuers[svc]
	if !ok {
		r.metrics.Token(string(svc), "error")
		return "", fmt.Errorf("%w: %s", ErrUnknownService, svc)
	}

	start := time.Now()
	tok, err := iss.Token(ctx)
	r.metrics.Upstream(string(svc), start)
	if err != nil {
		r.metrics.Token(string(svc), "error")
		logger.Error("error retrieving token", "service", svc, "error", err)
		return "", err
	}

	r.metrics.Token(string(svc), "ok")
	return tok, nil
}

type loggerKey struct{}

// WithLogger attaches a request-scoped logger to ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
