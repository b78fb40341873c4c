// Package health provides the HTTP health check endpoints.
//
// Docker, Kubernetes and Cloud Foundry use these endpoints to monitor the
// relay. /healthz answers 200 while the process is serving; /readyz answers
// 200 only once the transports are up and reports relay details such as
// whether a workspace is configured.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port   int
	ready  atomic.Bool
	server *http.Server

	mu        sync.Mutex
	details   map[string]any
	listeners []func(ready bool)
}

// New creates a new health check server.
func New(port int) *Server {
	return &Server{port: port, details: make(map[string]any)}
}

// SetReady marks the relay as ready to accept traffic and notifies every
// readiness listener.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)

	s.mu.Lock()
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ready)
	}
}

// Ready reports the current readiness.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// OnReady registers fn to be called on every readiness change.
func (s *Server) OnReady(fn func(ready bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetDetail adds a key to the /readyz body.
func (s *Server) SetDetail(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[key] = value
}

// Handler returns the health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		body := maps.Clone(s.details)
		s.mu.Unlock()

		if !s.ready.Load() {
			body["status"] = "not_ready"
			writeStatus(w, http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ok"
		writeStatus(w, http.StatusOK, body)
	})

	return mux
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func writeStatus(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
