package chat

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/nadzzz/scenerelay/internal/metrics"
)

const (
	feedBuffer       = 16
	feedWriteTimeout = 5 * time.Second
)

// Feed streams annotated responses to websocket subscribers. Subscribers
// that fall behind are disconnected rather than slowing the relay down.
type Feed struct {
	metrics *metrics.Metrics

	mu     sync.Mutex
	subs   map[*feedSubscriber]struct{}
	closed bool
}

type feedSubscriber struct {
	send chan []byte
}

// NewFeed creates an empty feed. m may be nil.
func NewFeed(m *metrics.Metrics) *Feed {
	return &Feed{
		metrics: m,
		subs:    make(map[*feedSubscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and streams responses until the peer
// disconnects or the feed is closed.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("feed upgrade failed", "error", err)
		return
	}

	sub := &feedSubscriber{send: make(chan []byte, feedBuffer)}
	if !f.add(sub) {
		_ = conn.Close(websocket.StatusGoingAway, "feed closed")
		return
	}
	defer f.remove(sub)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case data, ok := <-sub.send:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("feed write failed", "error", err)
				return
			}
		}
	}
}

// Broadcast queues raw for every subscriber without blocking.
func (f *Feed) Broadcast(raw []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for sub := range f.subs {
		select {
		case sub.send <- raw:
		default:
			slog.Warn("feed subscriber too slow, disconnecting")
			f.drop(sub)
		}
	}
}

// Len returns the number of connected subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close disconnects all subscribers and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for sub := range f.subs {
		f.drop(sub)
	}
}

func (f *Feed) add(sub *feedSubscriber) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.subs[sub] = struct{}{}
	f.metrics.Subscribers(1)
	return true
}

func (f *Feed) remove(sub *feedSubscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drop(sub)
}

// drop must be called with f.mu held.
func (f *Feed) drop(sub *feedSubscriber) {
	if _, ok := f.subs[sub]; !ok {
		return
	}
	delete(f.subs, sub)
	close(sub.send)
	f.metrics.Subscribers(-1)
}
