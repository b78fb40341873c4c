// Package chat connects the chat transport to response consumers such as
// the command dispatcher.
//
// Responses arrive from the relay, either as replies to messages sent by a
// Client or pushed over the websocket Feed, and are published on a Bus.
// Subscribers see every response in arrival order.
package chat

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nadzzz/scenerelay/internal/message"
)

// Handler consumes one assistant response.
type Handler func(resp *message.Response)

// Bus delivers responses to subscribers synchronously, one response at a
// time, in subscription order.
type Bus struct {
	publishMu sync.Mutex

	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers resp to every current subscriber. Concurrent publishes
// are serialized.
func (b *Bus) Publish(resp *message.Response) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(resp)
	}
}

// PublishJSON decodes a raw response and publishes it.
func (b *Bus) PublishJSON(raw []byte) error {
	var resp message.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	b.Publish(&resp)
	return nil
}
