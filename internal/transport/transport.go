// Package transport defines the interface for the relay's network listeners.
//
// Each transport (HTTP, gRPC) implements this interface so the daemon can
// start and stop them uniformly. Request handling lives behind the relay;
// transports only adapt it to a wire protocol.
package transport

import "context"

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "grpc").
	Name() string

	// Listen starts accepting connections. It blocks until the context is
	// cancelled or the listener fails.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
