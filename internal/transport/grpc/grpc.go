// Package grpc implements the gRPC transport of the relay.
//
// The relay API itself is HTTP; this transport serves the standard
// grpc.health.v1 service so gRPC-native orchestrators and load balancers can
// probe the relay. Serving status mirrors the relay's readiness.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the relay.
const ServiceName = "scenerelay.Relay"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port. Both the overall and
// the relay service status start as NOT_SERVING.
func New(port int) *Transport {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &Transport{port: port, server: s, health: hs}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// SetServing updates the health status reported to clients.
func (t *Transport) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus("", status)
	t.health.SetServingStatus(ServiceName, status)
}

// Listen starts the gRPC server.
func (t *Transport) Listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return t.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener) error {
	slog.Info("grpc transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.Close()
	}()

	if err := t.server.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.health.Shutdown()
	t.server.GracefulStop()
	return nil
}
