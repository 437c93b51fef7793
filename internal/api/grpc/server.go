// Package grpcapi exposes the gRPC health and reflection services.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"travel-voice-service/internal/observability"
	"travel-voice-service/internal/observability/logging"
)

// ServiceName is the health-checked service name.
const ServiceName = "travel.voice.RecognitionService"

// Server wraps a grpc.Server with health reporting tied to provider readiness.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	ready  func() bool
	logger zerolog.Logger
}

// New creates the gRPC server. ready decides between SERVING and
// NOT_SERVING for ServiceName; nil means always serving.
func New(ready func() bool) *Server {
	g := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor()),
		grpc.StreamInterceptor(observability.StreamServerInterceptor()),
	)

	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, h)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	s := &Server{
		grpc:   g,
		health: h,
		ready:  ready,
		logger: logging.WithComponent("grpc"),
	}
	s.Refresh()
	return s
}

// Refresh re-evaluates readiness and updates the health status.
func (s *Server) Refresh() {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if s.ready != nil && !s.ready() {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
	return s.grpc.Serve(lis)
}

// Stop marks the service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.logger.Info().Msg("Shutting down gRPC server")
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
