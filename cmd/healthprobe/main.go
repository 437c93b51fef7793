// Command healthprobe checks the gRPC health of a running service and exits
// non-zero unless it reports SERVING.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	grpcapi "travel-voice-service/internal/api/grpc"
	"travel-voice-service/internal/observability/logging"
)

func main() {
	addr := flag.String("server", "localhost:50051", "gRPC server address")
	service := flag.String("service", grpcapi.ServiceName, "Service name to check, empty for overall health")
	timeout := flag.Duration("timeout", 5*time.Second, "Check timeout")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	status, err := probe(ctx, *addr, *service)
	if err != nil {
		log.Error().Err(err).Str("server", *addr).Msg("Health check failed")
		os.Exit(2)
	}

	log.Info().Str("server", *addr).Str("service", *service).Str("status", status.String()).Msg("Health check")
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		os.Exit(1)
	}
}

func probe(ctx context.Context, addr, service string, opts ...grpc.DialOption) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
