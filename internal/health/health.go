// Package health exposes the server's listener readiness over gRPC using
// the standard health-checking protocol, so an orchestrator (systemd,
// Kubernetes) can probe liveness without speaking the session wire
// protocol.
package health

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server wraps a grpc.Server exposing the health service for one
// named service ("" is the overall server status).
type Server struct {
	grpcServer *grpc.Server
	healthSrv  *health.Server
	logger     *slog.Logger
}

// New builds a health Server. The service starts in NOT_SERVING status;
// call SetServing once the main listener is accepting connections.
func New(logger *slog.Logger) *Server {
	healthSrv := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{grpcServer: grpcServer, healthSrv: healthSrv, logger: logger}
}

// SetServing marks the overall service as SERVING or NOT_SERVING.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.healthSrv.SetServingStatus("", status)
}

// Start listens on address and serves gRPC health checks until ctx is
// canceled.
func (s *Server) Start(ctx context.Context, address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.grpcServer.GracefulStop()
	}()

	s.logger.Info("starting health endpoint", slog.String("address", address))
	return s.grpcServer.Serve(ln)
}
