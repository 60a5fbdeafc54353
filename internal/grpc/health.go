package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the health service name reported next to the overall ("") status.
const ServiceName = "gryadka.api"

const checkTimeout = 3 * time.Second

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// HealthServer exposes grpc.health.v1.Health. Its status follows the result
// of the most recent Refresh and starts as NOT_SERVING.
type HealthServer struct {
	health *health.Server
	server *grpc.Server
	check  CheckFunc
	logger *slog.Logger
}

// NewHealthServer creates a health server driven by check
func NewHealthServer(check CheckFunc, logger *slog.Logger) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	)
	healthpb.RegisterHealthServer(srv, hs)

	return &HealthServer{
		health: hs,
		server: srv,
		check:  check,
		logger: logger,
	}
}

// Refresh runs the check once and publishes the result. It is meant to be
// scheduled with worker.Pool.Every.
func (s *HealthServer) Refresh(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.check(checkCtx); err != nil {
		// A check interrupted by shutdown says nothing about the dependency.
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("⚠️ [Health] Dependency check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve accepts connections on lis until Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("🚀 [gRPC] Health server listening", "address", lis.Addr().String())
	return s.server.Serve(lis)
}

// Run listens on address and serves until ctx is done.
func (s *HealthServer) Run(ctx context.Context, address string) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains open calls.
func (s *HealthServer) Stop() {
	s.logger.Info("🛑 [gRPC] Stopping health server...")
	s.health.Shutdown()
	s.server.GracefulStop()
}

