// Package admin serves operator-facing endpoints: the standard gRPC health
// checking service for liveness and readiness probes.
package admin

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the game server.
const ServiceName = "pong.GameServer"

const stopTimeout = 2 * time.Second

// HealthServer is a gRPC server exposing grpc.health.v1.Health.
type HealthServer struct {
	addr   string
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewHealthServer creates a health server that will listen on addr.
//
// Precondition: logger must be non-nil.
// Postcondition: "" and ServiceName report SERVING until SetServing(false) or Stop.
func NewHealthServer(addr string, logger *zap.Logger) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &HealthServer{
		addr:   addr,
		grpc:   srv,
		health: hs,
		logger: logger,
	}
}

// SetServing reports ServiceName and the server as a whole as SERVING or NOT_SERVING.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve serves gRPC on lis until Stop is called. It leaves the reported
// status as it is.
//
// Postcondition: Returns nil after Stop, or the serve error.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("admin gRPC server listening",
		zap.String("addr", lis.Addr().String()),
	)
	if err := s.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("serving admin gRPC: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *HealthServer) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Stop marks every service NOT_SERVING, so open watches see the change, then
// drains in-flight RPCs. Streams still open after stopTimeout are cut.
func (s *HealthServer) Stop() {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		s.grpc.Stop()
		<-done
	}
	s.logger.Info("admin gRPC server stopped")
}
