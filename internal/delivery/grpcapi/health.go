package grpcapi

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

// ServiceName is the health check name reported next to the overall status.
const ServiceName = "payment.v1.PaymentService"

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        *slog.Logger
}

func NewServer(log *slog.Logger) *Server {
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &Server{grpcServer: s, health: h, log: log}
}

// Serve blocks until the listener fails or ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	s.log.Info("grpc listening", "addr", addr)
	return s.grpcServer.Serve(lis)
}

// Shutdown flips the status to NOT_SERVING before stopping so that load
// balancers drain first.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
