package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check service name reported for the cart API.
const ServiceName = "cart.CartService"

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        logger.Logger
	port       string
}

func NewServer(log logger.Logger, port string, maxConnectionIdle time.Duration) *Server {
	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     maxConnectionIdle,
			Timeout:               20 * time.Second,
			MaxConnectionAge:      maxConnectionIdle,
			Time:                  maxConnectionIdle,
			MaxConnectionAgeGrace: 5 * time.Second,
		}),
	}

	grpcServer := grpc.NewServer(serverOpts...)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		log:        log,
		port:       port,
	}
}

// SetServing flips the reported health of the cart service and of the
// server as a whole.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.port, err)
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Infof("gRPC server is serving on %s", lis.Addr())

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("gRPC server is stopping gracefully")
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.log.Warn("graceful shutdown timed out, forcing stop")
		s.grpcServer.Stop()
		return ctx.Err()
	case <-stopped:
		s.log.Info("gRPC server stopped gracefully")
		return nil
	}
}
