package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// Server gRPC 服务器
// Server is the blocking gRPC endpoint for mesh probes. It serves the
// standard health service and reflection; shutdown flips the health status
// to NOT_SERVING before draining in-flight RPCs.
type Server struct {
	addr   string
	log    logger.Logger
	health *health.Server
}

// NewServer creates the gRPC server.
//
// Parameters:
//   - addr: listen address, host:port
//   - log: structured logger
//
// Returns:
//   - *Server: the assembled server, started with Run
func NewServer(addr string, log logger.Logger) *Server {
	return &Server{
		addr:   addr,
		log:    log.WithComponent("grpc_server"),
		health: health.NewServer(),
	}
}

// Run listens and serves until ctx is canceled, then stops gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	chain := NewInterceptorChain(s.log)
	srv := grpc.NewServer(chain.ChainUnaryInterceptors())

	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping gRPC server")
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		srv.GracefulStop()
	}()

	s.log.Info(ctx, "Starting gRPC server", logger.String("address", s.addr))

	// Serve returns nil after GracefulStop.
	return srv.Serve(listener)
}
