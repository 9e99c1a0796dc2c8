package grpcserver

import (
	"context"
	"errors"
	"net"
	"time"

	"marketplaceDelivery/internal/auth"
	"marketplaceDelivery/internal/config"
	"marketplaceDelivery/internal/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewServer builds the gRPC server with DeliveryService and the health service registered.
// Interceptors run in order: request id, metrics, authentication, code limiter, actor.
// A nil limiter disables code attempt limiting.
func NewServer(secret string, ds *DeliveryServer, limiter *CodeAttemptLimiter) *grpc.Server {
	chain := []grpc.UnaryServerInterceptor{
		requestIDInterceptor,
		metricsInterceptor,
		auth.NewUnaryAuthInterceptor(secret, healthCheckMethod),
	}
	if limiter != nil {
		chain = append(chain, limiter.UnaryInterceptor())
	}
	chain = append(chain, actorInterceptor)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(chain...))
	RegisterDeliveryServiceServer(srv, ds)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(DeliveryServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC starts the gRPC server on the configured address and returns a shutdown function.
func StartGRPC(cfg *config.Config, ds *DeliveryServer) (func(context.Context) error, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if ds == nil {
		return nil, errors.New("delivery server is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	limiter := NewCodeAttemptLimiter(cfg.GRPC.CodeAttempts, cfg.GRPC.CodeAttemptWindow)
	if limiter != nil {
		limiter.StartCleanup(5 * time.Minute)
	}
	srv := NewServer(cfg.Auth.JWTSecret, ds, limiter)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logging.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	return func(ctx context.Context) error {
		if limiter != nil {
			limiter.Stop()
		}
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}
