package grpcserver

import (
	"context"
	"time"

	"marketplaceDelivery/internal/auth"
	"marketplaceDelivery/internal/delivery"
	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/internal/metrics"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDHeader = "x-request-id"

// requestIDInterceptor takes the caller's x-request-id or creates one, and echoes it back.
func requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDHeader); len(v) > 0 {
			id = v[0]
		}
	}
	if id == "" {
		id = logging.NewRequestID()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, id))
	return handler(logging.ContextWithRequestID(ctx, id), req)
}

func metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	metrics.GRPCRequests.WithLabelValues(info.FullMethod, code.String()).Inc()
	metrics.GRPCRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	logging.Ctx(ctx).Debug().Str("method", info.FullMethod).Str("code", code.String()).Dur("took", time.Since(start)).Msg("grpc request")
	return resp, err
}

// actorInterceptor records the authenticated username as the actor of status changes.
func actorInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if p, ok := auth.FromContext(ctx); ok && p != nil {
		ctx = delivery.WithActor(ctx, p.Kind+":"+p.Name)
	}
	return handler(ctx, req)
}
