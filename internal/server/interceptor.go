package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// RequestIDHeader carries a caller-chosen request ID.
const RequestIDHeader = "x-request-id"

// UnaryLogging tags each call with a request ID (from RequestIDHeader or
// freshly minted) and logs its outcome.
func UnaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(RequestIDHeader); len(ids) > 0 && ids[0] != "" {
				ctx = common.WithRequestID(ctx, ids[0])
			}
		}
		ctx, reqID := common.EnsureRequestID(ctx)
		if p, ok := peer.FromContext(ctx); ok && common.SourceFromContext(ctx) == "" {
			ctx = common.WithSource(ctx, "grpc:"+p.Addr.String())
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, reqID))

		resp, err := handler(ctx, req)
		attrs := []any{
			"req_id", reqID,
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.call.failed", append(attrs, "err", err)...)
		} else {
			logger.Info("grpc.call", attrs...)
		}
		return resp, err
	}
}
