package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"
)

// RPCObserver receives one observation per finished RPC.
type RPCObserver interface {
	ObserveRPC(procedure, code string, elapsed time.Duration)
}

// MetricsInterceptor reports every unary RPC to obs, labelled with the
// procedure and the Connect code ("ok" on success).
func MetricsInterceptor(obs RPCObserver) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			obs.ObserveRPC(req.Spec().Procedure, codeLabel(err), time.Since(start))

			return resp, err
		}
	}
}
