package middleware

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// codeLabel returns "ok" for a nil error and the Connect code name otherwise.
func codeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return connect.CodeOf(err).String()
}

// serverFault reports codes that point at the server rather than the caller.
func serverFault(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	}
	return false
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC with
// its procedure, result code and duration. Caller mistakes log at WARN,
// server faults at ERROR.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"code", codeLabel(err),
				"peer", req.Peer().Addr,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case err == nil:
				slog.Info("RPC ok", attrs...)
			case serverFault(connect.CodeOf(err)):
				slog.Error("RPC failed", append(attrs, "error", err)...)
			default:
				slog.Warn("RPC rejected", append(attrs, "error", err)...)
			}

			return resp, err
		}
	}
}
