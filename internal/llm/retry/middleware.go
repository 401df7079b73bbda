package retry

import (
	"context"

	"github.com/ahrav/go-grader/internal/llm/transport"
)

// Middleware wraps a handler so each call is retried according to r.
func Middleware(r *Retrier) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			return Do(ctx, r, func(ctx context.Context) (*transport.Response, error) {
				return next.Handle(ctx, req)
			})
		})
	}
}
