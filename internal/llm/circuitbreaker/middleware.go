package circuitbreaker

import (
	"context"
	"errors"

	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

// Middleware guards calls with the request provider's breaker. It belongs
// outside the retry middleware so one logical call counts once.
func Middleware(reg *Registry) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			breaker := reg.Get(req.Provider)
			if !breaker.AllowRequest() {
				resetAt := breaker.ResetAt()
				cbErr := &llmerrors.CircuitBreakerError{
					Provider: req.Provider,
					State:    breaker.State().String(),
				}
				if !resetAt.IsZero() {
					cbErr.ResetAt = resetAt.Unix()
				}
				return nil, cbErr
			}

			resp, err := next.Handle(ctx, req)
			switch {
			case err == nil:
				breaker.RecordSuccess()
			case errors.Is(err, context.Canceled):
				// The caller gave up; says nothing about provider health.
				breaker.ReleaseTrial()
			default:
				breaker.RecordFailure()
			}
			return resp, err
		})
	}
}
