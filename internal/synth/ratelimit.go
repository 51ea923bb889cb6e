package synth

import (
	"context"

	"golang.org/x/time/rate"
)

// NewLimiter builds a token bucket shared by every generation in a run.
// A non-positive rate disables throttling.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// WithRateLimit waits for a token before each backend call. Place it inside
// WithRetry so retries are throttled too.
func WithRateLimit(l *rate.Limiter) Middleware {
	return func(next Synthesizer) Synthesizer {
		if l == nil {
			return next
		}
		return Func(func(ctx context.Context, req Request) Result {
			if err := l.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return Failed(Canceled(ctx.Err()))
				}
				// The wait would outlast the context deadline.
				return Failed(Timeout(err))
			}
			return next.Generate(ctx, req)
		})
	}
}
