package synth

import (
	"context"
	"log"
	"time"
)

// RetryPolicy bounds retries of failed generations.
type RetryPolicy struct {
	// MaxAttempts counts the first try. Values below 1 mean 1.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns three attempts with backoff from 500ms to 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

// Delay returns the wait before the attempt following attempt (1-based).
func (p RetryPolicy) Delay(attempt int, err *Error) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt && d > 0; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if err != nil && err.Kind == KindRateLimited && err.RetryAfter > d {
		d = err.RetryAfter
	}
	return d
}

// WithRetry retries failed generations with exponential backoff. Canceled
// results and a done context stop retrying immediately. The returned Result
// records how many attempts were made.
func WithRetry(p RetryPolicy) Middleware {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return func(next Synthesizer) Synthesizer {
		return Func(func(ctx context.Context, req Request) Result {
			var res Result
			for i := 1; i <= attempts; i++ {
				res = next.Generate(ctx, req)
				res.Attempts = i
				if res.OK() || !res.Err.Retryable() || i == attempts {
					return res
				}
				if ctx.Err() != nil {
					res.Err = Canceled(ctx.Err())
					return res
				}
				d := p.Delay(i, res.Err)
				log.Printf("WARNING: generating %q: attempt %d/%d failed (%v), retrying in %s", req.NodeID, i, attempts, res.Err, d)
				if err := sleep(ctx, d); err != nil {
					res.Err = Canceled(err)
					return res
				}
			}
			return res
		})
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
