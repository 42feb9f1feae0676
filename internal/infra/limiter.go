package infra

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every request to one upstream.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows perSecond requests per second with a burst of the
// same size (at least one). A non-positive rate means unlimited.
func NewRateLimiter(perSecond float64) *RateLimiter {
	if perSecond <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a token is available or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limiter wait")
	}
	return nil
}
