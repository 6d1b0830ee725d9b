package providers

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/findit-engine/findit/internal/metrics"
)

// TokenBucketLimiter wraps golang.org/x/time/rate as a RateLimiter,
// configured in requests per minute rather than per second since provider
// quotas are almost always published as RPM.
type TokenBucketLimiter struct {
	name    string
	limiter *rate.Limiter
}

// NewTokenBucketLimiter creates a limiter allowing rpm requests per minute,
// with a burst of burst requests.
func NewTokenBucketLimiter(name string, rpm int, burst int) *TokenBucketLimiter {
	if rpm < 1 {
		rpm = 1
	}
	if burst < 1 {
		burst = 1
	}
	perSecond := rate.Limit(float64(rpm) / 60.0)
	return &TokenBucketLimiter{name: name, limiter: rate.NewLimiter(perSecond, burst)}
}

// Acquire blocks until a token is available or ctx is cancelled.
func (l *TokenBucketLimiter) Acquire(ctx context.Context) error {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	metrics.RateLimiterWaitDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
	return err
}
