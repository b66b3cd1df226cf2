package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/ridepay/internal/config"
	"go.uber.org/zap"
)

const keyAPIUser = "ridepay:api:user:%s"

// APILimiter throttles per-principal API traffic with a redis token bucket.
type APILimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

// NewAPILimiter returns nil when limiting is disabled or redis is absent.
func NewAPILimiter(cfg config.Config, bucket *TokenBucket, log *zap.Logger) *APILimiter {
	if !cfg.RateLimit.Enabled || bucket == nil {
		return nil
	}
	if cfg.RateLimit.UserRate <= 0 || cfg.RateLimit.UserBurst <= 0 {
		log.Warn("rate limit enabled with non-positive rate or burst, disabling")
		return nil
	}
	return &APILimiter{
		bucket: bucket,
		rate:   cfg.RateLimit.UserRate,
		burst:  cfg.RateLimit.UserBurst,
		log:    log.Named("ratelimit"),
	}
}

func (l *APILimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow fails open on redis errors.
func (l *APILimiter) Allow(ctx context.Context, subject string) (*RateLimitResult, bool) {
	if !l.Enabled() {
		return nil, true
	}
	key := fmt.Sprintf(keyAPIUser, strings.TrimSpace(subject))
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.Error(err))
		return nil, true
	}
	return res, res.Allowed
}
