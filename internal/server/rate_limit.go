package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ridepay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ridepay/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonUserRate = "user_rate"

// UserRateLimit throttles rider traffic per user. It is a no-op without
// redis.
func (s *Server) UserRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		user, ok := s.currentUser(c)
		if !ok {
			c.Next()
			return
		}

		res, allowed := s.limiter.Allow(c.Request.Context(), user.UserID)
		if res != nil {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !allowed {
			retryAfter := 1
			if res != nil && res.RetryAfter.Seconds() > 1 {
				retryAfter = int(res.RetryAfter.Seconds())
			}
			denyRateLimit(c, normalizeRateLimitEndpoint(c), rateLimitReasonUserRate, retryAfter, s.obsMetrics)
			return
		}
		c.Next()
	}
}

func denyRateLimit(c *gin.Context, endpoint, reason string, retryAfter int, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
