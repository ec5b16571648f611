package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/logger"
	"github.com/sportperformance/academy-api/pkg/response"
)

// RateLimitConfig tunes a single rate-limited route group.
type RateLimitConfig struct {
	Limit  int64
	Window time.Duration
}

// RateLimit throttles requests per client IP and route. It is an edge guard
// on top of the attempt lockout inside the OTP engine, not a replacement for
// it. Store failures fail open: throttling is best-effort.
func RateLimit(store RateStore, cfg RateLimitConfig) gin.HandlerFunc {
	log := logger.WithModule("http.ratelimit")

	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()

		count, err := store.Incr(c.Request.Context(), key, cfg.Window)
		if err != nil {
			log.Warn("rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}

		if count > cfg.Limit {
			response.Error(c, errs.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
