package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimiterConfig configures the fixed-window limiter
type RateLimiterConfig struct {
	Client    redis.Cmdable
	Limit     int
	Window    time.Duration
	KeyPrefix string
	// Extractor keys the counter; defaults to the client IP as resolved by
	// gin, which honours forwarding headers only from trusted proxies
	Extractor func(c *gin.Context) string
	Logger    logrus.FieldLogger
}

// NewRateLimiter counts requests per client in Redis and answers 429 once
// Limit is exceeded within Window. When Redis is unreachable requests pass.
func NewRateLimiter(cfg RateLimiterConfig) gin.HandlerFunc {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cnc:rl:"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = func(c *gin.Context) string {
			return c.ClientIP()
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := cfg.Extractor(c)
		if id == "" {
			id = "anonymous"
		}
		key := cfg.KeyPrefix + id

		count, err := cfg.Client.Incr(ctx, key).Result()
		if err != nil {
			cfg.Logger.WithError(err).Debug("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if count == 1 {
			if err := cfg.Client.Expire(ctx, key, cfg.Window).Err(); err != nil {
				// A counter without a TTL would block the client for good
				cfg.Logger.WithError(err).Warn("failed to start rate limit window, resetting counter")
				if err := cfg.Client.Del(ctx, key).Err(); err != nil {
					cfg.Logger.WithError(err).Warn("failed to reset rate limit counter")
				}
			}
		}

		reset := 0
		ttl, err := cfg.Client.TTL(ctx, key).Result()
		switch {
		case err != nil:
		case ttl > 0:
			reset = int(ttl.Seconds())
		case ttl == -1:
			// Key exists without expiry; restart the window
			if err := cfg.Client.Expire(ctx, key, cfg.Window).Err(); err == nil {
				reset = int(cfg.Window.Seconds())
			}
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.Limit))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

		if count > int64(cfg.Limit) {
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate limit exceeded",
				"rate_limit":        cfg.Limit,
				"rate_limit_window": cfg.Window.String(),
				"retry_after_sec":   reset,
			})
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", cfg.Limit-int(count)))
		c.Next()
	}
}
