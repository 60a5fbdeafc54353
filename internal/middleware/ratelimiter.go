package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/gryadka/backend-go/internal/config"
)

// LoginRateLimiter throttles login attempts per client using a fixed window.
type LoginRateLimiter interface {
	// Allow counts one attempt for key. When the limit is exceeded it returns
	// false and the time left in the current window.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type redisLoginRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewLoginRateLimiter creates a Redis-backed login limiter
func NewLoginRateLimiter(client *redis.Client, cfg *config.Config, logger *slog.Logger) LoginRateLimiter {
	logger.Info("✅ [RateLimiter] Login rate limiting enabled",
		"limit", cfg.LoginRateLimit,
		"window", cfg.LoginRateWindow,
	)

	return &redisLoginRateLimiter{
		client: client,
		limit:  cfg.LoginRateLimit,
		window: cfg.LoginRateWindow,
		logger: logger,
	}
}

// loginKey generates the Redis key for a client's login counter
// Format: rate:login:{key}
func loginKey(key string) string {
	return fmt.Sprintf("rate:login:%s", key)
}

func (r *redisLoginRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if r.limit <= 0 {
		return true, 0, nil
	}

	redisKey := loginKey(key)

	// One MULTI: the counter can never exist without an expiry. NX keeps the
	// window fixed from the first attempt.
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, r.window)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}

	if incr.Val() <= r.limit {
		return true, 0, nil
	}

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		ttl = r.window
	}
	return false, ttl, nil
}

// NoOpRateLimiter is a rate limiter that always allows requests
// Used when Redis is not available
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a no-op rate limiter
func NewNoOpRateLimiter(logger *slog.Logger) LoginRateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op rate limiter - login throttling is disabled")
	return &NoOpRateLimiter{}
}

func (r *NoOpRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return true, 0, nil
}

// LimitLogin rejects clients over the login limit with 429. Limiter errors
// are logged and the request is allowed.
func LimitLogin(limiter LoginRateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Error("❌ [RateLimiter] Failed to check login limit", "error", err)
		}

		if !allowed {
			logger.Warn("⚠️ [RateLimiter] Login rate limit exceeded", "client_ip", c.ClientIP())
			seconds := int64(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts, try again later"})
			return
		}

		c.Next()
	}
}
