package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/joshua-takyi/homeswift/internal/metrics"
	"github.com/joshua-takyi/homeswift/internal/models"
)

const rateLimitNamespace = "homeswift:ratelimit"

// RateLimiter allows limit requests per client per fixed window, counted in
// Redis. Clients are keyed by user id when authenticated, else by IP. When
// Redis is missing or failing, requests pass.
func RateLimiter(rdb *redis.Client, limit int, window time.Duration, keyPrefix string, m *metrics.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		clientID := "ip:" + c.ClientIP()
		if p := CurrentUser(c); p != nil {
			clientID = "uid:" + p.UserID.String()
		}
		key := rateLimitNamespace + ":" + keyPrefix + ":" + clientID

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		count, ttl, err := incrWithExpire(ctx, rdb, key, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		reset := strconv.Itoa(int((ttl + time.Second - 1) / time.Second))
		remaining := max(limit-int(count), 0)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", reset)

		if count > int64(limit) {
			m.RecordRateLimited(keyPrefix)
			c.Header("Retry-After", reset)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse("too many requests, try again in "+ttl.Round(time.Second).String()))
			return
		}
		c.Next()
	}
}

// incrWithExpire bumps a counter and reads its TTL in one transaction. A
// counter left without an expiry, whoever created it, gets the window
// applied again so it cannot block a client forever.
func incrWithExpire(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	}); err != nil {
		return 0, 0, err
	}
	if ttl.Val() >= 0 {
		return incr.Val(), ttl.Val(), nil
	}
	if err := rdb.Expire(ctx, key, window).Err(); err != nil {
		return 0, 0, err
	}
	return incr.Val(), window, nil
}
