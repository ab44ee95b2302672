package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/zcheck/blogpipe/pkg/logger"
	"github.com/zcheck/blogpipe/pkg/metrics"
)

const redisKeyPrefix = "blogpipe:rl:"

// RedisRateLimitMiddleware enforces a fixed-window limit shared by every replica.
// Each caller, as chosen by key (see RateLimitMiddleware), may make floor(rps*window)+burst
// requests per window. A nil client falls back to the in-memory token bucket; an unreachable
// Redis lets requests through.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst, key)
	}
	if key == nil {
		key = rateKey
	}
	if window < time.Second {
		window = time.Second
	}
	windowSeconds := int64(window / time.Second)
	limit := int64(rps*float64(windowSeconds)) + int64(burst)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := time.Now().Unix()
		bucket := now / windowSeconds
		key := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key(c), bucket)

		var incr *redis.IntCmd
		_, err := client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			incr = p.Incr(ctx, key)
			p.Expire(ctx, key, window+time.Second)
			return nil
		})
		if err != nil {
			logger.Warnf("rate limit check failed, allowing request: %v", err)
			c.Next()
			return
		}

		count := incr.Val()
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(limit-count, 0), 10))
		if count > limit {
			reset := (bucket+1)*windowSeconds - now
			c.Header("Retry-After", strconv.FormatInt(max(reset, 1), 10))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
