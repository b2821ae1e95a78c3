package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ghichu/ghichu/pkg/logger"
	"github.com/ghichu/ghichu/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every replica.
// Counters live under rl:<scope>:<key>:<window>. Each window admits
// floor(rps*window)+burst requests. When Redis cannot be reached the request
// is judged by an in-process token bucket instead.
func RedisRateLimitMiddleware(client *redis.Client, scope string, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	fallback := RateLimitMiddleware(rps, burst)
	if client == nil {
		return fallback
	}
	secs := int64(window / time.Second)
	if secs <= 0 {
		secs = 1
	}
	limit := int64(rps*float64(secs)) + int64(burst)
	log := logger.Named("ratelimit")
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := time.Now().Unix()
		key := "rl:" + scope + ":" + limiterKey(c) + ":" + strconv.FormatInt(now/secs, 10)

		var incr *redis.IntCmd
		_, err := client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			incr = p.Incr(ctx, key)
			p.Expire(ctx, key, time.Duration(secs+1)*time.Second)
			return nil
		})
		if err != nil {
			log.Warnf("redis limiter unavailable, using local bucket: %v", err)
			fallback(c)
			return
		}
		n := incr.Val()
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		if n > limit {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.FormatInt(secs-now%secs, 10))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(limit-n, 10))
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
