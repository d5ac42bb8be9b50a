package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chirp-social/chirp/pkg/cache"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/gin-gonic/gin"
)

// NewRateLimit 基于redis的固定窗口限流，按认证用户限，匿名按客户端IP限。
// redis不可用时放行
func NewRateLimit(cache *cache.RedisClient, log *logger.Logger, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || maxRequests <= 0 {
			c.Next()
			return
		}

		identity := GetUserID(c)
		if identity == "" {
			identity = c.ClientIP()
		}
		key := fmt.Sprintf("ratelimit:%s:%d", identity, time.Now().Unix()/int64(window.Seconds()))

		count, err := cache.IncrBy(c.Request.Context(), key, 1)
		if err != nil {
			log.WithError(err).Warn("Rate limit check failed")
			c.Next()
			return
		}
		if count == 1 {
			if err := cache.Expire(c.Request.Context(), key, window); err != nil {
				log.WithError(err).Warn("Failed to set rate limit expiry")
			}
		}

		if count > int64(maxRequests) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "RATE_LIMITED",
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}
