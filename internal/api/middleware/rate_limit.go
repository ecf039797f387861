package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qr-attendance/pkg/redis"
	"qr-attendance/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// onLimited: 超限时的响应，nil 时返回统一 JSON 错误
// rdb 为 nil 时降级放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration, onLimited gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("attendance:rate_limit:%s:%s", c.FullPath(), c.ClientIP())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			if onLimited != nil {
				onLimited(c)
			} else {
				response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			}
			c.Abort()
			return
		}

		c.Next()
	}
}
