package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qr-attendance/pkg/dailykey"
)

// DailyKeyGate 每日密钥校验中间件
// 出示的 key 与当日密钥不符时，重定向到同一路径并替换为当日密钥，其余查询参数保持不变。
// 当天的旧链接与跨天的过期链接都会被自动修正，无需重新扫码。
func DailyKeyGate(keys *dailykey.Deriver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keys.Valid(c.Query("key")) {
			c.Next()
			return
		}

		q := c.Request.URL.Query()
		q.Set("key", keys.Current())
		target := *c.Request.URL
		target.RawQuery = q.Encode()

		c.Redirect(http.StatusFound, target.RequestURI())
		c.Abort()
	}
}
