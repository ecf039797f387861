package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"qr-attendance/pkg/dailykey"
	"qr-attendance/pkg/jwt"
	"qr-attendance/pkg/response"
)

// AdminCookieName 管理员会话 Cookie 名称
const AdminCookieName = "admin_token"

// SessionAuthenticator 校验管理员会话 Token
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// AdminAuth 页面路由的管理员认证中间件，未登录时重定向到登录页
func AdminAuth(authn SessionAuthenticator, keys *dailykey.Deriver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, authn) {
			c.Redirect(http.StatusFound, "/admin?key="+keys.Current())
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminAPIAuth JSON 接口的管理员认证中间件
func AdminAPIAuth(authn SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, authn) {
			response.Unauthorized(c, 10002, "管理员未登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, authn SessionAuthenticator) bool {
	token, err := c.Cookie(AdminCookieName)
	if err != nil || token == "" {
		return false
	}
	claims, err := authn.Authenticate(c.Request.Context(), token)
	if err != nil {
		return false
	}

	c.Set("admin_username", claims.Username)
	c.Set("admin_token_jti", claims.ID)
	return true
}
