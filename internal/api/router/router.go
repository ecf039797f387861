package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qr-attendance/config"
	"qr-attendance/internal/api/handler"
	"qr-attendance/internal/api/middleware"
	"qr-attendance/pkg/dailykey"
	"qr-attendance/pkg/redis"
	"qr-attendance/web"
)

// maxFormBytes 表单请求体上限
const maxFormBytes = 64 << 10

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时登录限流降级关闭
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	authn middleware.SessionAuthenticator,
	keys *dailykey.Deriver,
	rdb *redis.Client,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.SetHTMLTemplate(web.Templates())

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxFormBytes))

	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   0,
		Secure:   cfg.Admin.Cookie.Secure,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions(cfg.Session.Name, store))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── 签到页（需当日密钥，过期时自动跳转） ──
	r.GET("/", middleware.DailyKeyGate(keys), h.Checkin.Index)
	r.POST("/submit", h.Checkin.Submit)

	// ── 管理员 ──
	r.GET("/admin", middleware.DailyKeyGate(keys), h.Admin.LoginPage)
	r.POST("/admin",
		middleware.RateLimit(rdb, cfg.Admin.LoginLimit, cfg.Admin.LoginWindow, h.Admin.LoginLimited),
		h.Admin.Login,
	)
	r.GET("/logout", h.Admin.Logout)

	admin := r.Group("")
	admin.Use(middleware.AdminAuth(authn, keys))
	{
		admin.GET("/dashboard", h.Admin.Dashboard)
		admin.GET("/download-attendance", h.Admin.DownloadLedger)
		admin.GET("/download-attendance.xlsx", h.Admin.DownloadWorkbook)
		admin.GET("/qr.png", h.Admin.QRCode)
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		v1.GET("/checkin-state", h.Checkin.State)
		v1.GET("/records", middleware.AdminAPIAuth(authn), h.Admin.Records)
	}

	return r
}
