package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"qr-attendance/config"
	"qr-attendance/internal/api/middleware"
	"qr-attendance/internal/dto"
	"qr-attendance/internal/service"
	"qr-attendance/pkg/dailykey"
	"qr-attendance/pkg/qr"
	"qr-attendance/pkg/response"
)

const msgInvalidCredentials = "Invalid credentials"

// AdminHandler 管理员模块 HTTP 处理器
type AdminHandler struct {
	cfg       *config.Config
	adminSvc  service.AdminService
	exportSvc service.ExportService
	keys      *dailykey.Deriver
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(cfg *config.Config, adminSvc service.AdminService, exportSvc service.ExportService, keys *dailykey.Deriver) *AdminHandler {
	return &AdminHandler{cfg: cfg, adminSvc: adminSvc, exportSvc: exportSvc, keys: keys}
}

// LoginPage 登录页（已通过 DailyKeyGate）
// GET /admin?key=xxx
func (h *AdminHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "admin.html", gin.H{})
}

// Login 管理员登录
// POST /admin  form: username, password
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "admin.html", gin.H{"Error": msgInvalidCredentials})
		return
	}

	session, err := h.adminSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.HTML(http.StatusUnauthorized, "admin.html", gin.H{"Error": msgInvalidCredentials})
			return
		}
		renderInternalError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token, int(h.cfg.Admin.SessionTTL.Seconds()))
	c.Redirect(http.StatusFound, "/dashboard")
}

// LoginLimited 登录尝试超限时的响应
func (h *AdminHandler) LoginLimited(c *gin.Context) {
	c.HTML(http.StatusTooManyRequests, "admin.html", gin.H{"Error": "Too many login attempts. Please try again later."})
}

// Dashboard 签到记录总览
// GET /dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	records, err := h.adminSvc.ListRecords(c.Request.Context())
	if err != nil {
		renderInternalError(c, err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{"Records": records})
}

// Records 签到记录 JSON
// GET /api/v1/records
func (h *AdminHandler) Records(c *gin.Context) {
	records, err := h.adminSvc.ListRecords(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, records)
}

// DownloadLedger 下载原始流水 CSV
// GET /download-attendance
func (h *AdminHandler) DownloadLedger(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.exportSvc.DownloadLedger(c.Request.Context(), &buf); err != nil {
		renderInternalError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+service.LedgerFilename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// DownloadWorkbook 下载 Excel 格式的签到记录
// GET /download-attendance.xlsx
func (h *AdminHandler) DownloadWorkbook(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportWorkbook(c.Request.Context())
	if err != nil {
		renderInternalError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// QRCode 当日签到二维码
// GET /qr.png
func (h *AdminHandler) QRCode(c *gin.Context) {
	png, err := qr.EncodePNG(qr.CheckinURL(h.cfg.Server.BaseURL, h.keys.Current()), h.cfg.QR.Size)
	if err != nil {
		renderInternalError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Logout 管理员登出
// GET /logout
func (h *AdminHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.AdminCookieName); err == nil {
		if err := h.adminSvc.Logout(c.Request.Context(), token); err != nil {
			c.Error(err)
		}
	}

	h.setSessionCookie(c, "", -1)
	c.Redirect(http.StatusFound, "/?key="+h.keys.Current())
}

func (h *AdminHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AdminCookieName, value, maxAge, "/", h.cfg.Admin.Cookie.Domain, h.cfg.Admin.Cookie.Secure, true)
}
