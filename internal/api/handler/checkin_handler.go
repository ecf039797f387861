package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"qr-attendance/internal/dto"
	"qr-attendance/internal/service"
	"qr-attendance/pkg/dailykey"
	"qr-attendance/pkg/response"
)

const msgLinkExpired = "Your check-in link has expired. Please submit again."

// CheckinHandler 签到模块 HTTP 处理器
type CheckinHandler struct {
	checkinSvc service.CheckinService
	keys       *dailykey.Deriver
}

// NewCheckinHandler 创建 CheckinHandler
func NewCheckinHandler(checkinSvc service.CheckinService, keys *dailykey.Deriver) *CheckinHandler {
	return &CheckinHandler{checkinSvc: checkinSvc, keys: keys}
}

// Index 签到首页（已通过 DailyKeyGate）
// GET /?key=xxx&student=xxx
func (h *CheckinHandler) Index(c *gin.Context) {
	student := c.Query("student")

	overview, err := h.checkinSvc.Overview(c.Request.Context(), student)
	if err != nil {
		renderInternalError(c, err)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Overview": overview,
		"Key":      c.Query("key"),
		"Flashes":  popFlashes(c),
		"Complete": student != "" && overview.State.Complete(),
	})
}

// Submit 提交签到
// POST /submit  form: student, action, key
func (h *CheckinHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		renderError(c, http.StatusBadRequest, "Please select your name and a check-in type.")
		return
	}

	result, err := h.checkinSvc.Submit(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyMismatch):
			addFlash(c, msgLinkExpired)
			c.Redirect(http.StatusFound, indexURL(req.Student, h.keys.Current()))
		case errors.Is(err, service.ErrEmptyStudent), errors.Is(err, service.ErrInvalidCheckinKind):
			renderError(c, http.StatusBadRequest, "Please select your name and a check-in type.")
		default:
			renderInternalError(c, err)
		}
		return
	}

	addFlash(c, result.Message())
	c.Redirect(http.StatusFound, indexURL(req.Student, req.Key))
}

// State 查询当日签到状态
// GET /api/v1/checkin-state?student=xxx&key=xxx
func (h *CheckinHandler) State(c *gin.Context) {
	if !h.keys.Valid(c.Query("key")) {
		response.Forbidden(c, 12001, "签到链接已失效")
		return
	}

	state, err := h.checkinSvc.State(c.Request.Context(), c.Query("student"))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, state)
}

func indexURL(student, key string) string {
	q := url.Values{}
	q.Set("student", student)
	q.Set("key", key)
	return "/?" + q.Encode()
}
