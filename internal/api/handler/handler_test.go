package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"qr-attendance/config"
	"qr-attendance/internal/api/middleware"
	"qr-attendance/internal/dto"
	"qr-attendance/internal/model"
	"qr-attendance/internal/service"
	"qr-attendance/pkg/dailykey"
	"qr-attendance/pkg/jwt"
	"qr-attendance/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── Mock Services ──

type mockCheckinService struct {
	overview  *dto.CheckinOverview
	state     model.CheckinState
	result    *dto.SubmitResult
	err       error
	submitted []*dto.SubmitRequest
}

func (m *mockCheckinService) Overview(_ context.Context, student string) (*dto.CheckinOverview, error) {
	if m.err != nil {
		return nil, m.err
	}
	o := *m.overview
	o.Selected = student
	return &o, nil
}

func (m *mockCheckinService) State(_ context.Context, _ string) (model.CheckinState, error) {
	return m.state, m.err
}

func (m *mockCheckinService) Submit(_ context.Context, req *dto.SubmitRequest) (*dto.SubmitResult, error) {
	m.submitted = append(m.submitted, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockAdminService struct {
	token     string
	records   []dto.AttendanceRecord
	loggedOut []string
	listErr   error
}

func (m *mockAdminService) Login(_ context.Context, req *dto.AdminLoginRequest) (*dto.AdminSession, error) {
	if req.Username != "admin" || req.Password != "password123" {
		return nil, service.ErrInvalidCredentials
	}
	return &dto.AdminSession{Token: m.token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAdminService) Authenticate(_ context.Context, token string) (*jwt.Claims, error) {
	if token != m.token {
		return nil, service.ErrSessionInvalid
	}
	return &jwt.Claims{Username: "admin"}, nil
}

func (m *mockAdminService) Logout(_ context.Context, token string) error {
	m.loggedOut = append(m.loggedOut, token)
	return nil
}

func (m *mockAdminService) ListRecords(_ context.Context) ([]dto.AttendanceRecord, error) {
	return m.records, m.listErr
}

type mockExportService struct{}

func (mockExportService) DownloadLedger(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, "2024-05-01,Alice,Morning Check-In,09:30,Present\n")
	return err
}

func (mockExportService) ExportWorkbook(_ context.Context) (*bytes.Buffer, string, error) {
	return bytes.NewBufferString("PK"), "attendance_20240501.xlsx", nil
}

// ── 测试辅助 ──

type testEnv struct {
	router  *gin.Engine
	keys    *dailykey.Deriver
	checkin *mockCheckinService
	admin   *mockAdminService
}

func setupTestEnv() *testEnv {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	keys := dailykey.NewDeriver("test-salt-for-unit-testing-2026", time.UTC).WithClock(func() time.Time { return now })

	cfg := &config.Config{}
	cfg.Server.BaseURL = "https://attendance.example.com"
	cfg.Admin.SessionTTL = time.Hour
	cfg.QR.Size = 128

	checkinSvc := &mockCheckinService{
		overview: &dto.CheckinOverview{Students: []string{"Alice", "Bob"}, Weekday: "Wednesday", Date: "01-May-2024"},
	}
	adminSvc := &mockAdminService{token: "session-token"}
	h := &Handler{
		Checkin: NewCheckinHandler(checkinSvc, keys),
		Admin:   NewAdminHandler(cfg, adminSvc, mockExportService{}, keys),
	}

	r := gin.New()
	r.SetHTMLTemplate(web.Templates())
	r.Use(sessions.Sessions("attendance_session", cookie.NewStore([]byte("test-session-secret-2026"))))

	r.GET("/", middleware.DailyKeyGate(keys), h.Checkin.Index)
	r.POST("/submit", h.Checkin.Submit)
	r.GET("/api/v1/checkin-state", h.Checkin.State)
	r.GET("/admin", middleware.DailyKeyGate(keys), h.Admin.LoginPage)
	r.POST("/admin", h.Admin.Login)
	r.GET("/logout", h.Admin.Logout)

	authed := r.Group("")
	authed.Use(middleware.AdminAuth(adminSvc, keys))
	authed.GET("/dashboard", h.Admin.Dashboard)
	authed.GET("/download-attendance", h.Admin.DownloadLedger)
	authed.GET("/download-attendance.xlsx", h.Admin.DownloadWorkbook)
	authed.GET("/qr.png", h.Admin.QRCode)

	return &testEnv{router: r, keys: keys, checkin: checkinSvc, admin: adminSvc}
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ── 签到页 ──

func TestIndex_RendersRoster(t *testing.T) {
	env := setupTestEnv()

	w := env.do(httptest.NewRequest(http.MethodGet, "/?key="+env.keys.Current(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Alice", "Bob", "Wednesday, 01-May-2024"} {
		if !strings.Contains(body, want) {
			t.Errorf("页面缺少 %q", want)
		}
	}
	if strings.Contains(body, `action="/submit"`) {
		t.Error("未选择学生时不应展示签到按钮")
	}
}

func TestIndex_CompleteDisablesButtons(t *testing.T) {
	env := setupTestEnv()
	env.checkin.overview.State = model.CheckinState{Morning: true, Lunch: true}

	w := env.do(httptest.NewRequest(http.MethodGet, "/?student=Alice&key="+env.keys.Current(), nil))
	body := w.Body.String()
	if !strings.Contains(body, "Your today&#39;s attendance is recorded") {
		t.Error("两次签到均完成时应展示完成提示")
	}
	if strings.Count(body, "disabled") != 2 {
		t.Errorf("两个签到按钮都应禁用，实际 %d 个", strings.Count(body, "disabled"))
	}
}

func TestIndex_StaleKeyRedirects(t *testing.T) {
	env := setupTestEnv()

	w := env.do(httptest.NewRequest(http.MethodGet, "/?student=Alice&key=stale", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("期望 302，实际 %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Location"), "key="+env.keys.Current()) {
		t.Errorf("应重定向到当日密钥，实际 %s", w.Header().Get("Location"))
	}
}

func TestIndex_ServiceError(t *testing.T) {
	env := setupTestEnv()
	env.checkin.err = errors.New("读取失败")

	w := env.do(httptest.NewRequest(http.MethodGet, "/?key="+env.keys.Current(), nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("期望 500，实际 %d", w.Code)
	}
}

// ── 提交签到 ──

func TestSubmit_FlashesAndRedirects(t *testing.T) {
	env := setupTestEnv()
	env.checkin.result = &dto.SubmitResult{Outcome: dto.OutcomeRecorded, Kind: model.MorningCheckIn, DisplayTime: "09:30 AM"}
	key := env.keys.Current()

	w := env.do(postForm("/submit", url.Values{"student": {"Alice"}, "action": {"Morning Check-In"}, "key": {key}}))
	if w.Code != http.StatusFound {
		t.Fatalf("期望 302，实际 %d", w.Code)
	}
	loc, _ := url.Parse(w.Header().Get("Location"))
	if loc.Query().Get("student") != "Alice" || loc.Query().Get("key") != key {
		t.Errorf("重定向地址不符: %s", loc)
	}
	if len(env.checkin.submitted) != 1 || env.checkin.submitted[0].Action != "Morning Check-In" {
		t.Fatalf("表单未正确传递给服务层: %+v", env.checkin.submitted)
	}

	session := findCookie(w, "attendance_session")
	if session == nil {
		t.Fatal("提交后应写入 flash 会话 Cookie")
	}
	w = env.do(httptest.NewRequest(http.MethodGet, loc.String(), nil), session)
	if !strings.Contains(w.Body.String(), "Your Morning Check-In is recorded at 09:30 AM") {
		t.Error("下一次页面渲染应展示 flash 提示")
	}
}

func TestSubmit_KeyMismatch(t *testing.T) {
	env := setupTestEnv()
	env.checkin.err = service.ErrKeyMismatch

	w := env.do(postForm("/submit", url.Values{"student": {"Alice"}, "action": {"Morning Check-In"}, "key": {"stale"}}))
	if w.Code != http.StatusFound {
		t.Fatalf("期望 302，实际 %d", w.Code)
	}
	loc, _ := url.Parse(w.Header().Get("Location"))
	if loc.Query().Get("key") != env.keys.Current() {
		t.Errorf("密钥过期应重定向到当日密钥，实际 %s", loc)
	}

	env.checkin.err = nil
	w = env.do(httptest.NewRequest(http.MethodGet, loc.String(), nil), findCookie(w, "attendance_session"))
	if !strings.Contains(w.Body.String(), "Your check-in link has expired") {
		t.Error("应提示签到链接已过期")
	}
}

func TestSubmit_BadRequest(t *testing.T) {
	env := setupTestEnv()

	w := env.do(postForm("/submit", url.Values{"action": {"Morning Check-In"}}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少 student 期望 400，实际 %d", w.Code)
	}

	env.checkin.err = service.ErrInvalidCheckinKind
	w = env.do(postForm("/submit", url.Values{"student": {"Alice"}, "action": {"Dinner"}}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("未知签到类型期望 400，实际 %d", w.Code)
	}
}

func TestState_API(t *testing.T) {
	env := setupTestEnv()
	env.checkin.state = model.CheckinState{Morning: true}

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/checkin-state?student=Alice&key=bad", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("无效密钥期望 403，实际 %d", w.Code)
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/checkin-state?student=Alice&key="+env.keys.Current(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"morning":true`) {
		t.Errorf("响应内容不符: %s", w.Body.String())
	}
}

// ── 管理员 ──

func TestAdminLogin(t *testing.T) {
	env := setupTestEnv()

	w := env.do(postForm("/admin", url.Values{"username": {"admin"}, "password": {"wrong"}}))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid credentials") {
		t.Errorf("错误密码期望 401 并提示，实际 %d", w.Code)
	}

	w = env.do(postForm("/admin", url.Values{"username": {"admin"}, "password": {"password123"}}))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("登录成功应重定向到 /dashboard，实际 %d %s", w.Code, w.Header().Get("Location"))
	}
	c := findCookie(w, middleware.AdminCookieName)
	if c == nil || c.Value != "session-token" || !c.HttpOnly {
		t.Fatalf("应写入 HttpOnly 会话 Cookie，实际 %+v", c)
	}
}

func TestDashboard(t *testing.T) {
	env := setupTestEnv()
	env.admin.records = []dto.AttendanceRecord{{Date: "2024-05-01", Name: "Alice", Type: "Morning Check-In", Time: "09:30", Status: "Present"}}

	w := env.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusFound {
		t.Errorf("未登录期望 302，实际 %d", w.Code)
	}

	adminCookie := &http.Cookie{Name: middleware.AdminCookieName, Value: "session-token"}
	w = env.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), adminCookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Alice") {
		t.Errorf("已登录应展示记录，实际 %d", w.Code)
	}

	env.admin.listErr = errors.New("读取失败")
	w = env.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), adminCookie)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("存储失败期望 500，实际 %d", w.Code)
	}
}

func TestDownloads(t *testing.T) {
	env := setupTestEnv()
	adminCookie := &http.Cookie{Name: middleware.AdminCookieName, Value: "session-token"}

	w := env.do(httptest.NewRequest(http.MethodGet, "/download-attendance", nil), adminCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=attendance.csv" {
		t.Errorf("Content-Disposition 不符: %s", got)
	}
	if !strings.HasPrefix(w.Body.String(), "2024-05-01,Alice") {
		t.Errorf("下载内容不符: %s", w.Body.String())
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/download-attendance.xlsx", nil), adminCookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Disposition"), "attendance_20240501.xlsx") {
		t.Errorf("xlsx 下载不符: %d %s", w.Code, w.Header().Get("Content-Disposition"))
	}
}

func TestQRCode(t *testing.T) {
	env := setupTestEnv()

	w := env.do(httptest.NewRequest(http.MethodGet, "/qr.png", nil), &http.Cookie{Name: middleware.AdminCookieName, Value: "session-token"})
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("期望 PNG，实际 %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("输出不是 PNG 格式")
	}
}

func TestLogout(t *testing.T) {
	env := setupTestEnv()

	w := env.do(httptest.NewRequest(http.MethodGet, "/logout", nil), &http.Cookie{Name: middleware.AdminCookieName, Value: "session-token"})
	if w.Code != http.StatusFound {
		t.Fatalf("期望 302，实际 %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/?key="+env.keys.Current() {
		t.Errorf("登出应回到签到页，实际 %s", loc)
	}
	if len(env.admin.loggedOut) != 1 || env.admin.loggedOut[0] != "session-token" {
		t.Errorf("应吊销当前会话，实际 %v", env.admin.loggedOut)
	}
	if c := findCookie(w, middleware.AdminCookieName); c == nil || c.MaxAge >= 0 {
		t.Errorf("应清除会话 Cookie，实际 %+v", c)
	}

	// 未登录也可直接登出
	w = env.do(httptest.NewRequest(http.MethodGet, "/logout", nil))
	if w.Code != http.StatusFound {
		t.Errorf("期望 302，实际 %d", w.Code)
	}
}
