package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"qr-attendance/config"
	"qr-attendance/internal/api/handler"
	"qr-attendance/internal/repository"
	"qr-attendance/internal/service"
	"qr-attendance/pkg/dailykey"
	"qr-attendance/pkg/jwt"
)

func setupTestRouter(t *testing.T) (http.Handler, *dailykey.Deriver) {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://localhost:5000"
	cfg.Attendance.PresentCutoff = "09:45"
	cfg.Attendance.LateCutoff = "10:30"
	cfg.Attendance.RosterFile = dir + "/students.csv"
	cfg.Attendance.LedgerFile = dir + "/attendance.csv"
	cfg.Ledger.Driver = "csv"
	cfg.Admin = config.AdminConfig{
		Username:    "admin",
		JWTSecret:   "test-secret-key-for-unit-testing-2026",
		SessionTTL:  time.Hour,
		LoginLimit:  5,
		LoginWindow: 15 * time.Minute,
	}
	cfg.Session = config.SessionConfig{Name: "attendance_session", Secret: "test-session-secret-2026"}
	cfg.QR.Size = 128

	keys := dailykey.NewDeriver("test-salt-for-unit-testing-2026", time.UTC)
	repo := repository.NewRepository(cfg, nil)
	jwtMgr := jwt.NewManager(&cfg.Admin)

	svc, err := service.NewService(cfg, repo, keys, nil, jwtMgr, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService 失败: %v", err)
	}
	h := handler.NewHandler(cfg, svc, keys)
	return Setup(cfg, h, svc.Admin, keys, nil, zap.NewNop()), keys
}

func TestRouter_Health(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("健康检查失败: %d %s", w.Code, w.Body.String())
	}
}

func TestRouter_GatesAndAuth(t *testing.T) {
	r, keys := setupTestRouter(t)

	cases := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantLoc  string
	}{
		{"签到页无密钥", http.MethodGet, "/", http.StatusFound, "/?key=" + keys.Current()},
		{"签到页有效密钥", http.MethodGet, "/?key=" + keys.Current(), http.StatusOK, ""},
		{"登录页无密钥", http.MethodGet, "/admin", http.StatusFound, "/admin?key=" + keys.Current()},
		{"未登录访问看板", http.MethodGet, "/dashboard", http.StatusFound, "/admin?key=" + keys.Current()},
		{"未登录下载", http.MethodGet, "/download-attendance", http.StatusFound, "/admin?key=" + keys.Current()},
		{"未登录 API", http.MethodGet, "/api/v1/records", http.StatusUnauthorized, ""},
		{"登出", http.MethodGet, "/logout", http.StatusFound, "/?key=" + keys.Current()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if w.Code != tc.wantCode {
				t.Fatalf("期望 %d，实际 %d", tc.wantCode, w.Code)
			}
			if tc.wantLoc != "" && w.Header().Get("Location") != tc.wantLoc {
				t.Errorf("期望跳转 %s，实际 %s", tc.wantLoc, w.Header().Get("Location"))
			}
		})
	}
}
