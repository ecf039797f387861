package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"qr-attendance/config"
	"qr-attendance/internal/dto"
	"qr-attendance/internal/repository"
	"qr-attendance/pkg/jwt"
)

// ── 管理员模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrSessionInvalid     = errors.New("管理员会话无效或已过期")
)

// TokenBlacklist 会话 Token 黑名单（Redis 实现，可为空）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AdminService 管理员业务接口
type AdminService interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminSession, error)
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
	Logout(ctx context.Context, token string) error
	ListRecords(ctx context.Context) ([]dto.AttendanceRecord, error)
}

type adminService struct {
	cfg       *config.AdminConfig
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAdminService 创建 AdminService 实例，blacklist 为 nil 时登出仅清除 Cookie
func NewAdminService(
	cfg *config.AdminConfig,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AdminService {
	return &adminService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *adminService) Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminSession, error) {
	// 用户名常量时间比较；无论用户名是否匹配都执行 bcrypt
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		s.logger.Warn("管理员登录失败", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtMgr.GenerateSessionToken(s.cfg.Username)
	if err != nil {
		s.logger.Error("生成管理员会话失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("管理员登录成功", zap.String("username", s.cfg.Username))
	return &dto.AdminSession{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwtMgr.TTL()),
	}, nil
}

func (s *adminService) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}
	claims, err := s.jwtMgr.ParseToken(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			// Redis 出错时降级放行
			s.logger.Warn("查询 Token 黑名单失败", zap.Error(err))
		} else if revoked {
			return nil, ErrSessionInvalid
		}
	}
	return claims, nil
}

func (s *adminService) Logout(ctx context.Context, token string) error {
	if s.blacklist == nil || token == "" {
		return nil
	}
	claims, err := s.jwtMgr.ParseToken(token)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Warn("Token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *adminService) ListRecords(ctx context.Context) ([]dto.AttendanceRecord, error) {
	events, err := s.repo.Ledger.List(ctx)
	if err != nil {
		s.logger.Error("读取签到流水失败", zap.Error(err))
		return nil, err
	}

	records := make([]dto.AttendanceRecord, 0, len(events))
	for _, e := range events {
		records = append(records, dto.AttendanceRecord{
			Date:   e.Date,
			Name:   e.StudentName,
			Type:   string(e.Kind),
			Time:   e.Time,
			Status: string(e.Status),
		})
	}
	return records, nil
}
