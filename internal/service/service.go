package service

import (
	"go.uber.org/zap"

	"qr-attendance/config"
	"qr-attendance/internal/model"
	"qr-attendance/internal/repository"
	"qr-attendance/pkg/dailykey"
	"qr-attendance/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Checkin CheckinService
	Admin   AdminService
	Export  ExportService
}

// NewService 创建 Service 聚合
// blacklist 为 nil 表示 Redis 不可用，登出后会话仅依赖 Cookie 清除
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	keys *dailykey.Deriver,
	roster []string,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) (*Service, error) {
	cutoffs, err := model.ParseCutoffs(cfg.Attendance.PresentCutoff, cfg.Attendance.LateCutoff)
	if err != nil {
		return nil, err
	}

	return &Service{
		Checkin: NewCheckinService(repo, keys, cutoffs, roster, logger),
		Admin:   NewAdminService(&cfg.Admin, repo, jwtMgr, blacklist, logger),
		Export:  NewExportService(repo, keys.Today, logger),
	}, nil
}
