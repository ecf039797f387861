package handler

import (
	"qr-attendance/config"
	"qr-attendance/internal/service"
	"qr-attendance/pkg/dailykey"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Checkin *CheckinHandler
	Admin   *AdminHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, keys *dailykey.Deriver) *Handler {
	return &Handler{
		Checkin: NewCheckinHandler(svc.Checkin, keys),
		Admin:   NewAdminHandler(cfg, svc.Admin, svc.Export, keys),
	}
}
