package dto

import "time"

// ── 管理员模块 DTO ──

// AdminLoginRequest 管理员登录表单
type AdminLoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// AdminSession 登录成功后签发的会话
type AdminSession struct {
	Token     string
	ExpiresAt time.Time
}

// AttendanceRecord 管理端展示的签到记录
type AttendanceRecord struct {
	Date   string `json:"date"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Time   string `json:"time"`
	Status string `json:"status"`
}
