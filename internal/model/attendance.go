package model

import (
	"fmt"
	"time"
)

// CheckinKind 签到类型（取值即文件/表单中的原文）
type CheckinKind string

const (
	MorningCheckIn CheckinKind = "Morning Check-In"
	LunchCheckIn   CheckinKind = "Lunch Break Check-In"
)

// ParseCheckinKind 解析表单 action 字段
func ParseCheckinKind(s string) (CheckinKind, bool) {
	switch CheckinKind(s) {
	case MorningCheckIn, LunchCheckIn:
		return CheckinKind(s), true
	}
	return "", false
}

// AttendanceStatus 早签到状态，午间签到为空
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusLate    AttendanceStatus = "Late"
	StatusAbsent  AttendanceStatus = "Absent"
	StatusNone    AttendanceStatus = ""
)

// AttendanceEvent 签到流水，对应 attendance_events / attendance.csv 的一行
// 追加后不可修改
type AttendanceEvent struct {
	ID          int64            `gorm:"primaryKey;autoIncrement"          json:"-"`
	Date        string           `gorm:"type:varchar(10);not null"         json:"date"` // YYYY-MM-DD
	StudentName string           `gorm:"type:varchar(200);not null"        json:"name"`
	Kind        CheckinKind      `gorm:"type:varchar(40);not null"         json:"type"`
	Time        string           `gorm:"type:varchar(5);not null"          json:"time"` // HH:MM
	Status      AttendanceStatus `gorm:"type:varchar(10);not null;default:''" json:"status"`
	CreatedAt   time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName 指定表名
func (AttendanceEvent) TableName() string { return "attendance_events" }

// Row 转为 CSV 行：date, name, kind, time, status
func (e AttendanceEvent) Row() []string {
	return []string{e.Date, e.StudentName, string(e.Kind), e.Time, string(e.Status)}
}

// CheckinState 某学生当日签到状态
type CheckinState struct {
	Morning bool `json:"morning"`
	Lunch   bool `json:"lunch"`
}

// Has 指定类型是否已签到
func (s CheckinState) Has(kind CheckinKind) bool {
	switch kind {
	case MorningCheckIn:
		return s.Morning
	case LunchCheckIn:
		return s.Lunch
	}
	return false
}

// Mark 标记指定类型已签到
func (s *CheckinState) Mark(kind CheckinKind) {
	switch kind {
	case MorningCheckIn:
		s.Morning = true
	case LunchCheckIn:
		s.Lunch = true
	}
}

// Complete 当日两次签到均已完成
func (s CheckinState) Complete() bool {
	return s.Morning && s.Lunch
}

// MorningCutoffs 早签到判定边界（当日分钟数，均含边界）
//
//	t <= Present        → Present
//	Present < t <= Late → Late
//	t > Late            → Absent
type MorningCutoffs struct {
	Present int
	Late    int
}

// ParseCutoffs 解析 HH:MM 形式的截止时间
func ParseCutoffs(present, late string) (MorningCutoffs, error) {
	p, err := time.Parse("15:04", present)
	if err != nil {
		return MorningCutoffs{}, fmt.Errorf("解析截止时间 %q 失败: %w", present, err)
	}
	l, err := time.Parse("15:04", late)
	if err != nil {
		return MorningCutoffs{}, fmt.Errorf("解析截止时间 %q 失败: %w", late, err)
	}
	return MorningCutoffs{
		Present: p.Hour()*60 + p.Minute(),
		Late:    l.Hour()*60 + l.Minute(),
	}, nil
}

// Classify 按分钟精度判定早签到状态
func (c MorningCutoffs) Classify(t time.Time) AttendanceStatus {
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes <= c.Present:
		return StatusPresent
	case minutes <= c.Late:
		return StatusLate
	default:
		return StatusAbsent
	}
}
