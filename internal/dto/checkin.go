package dto

import "qr-attendance/internal/model"

// ── 签到模块 DTO ──

// SubmitRequest 签到提交表单
type SubmitRequest struct {
	Student string `form:"student" binding:"required"`
	Action  string `form:"action"  binding:"required"`
	Key     string `form:"key"`
}

// SubmitOutcome 签到提交结果
type SubmitOutcome string

const (
	OutcomeRecorded        SubmitOutcome = "recorded"
	OutcomeAlreadyRecorded SubmitOutcome = "already_recorded"
)

// SubmitResult 签到提交结果
type SubmitResult struct {
	Outcome     SubmitOutcome          `json:"outcome"`
	Kind        model.CheckinKind      `json:"kind"`
	DisplayTime string                 `json:"display_time,omitempty"` // 03:04 PM
	Event       *model.AttendanceEvent `json:"event,omitempty"`
}

// Message 面向学生的提示语
func (r *SubmitResult) Message() string {
	if r.Outcome == OutcomeAlreadyRecorded {
		return "Your " + string(r.Kind) + " is already recorded."
	}
	return "Your " + string(r.Kind) + " is recorded at " + r.DisplayTime
}

// CheckinOverview 首页所需数据
type CheckinOverview struct {
	Students []string           `json:"students"`
	Selected string             `json:"selected"`
	State    model.CheckinState `json:"state"`
	Weekday  string             `json:"weekday"`
	Date     string             `json:"date"`
}
