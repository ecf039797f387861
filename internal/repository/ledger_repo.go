package repository

import (
	"context"
	"io"

	"qr-attendance/internal/model"
)

// EventFilter 流水查询条件，零值字段表示不限
type EventFilter struct {
	Date        string
	StudentName string
}

// Match 判断事件是否满足条件
func (f EventFilter) Match(e model.AttendanceEvent) bool {
	if f.Date != "" && e.Date != f.Date {
		return false
	}
	if f.StudentName != "" && e.StudentName != f.StudentName {
		return false
	}
	return true
}

// LedgerRepository 签到流水数据访问接口（只追加，不修改不删除）
type LedgerRepository interface {
	// Append 追加一条签到事件
	Append(ctx context.Context, event *model.AttendanceEvent) error
	// Scan 按追加顺序返回满足条件的事件（至少含日期、姓名、类型三列）
	Scan(ctx context.Context, filter EventFilter) ([]model.AttendanceEvent, error)
	// List 按追加顺序返回全部完整（五列）事件
	List(ctx context.Context) ([]model.AttendanceEvent, error)
	// Export 将原始流水以 CSV 写出
	Export(ctx context.Context, w io.Writer) error
}
