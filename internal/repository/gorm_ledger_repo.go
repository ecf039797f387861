package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"gorm.io/gorm"

	"qr-attendance/internal/model"
	pkgerrors "qr-attendance/pkg/errors"
)

// gormLedgerRepo LedgerRepository 的 PostgreSQL 实现
// (date, student_name, kind) 唯一索引从存储层杜绝重复签到
type gormLedgerRepo struct {
	db *gorm.DB
}

// NewGormLedgerRepo 创建基于 GORM 的 LedgerRepository
func NewGormLedgerRepo(db *gorm.DB) LedgerRepository {
	return &gormLedgerRepo{db: db}
}

func (r *gormLedgerRepo) Append(ctx context.Context, event *model.AttendanceEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrDuplicateEvent
	}
	return err
}

func (r *gormLedgerRepo) Scan(ctx context.Context, filter EventFilter) ([]model.AttendanceEvent, error) {
	q := r.db.WithContext(ctx).Model(&model.AttendanceEvent{})
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.StudentName != "" {
		q = q.Where("student_name = ?", filter.StudentName)
	}

	var events []model.AttendanceEvent
	if err := q.Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *gormLedgerRepo) List(ctx context.Context) ([]model.AttendanceEvent, error) {
	var events []model.AttendanceEvent
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *gormLedgerRepo) Export(ctx context.Context, w io.Writer) error {
	events, err := r.List(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	for _, e := range events {
		if err := cw.Write(e.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
