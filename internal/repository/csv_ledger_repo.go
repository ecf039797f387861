package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"qr-attendance/internal/model"
)

// csvLedgerRepo LedgerRepository 的 CSV 文件实现
// 行格式：date, name, kind, time, status；无表头；文件不存在视为空流水
type csvLedgerRepo struct {
	path string
	mu   sync.RWMutex
}

// NewCSVLedgerRepo 创建基于 CSV 文件的 LedgerRepository
func NewCSVLedgerRepo(path string) LedgerRepository {
	return &csvLedgerRepo{path: path}
}

func (r *csvLedgerRepo) Append(ctx context.Context, event *model.AttendanceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("打开流水文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(event.Row()); err != nil {
		return fmt.Errorf("写入流水失败: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("写入流水失败: %w", err)
	}
	return nil
}

func (r *csvLedgerRepo) Scan(ctx context.Context, filter EventFilter) ([]model.AttendanceEvent, error) {
	var events []model.AttendanceEvent
	err := r.readRows(ctx, func(row []string) {
		if len(row) < 3 {
			return
		}
		e := eventFromRow(row)
		if filter.Match(e) {
			events = append(events, e)
		}
	})
	return events, err
}

func (r *csvLedgerRepo) List(ctx context.Context) ([]model.AttendanceEvent, error) {
	var events []model.AttendanceEvent
	err := r.readRows(ctx, func(row []string) {
		if len(row) != 5 {
			return
		}
		events = append(events, eventFromRow(row))
	})
	return events, err
}

func (r *csvLedgerRepo) Export(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("打开流水文件失败: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("导出流水失败: %w", err)
	}
	return nil
}

// readRows 逐行读取流水文件，列数不固定的行交由 fn 自行过滤
func (r *csvLedgerRepo) readRows(ctx context.Context, fn func(row []string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("打开流水文件失败: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("解析流水文件失败: %w", err)
		}
		fn(row)
	}
}

func eventFromRow(row []string) model.AttendanceEvent {
	e := model.AttendanceEvent{
		Date:        row[0],
		StudentName: row[1],
		Kind:        model.CheckinKind(row[2]),
	}
	if len(row) > 3 {
		e.Time = row[3]
	}
	if len(row) > 4 {
		e.Status = model.AttendanceStatus(row[4])
	}
	return e
}
