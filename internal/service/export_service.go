package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"qr-attendance/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// LedgerFilename 原始流水下载文件名
const LedgerFilename = "attendance.csv"

// ExportService 导出业务接口
//
//   - DownloadLedger 原样输出流水 CSV
//   - ExportWorkbook 将完整记录整理为 .xlsx，由 Handler 设置下载响应头
type ExportService interface {
	DownloadLedger(ctx context.Context, w io.Writer) error
	ExportWorkbook(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, now func() time.Time, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, now: now, logger: logger}
}

func (s *exportService) DownloadLedger(ctx context.Context, w io.Writer) error {
	if err := s.repo.Ledger.Export(ctx, w); err != nil {
		s.logger.Error("导出原始流水失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *exportService) ExportWorkbook(ctx context.Context) (*bytes.Buffer, string, error) {
	events, err := s.repo.Ledger.List(ctx)
	if err != nil {
		s.logger.Error("读取签到流水失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Attendance"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "C", 22)
	f.SetColWidth(sheet, "D", "E", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []interface{}{"Date", "Name", "Type", "Time", "Status"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetCellStyle(sheet, "A1", "E1", headerStyle)
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, e := range events {
		row := []interface{}{e.Date, e.StudentName, string(e.Kind), e.Time, string(e.Status)}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			s.logger.Error("写入 Excel 行失败", zap.Int("row", i+2), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("attendance_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}
