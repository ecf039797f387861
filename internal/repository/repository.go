package repository

import (
	"gorm.io/gorm"

	"qr-attendance/config"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Ledger LedgerRepository
	Roster RosterRepository
}

// NewRepository 创建 Repository 聚合
// db 仅在 ledger.driver=postgres 时使用，其余情况可为 nil
func NewRepository(cfg *config.Config, db *gorm.DB) *Repository {
	var ledger LedgerRepository
	switch cfg.Ledger.Driver {
	case "postgres":
		ledger = NewGormLedgerRepo(db)
	default:
		ledger = NewCSVLedgerRepo(cfg.Attendance.LedgerFile)
	}

	return &Repository{
		Ledger: ledger,
		Roster: NewCSVRosterRepo(cfg.Attendance.RosterFile),
	}
}
