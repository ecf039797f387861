package service

import (
	"context"
	"encoding/csv"
	"io"
	"sync"
	"time"

	"qr-attendance/internal/model"
	"qr-attendance/internal/repository"
)

// ── Mock LedgerRepository ──

type mockLedgerRepo struct {
	mu        sync.Mutex
	events    []model.AttendanceEvent
	appendErr error
	scanErr   error
	// appendDelay 放大"查重 → 追加"之间的窗口，用于并发测试
	appendDelay time.Duration
}

func newMockLedgerRepo(events ...model.AttendanceEvent) *mockLedgerRepo {
	return &mockLedgerRepo{events: events}
}

func (m *mockLedgerRepo) Append(_ context.Context, event *model.AttendanceEvent) error {
	if m.appendDelay > 0 {
		time.Sleep(m.appendDelay)
	}
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *mockLedgerRepo) Scan(_ context.Context, filter repository.EventFilter) ([]model.AttendanceEvent, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceEvent
	for _, e := range m.events {
		if filter.Match(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockLedgerRepo) List(_ context.Context) ([]model.AttendanceEvent, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AttendanceEvent(nil), m.events...), nil
}

func (m *mockLedgerRepo) Export(_ context.Context, w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cw := csv.NewWriter(w)
	for _, e := range m.events {
		if err := cw.Write(e.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (m *mockLedgerRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// ── Mock RosterRepository ──

type mockRosterRepo struct {
	students []string
}

func (m *mockRosterRepo) Load(_ context.Context) ([]string, error) {
	return m.students, nil
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func newTestRepository(ledger *mockLedgerRepo, students ...string) *repository.Repository {
	return &repository.Repository{
		Ledger: ledger,
		Roster: &mockRosterRepo{students: students},
	}
}
