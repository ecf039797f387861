package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"qr-attendance/internal/dto"
	"qr-attendance/internal/model"
	"qr-attendance/internal/repository"
	"qr-attendance/pkg/dailykey"
	pkgerrors "qr-attendance/pkg/errors"
)

// ── 签到模块业务错误 ──

var (
	ErrKeyMismatch        = errors.New("签到链接已失效")
	ErrEmptyStudent       = errors.New("学生姓名不能为空")
	ErrInvalidCheckinKind = errors.New("无效的签到类型")
)

const (
	timeLayout    = "15:04"
	displayLayout = "03:04 PM"
)

// CheckinService 签到业务接口
type CheckinService interface {
	// Overview 首页数据：名单、所选学生当日状态、日期与星期
	Overview(ctx context.Context, student string) (*dto.CheckinOverview, error)
	// State 所选学生当日签到状态
	State(ctx context.Context, student string) (model.CheckinState, error)
	// Submit 提交一次签到
	Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResult, error)
}

type checkinService struct {
	repo    *repository.Repository
	keys    *dailykey.Deriver
	cutoffs model.MorningCutoffs
	roster  []string
	known   map[string]struct{}
	logger  *zap.Logger

	// mu 串行化"查重 + 追加"，同一进程内不会产生重复签到
	mu sync.Mutex
}

// NewCheckinService 创建 CheckinService 实例
// roster 在启动时加载一次，之后只读
func NewCheckinService(
	repo *repository.Repository,
	keys *dailykey.Deriver,
	cutoffs model.MorningCutoffs,
	roster []string,
	logger *zap.Logger,
) CheckinService {
	known := make(map[string]struct{}, len(roster))
	for _, name := range roster {
		known[name] = struct{}{}
	}
	return &checkinService{
		repo:    repo,
		keys:    keys,
		cutoffs: cutoffs,
		roster:  roster,
		known:   known,
		logger:  logger,
	}
}

func (s *checkinService) Overview(ctx context.Context, student string) (*dto.CheckinOverview, error) {
	now := s.keys.Today()
	state, err := s.stateOn(ctx, student, now.Format(dailykey.DateLayout))
	if err != nil {
		return nil, err
	}

	return &dto.CheckinOverview{
		Students: s.roster,
		Selected: student,
		State:    state,
		Weekday:  now.Weekday().String(),
		Date:     now.Format(dailykey.DateLayout),
	}, nil
}

func (s *checkinService) State(ctx context.Context, student string) (model.CheckinState, error) {
	return s.stateOn(ctx, student, s.keys.Today().Format(dailykey.DateLayout))
}

func (s *checkinService) stateOn(ctx context.Context, student, date string) (model.CheckinState, error) {
	var state model.CheckinState
	if student == "" {
		return state, nil
	}

	events, err := s.repo.Ledger.Scan(ctx, repository.EventFilter{Date: date, StudentName: student})
	if err != nil {
		s.logger.Error("查询签到流水失败", zap.String("student", student), zap.Error(err))
		return state, err
	}
	for _, e := range events {
		state.Mark(e.Kind)
	}
	return state, nil
}

func (s *checkinService) Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResult, error) {
	// 1. 每次写操作都校验当日密钥
	if !s.keys.Valid(req.Key) {
		return nil, ErrKeyMismatch
	}

	student := strings.TrimSpace(req.Student)
	if student == "" {
		return nil, ErrEmptyStudent
	}
	kind, ok := model.ParseCheckinKind(req.Action)
	if !ok {
		return nil, ErrInvalidCheckinKind
	}
	if _, ok := s.known[student]; !ok {
		s.logger.Warn("提交的学生不在名单中，按原样记录", zap.String("student", student))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.keys.Today()
	date := now.Format(dailykey.DateLayout)

	// 2. 查重
	state, err := s.stateOn(ctx, student, date)
	if err != nil {
		return nil, err
	}
	if state.Has(kind) {
		return &dto.SubmitResult{Outcome: dto.OutcomeAlreadyRecorded, Kind: kind}, nil
	}

	// 3. 早签到判定状态，午间签到不记状态
	status := model.StatusNone
	if kind == model.MorningCheckIn {
		status = s.cutoffs.Classify(now)
	}

	// 4. 追加流水
	event := &model.AttendanceEvent{
		Date:        date,
		StudentName: student,
		Kind:        kind,
		Time:        now.Format(timeLayout),
		Status:      status,
	}
	if err := s.repo.Ledger.Append(ctx, event); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateEvent) {
			return &dto.SubmitResult{Outcome: dto.OutcomeAlreadyRecorded, Kind: kind}, nil
		}
		s.logger.Error("写入签到流水失败", zap.String("student", student), zap.Error(err))
		return nil, err
	}

	s.logger.Info("签到成功",
		zap.String("student", student),
		zap.String("kind", string(kind)),
		zap.String("status", string(status)),
	)

	return &dto.SubmitResult{
		Outcome:     dto.OutcomeRecorded,
		Kind:        kind,
		DisplayTime: now.Format(displayLayout),
		Event:       event,
	}, nil
}
