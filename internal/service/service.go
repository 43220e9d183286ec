// Package service 实现班次的查询、开班、交班和关班操作。
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/filter"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/store"
)

// TypeCache 缓存类型名到类型 ID 的映射，由 cache.TypeCache 实现
type TypeCache interface {
	GetTypeIDs(ctx context.Context, names []string) (map[string]int64, []string, error)
	SetTypeIDs(ctx context.Context, ids map[string]int64) error
	Invalidate(ctx context.Context, names ...string) error
}

// Auditor 发送审计事件，由 audit.Publisher 实现
type Auditor interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

type ShiftService struct {
	store        store.Store
	now          func() time.Time
	cache        TypeCache
	auditor      Auditor
	defaultLimit int
	logger       *slog.Logger
}

type Option func(*ShiftService)

func WithClock(now func() time.Time) Option {
	return func(s *ShiftService) {
		s.now = now
	}
}

func WithTypeCache(cache TypeCache) Option {
	return func(s *ShiftService) {
		s.cache = cache
	}
}

func WithAuditor(auditor Auditor) Option {
	return func(s *ShiftService) {
		s.auditor = auditor
	}
}

func WithDefaultLimit(limit int) Option {
	return func(s *ShiftService) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *ShiftService) {
		s.logger = logger
	}
}

func NewShiftService(st store.Store, opts ...Option) *ShiftService {
	s := &ShiftService{
		store:        st,
		now:          time.Now,
		defaultLimit: filter.DefaultLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp 截断到微秒，与 PostgreSQL timestamptz 的精度保持一致
func (s *ShiftService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// passthroughErrors 是 storageError 原样返回的错误
var passthroughErrors = []error{
	domain.ErrMalformedFilterValue,
	domain.ErrInvalidType,
	domain.ErrConflictingOpenShift,
	domain.ErrNotFound,
	domain.ErrAlreadyEnded,
	domain.ErrNotYetEnded,
	domain.ErrAlreadyClosed,
	domain.ErrTypeExists,
	domain.ErrStorage,
}

// storageError 把存储层的错误包装成 StorageError，领域错误原样返回
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range passthroughErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return &domain.StorageError{Op: op, Err: err}
}

// audit 为每一次写操作记录日志并发送审计事件，发送失败不影响操作结果
func (s *ShiftService) audit(ctx context.Context, event domain.AuditEvent, subject string) {
	s.logger.Info("审计",
		slog.Group("audit",
			slog.String("action", string(event.Action)),
			slog.String("actor", event.Actor),
			slog.String("subject", subject),
		),
	)

	if s.auditor == nil {
		return
	}
	// 事务已经提交，即使客户端断开也要把事件发出去
	if err := s.auditor.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("无法发送审计事件",
			slog.String("action", string(event.Action)),
			slog.String("error", err.Error()),
		)
	}
}
