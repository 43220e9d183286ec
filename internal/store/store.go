// Package store 定义班次记录存储需要提供的能力。
// repository 包提供 PostgreSQL 实现，repository/memory 包提供内存实现。
package store

import (
	"context"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/filter"
)

// Store 的实现必须是并发安全的。
// 记录不存在时返回 domain.ErrNotFound。
type Store interface {
	ListTypes(ctx context.Context) ([]*domain.Type, error)

	// CreateType 在名称已存在时返回 domain.ErrTypeExists
	CreateType(ctx context.Context, t *domain.Type) error

	// GetTypesByNames 精确匹配类型名，按 ID 升序返回，没有匹配时返回空切片
	GetTypesByNames(ctx context.Context, names []string) ([]*domain.Type, error)

	GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error)

	// ListShifts 按开始时间倒序返回所有班次
	ListShifts(ctx context.Context) ([]*domain.Shift, error)

	// FindShifts 返回满足条件的班次，排序和分页由 q 决定
	FindShifts(ctx context.Context, q *filter.Query) ([]*domain.Shift, error)

	// WithinTx 在一个事务中执行 fn。fn 返回错误时事务回滚，不会留下任何写入。
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx 是事务内可用的操作
type Tx interface {
	// LockTypeByName 锁定类型记录，使同一类型的开班操作串行执行
	LockTypeByName(ctx context.Context, name string) (*domain.Type, error)

	// GetOpenShiftByType 返回该类型最近一个未结束的班次，没有时返回 nil
	GetOpenShiftByType(ctx context.Context, typeID int64) (*domain.Shift, error)

	LockShiftByID(ctx context.Context, id int64) (*domain.Shift, error)

	// InsertShift 写入新班次并回填 ID
	InsertShift(ctx context.Context, s *domain.Shift) error

	// UpdateShift 只更新可变字段以及结束时间和关闭人
	UpdateShift(ctx context.Context, s *domain.Shift) error
}

// OperatorStore 提供登录和操作员管理所需的记录
type OperatorStore interface {
	GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error)

	// ListOperators 按 ID 升序返回所有操作员
	ListOperators(ctx context.Context) ([]*domain.Operator, error)

	// CreateOperator 写入新操作员并回填 ID 和创建时间，用户名已存在时返回 domain.ErrOperatorExists
	CreateOperator(ctx context.Context, op *domain.Operator) error

	// UpdateOperatorPassword 在操作员不存在时返回 domain.ErrNotFound
	UpdateOperatorPassword(ctx context.Context, username, passwordHash string) error
}
