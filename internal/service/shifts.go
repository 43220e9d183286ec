package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/filter"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/store"
)

// FindShifts 按查询参数查找班次。没有任何参数时返回全部班次。
func (s *ShiftService) FindShifts(ctx context.Context, params map[string][]string) ([]*domain.Shift, error) {
	if len(params) == 0 {
		shifts, err := s.store.ListShifts(ctx)
		if err != nil {
			return nil, storageError("list shifts", err)
		}
		s.logger.Info("查询全部班次", slog.Int("count", len(shifts)))
		return shifts, nil
	}

	q, err := filter.Parse(params, s.timestamp(), s.defaultLimit)
	if err != nil {
		return nil, err
	}

	if err := q.ResolveTypes(func(names []string) ([]int64, error) {
		return s.ResolveTypeIDs(ctx, names)
	}); err != nil {
		return nil, err
	}

	shifts, err := s.store.FindShifts(ctx, q)
	if err != nil {
		return nil, storageError("find shifts", err)
	}
	shifts = filter.Dedupe(shifts)

	s.logger.Info("查询班次", slog.String("criteria", q.Describe()), slog.Int("count", len(shifts)))
	return shifts, nil
}

// FindShiftsByType 与 FindShifts 相同，但类型条件固定为 typeName，查询参数中的 type 会被覆盖
func (s *ShiftService) FindShiftsByType(ctx context.Context, typeName string, params map[string][]string) ([]*domain.Shift, error) {
	merged := make(map[string][]string, len(params)+1)
	for k, v := range params {
		if strings.EqualFold(k, "type") {
			continue
		}
		merged[k] = v
	}
	merged["type"] = []string{typeName}

	return s.FindShifts(ctx, merged)
}

func (s *ShiftService) GetShift(ctx context.Context, id int64) (*domain.Shift, error) {
	shift, err := s.store.GetShiftByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("班次 %d: %w", id, domain.ErrNotFound)
		}
		return nil, storageError("get shift", err)
	}
	return shift, nil
}

// GetShiftByType 返回指定类型下的班次，班次不存在或类型不符时都返回 ErrNotFound
func (s *ShiftService) GetShiftByType(ctx context.Context, typeName string, id int64) (*domain.Shift, error) {
	typeID, err := s.ResolveType(ctx, typeName)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidType) {
			return nil, fmt.Errorf("类型 %s 下的班次 %d: %w", typeName, id, domain.ErrNotFound)
		}
		return nil, err
	}

	shift, err := s.GetShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.TypeID != typeID {
		return nil, fmt.Errorf("类型 %s 下的班次 %d: %w", typeName, id, domain.ErrNotFound)
	}
	return shift, nil
}

type StartParams struct {
	Type            string
	Owner           string
	Description     string
	LeadOperator    string
	OnShiftPersonal string
}

// StartShift 开始一个新的班次。同一类型同一时间只能有一个进行中的班次。
// 没有指定负责人时以操作者作为负责人。
func (s *ShiftService) StartShift(ctx context.Context, actor string, params StartParams) (*domain.Shift, error) {
	if params.Type == "" {
		return nil, fmt.Errorf("%w: 类型不能为空", domain.ErrInvalidType)
	}

	owner := params.Owner
	if owner == "" {
		owner = actor
	}

	var started *domain.Shift
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		typ, err := tx.LockTypeByName(ctx, params.Type)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrInvalidType, params.Type)
			}
			return storageError("lock type", err)
		}

		open, err := tx.GetOpenShiftByType(ctx, typ.ID)
		if err != nil {
			return storageError("get open shift", err)
		}
		if open != nil {
			return &domain.ConflictingOpenShiftError{ShiftID: open.ID, Type: typ.Name}
		}

		shift := &domain.Shift{
			Type:            typ.Name,
			TypeID:          typ.ID,
			Owner:           owner,
			StartDate:       s.timestamp(),
			Description:     params.Description,
			LeadOperator:    params.LeadOperator,
			OnShiftPersonal: params.OnShiftPersonal,
		}
		if err := tx.InsertShift(ctx, shift); err != nil {
			return storageError("insert shift", err)
		}

		started = shift
		return nil
	})
	if err != nil {
		return nil, storageError("start shift", err)
	}

	s.audit(ctx, domain.NewShiftAuditEvent(domain.AuditActionStart, actor, started, started.StartDate), started.AuditString())
	return started, nil
}

// EndShift 结束班次。只有 patch 中的可变字段会被采纳，其余字段以存储中的值为准。
func (s *ShiftService) EndShift(ctx context.Context, actor string, id int64, patch domain.ShiftPatch) (*domain.Shift, error) {
	var ended *domain.Shift
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		shift, err := tx.LockShiftByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("班次 %d: %w", id, domain.ErrNotFound)
			}
			return storageError("lock shift", err)
		}
		if shift.EndDate != nil {
			return fmt.Errorf("班次 %d: %w", id, domain.ErrAlreadyEnded)
		}

		patch.Apply(shift)
		endDate := s.timestamp()
		shift.EndDate = &endDate

		if err := tx.UpdateShift(ctx, shift); err != nil {
			return storageError("update shift", err)
		}

		ended = shift
		return nil
	})
	if err != nil {
		return nil, storageError("end shift", err)
	}

	s.audit(ctx, domain.NewShiftAuditEvent(domain.AuditActionEnd, actor, ended, *ended.EndDate), ended.AuditString())
	return ended, nil
}

// CloseShift 关闭一个已经结束的班次，关闭人为当前操作者
func (s *ShiftService) CloseShift(ctx context.Context, actor string, id int64, patch domain.ShiftPatch) (*domain.Shift, error) {
	var closed *domain.Shift
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		shift, err := tx.LockShiftByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("班次 %d: %w", id, domain.ErrNotFound)
			}
			return storageError("lock shift", err)
		}
		if shift.EndDate == nil {
			return fmt.Errorf("班次 %d: %w", id, domain.ErrNotYetEnded)
		}
		if shift.CloseShiftUser != nil {
			return fmt.Errorf("班次 %d: %w", id, domain.ErrAlreadyClosed)
		}

		patch.Apply(shift)
		closeShiftUser := actor
		shift.CloseShiftUser = &closeShiftUser

		if err := tx.UpdateShift(ctx, shift); err != nil {
			return storageError("update shift", err)
		}

		closed = shift
		return nil
	})
	if err != nil {
		return nil, storageError("close shift", err)
	}

	s.audit(ctx, domain.NewShiftAuditEvent(domain.AuditActionClose, actor, closed, s.timestamp()), closed.AuditString())
	return closed, nil
}
