package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
)

func (s *ShiftService) ListTypes(ctx context.Context) ([]*domain.Type, error) {
	types, err := s.store.ListTypes(ctx)
	if err != nil {
		return nil, storageError("list types", err)
	}
	return types, nil
}

func (s *ShiftService) CreateType(ctx context.Context, actor, name string) (*domain.Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: 类型名不能为空", domain.ErrInvalidType)
	}

	typ := &domain.Type{Name: name}
	if err := s.store.CreateType(ctx, typ); err != nil {
		return nil, storageError("create type", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, name); err != nil {
			s.logger.Warn("无法清除类型缓存", slog.String("type", name), slog.String("error", err.Error()))
		}
	}

	s.audit(ctx, domain.AuditEvent{
		Action: domain.AuditActionCreateType,
		Actor:  actor,
		Type:   typ.Name,
		At:     s.timestamp(),
	}, typ.Name)

	return typ, nil
}

// ResolveTypeIDs 精确匹配类型名，先查缓存，缓存未命中的再查数据库。
// 没有任何匹配时返回空切片，结果按 ID 升序排列。
func (s *ShiftService) ResolveTypeIDs(ctx context.Context, names []string) ([]int64, error) {
	wanted := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" && !slices.Contains(wanted, name) {
			wanted = append(wanted, name)
		}
	}
	if len(wanted) == 0 {
		return []int64{}, nil
	}

	resolved := make(map[string]int64, len(wanted))
	missing := wanted
	if s.cache != nil {
		hits, miss, err := s.cache.GetTypeIDs(ctx, wanted)
		if err != nil {
			// 缓存不可用时退回到数据库
			s.logger.Warn("无法读取类型缓存", slog.String("error", err.Error()))
		} else {
			for name, id := range hits {
				resolved[name] = id
			}
			missing = miss
		}
	}

	if len(missing) > 0 {
		types, err := s.store.GetTypesByNames(ctx, missing)
		if err != nil {
			return nil, storageError("resolve types", err)
		}

		found := make(map[string]int64, len(types))
		for _, t := range types {
			if _, ok := found[t.Name]; !ok {
				found[t.Name] = t.ID
			}
		}
		for name, id := range found {
			resolved[name] = id
		}

		if s.cache != nil && len(found) > 0 {
			if err := s.cache.SetTypeIDs(ctx, found); err != nil {
				s.logger.Warn("无法写入类型缓存", slog.String("error", err.Error()))
			}
		}
	}

	ids := make([]int64, 0, len(resolved))
	for _, id := range resolved {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// ResolveType 返回与类型名精确匹配的第一个类型 ID
func (s *ShiftService) ResolveType(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: 类型名不能为空", domain.ErrInvalidType)
	}

	ids, err := s.ResolveTypeIDs(ctx, []string{name})
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidType, name)
	}
	return ids[0], nil
}
