package filter

import (
	"slices"
	"sort"
	"strings"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
)

// Match 在内存中对单个班次求值，语义与 SQL 保持一致
func (q *Query) Match(s *domain.Shift) bool {
	for _, c := range q.Clauses {
		if !c.match(s) {
			return false
		}
	}
	return true
}

func (c Clause) match(s *domain.Shift) bool {
	switch c.Kind {
	case KindID:
		return slices.Contains(c.IDs, s.ID)
	case KindType:
		return slices.Contains(c.IDs, s.TypeID)
	case KindOwner:
		return slices.Contains(c.Values, s.Owner)
	case KindDescription:
		return slices.ContainsFunc(c.Values, func(v string) bool {
			return strings.Contains(s.Description, v)
		})
	case KindLeadOperator:
		return slices.Contains(c.Values, s.LeadOperator)
	case KindOnShiftPersonal:
		return slices.Contains(c.Values, s.OnShiftPersonal)
	case KindCloseUser:
		return s.CloseShiftUser != nil && slices.Contains(c.Values, *s.CloseShiftUser)
	case KindStartDate:
		return !s.StartDate.Before(c.From) && !s.StartDate.After(c.To)
	case KindStatus:
		return slices.Contains(c.Statuses, s.Status())
	default:
		return false
	}
}

// Sort 按开始时间倒序排列，开始时间相同时按 ID 倒序
func Sort(shifts []*domain.Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		if !shifts[i].StartDate.Equal(shifts[j].StartDate) {
			return shifts[i].StartDate.After(shifts[j].StartDate)
		}
		return shifts[i].ID > shifts[j].ID
	})
}

// Window 截取分页范围内的结果，shifts 需已排好序。负的偏移量按 0 处理。
func (q *Query) Window(shifts []*domain.Shift) []*domain.Shift {
	if q.Offset > 0 && q.Offset >= len(shifts) {
		return []*domain.Shift{}
	}
	if q.Offset > 0 {
		shifts = shifts[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(shifts) {
		shifts = shifts[:q.Limit]
	}
	return shifts
}

// Dedupe 按 ID 去重，保留第一次出现的班次
func Dedupe(shifts []*domain.Shift) []*domain.Shift {
	seen := make(map[int64]struct{}, len(shifts))
	out := make([]*domain.Shift, 0, len(shifts))
	for _, s := range shifts {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}
