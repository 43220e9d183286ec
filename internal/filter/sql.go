package filter

import (
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
)

// OrderBy 是所有查询结果的排序方式
const OrderBy = "s.start_date DESC, s.id DESC"

var valueColumns = map[Kind]string{
	KindOwner:           "s.owner",
	KindLeadOperator:    "s.lead_operator",
	KindOnShiftPersonal: "s.on_shift_personal",
	KindCloseUser:       "s.close_shift_user",
}

var statusSQL = map[domain.ShiftStatus]string{
	domain.ShiftStatusActive: "s.end_date IS NULL",
	domain.ShiftStatusEnded:  "(s.end_date IS NOT NULL AND s.close_shift_user IS NULL)",
	domain.ShiftStatusClosed: "(s.end_date IS NOT NULL AND s.close_shift_user IS NOT NULL)",
}

type sqlBuilder struct {
	args []any
	next int
}

func (b *sqlBuilder) placeholder(v any) string {
	b.args = append(b.args, v)
	p := "$" + strconv.Itoa(b.next)
	b.next++
	return p
}

func (b *sqlBuilder) in(column string, values []any) string {
	if len(values) == 0 {
		return "FALSE"
	}
	ps := make([]string, len(values))
	for i, v := range values {
		ps[i] = b.placeholder(v)
	}
	return column + " IN (" + strings.Join(ps, ", ") + ")"
}

// SQL 将查询条件翻译成 WHERE 子句（不含 WHERE 关键字），占位符从 $start 开始编号。
// 分页由 Limit 和 Offset 单独处理。
func (q *Query) SQL(start int) (string, []any) {
	if len(q.Clauses) == 0 {
		return "TRUE", nil
	}

	b := &sqlBuilder{next: start}
	conds := make([]string, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		conds = append(conds, "("+b.clause(c)+")")
	}
	return strings.Join(conds, " AND "), b.args
}

func (b *sqlBuilder) clause(c Clause) string {
	switch c.Kind {
	case KindID:
		return b.in("s.id", int64s(c.IDs))
	case KindType:
		return b.in("s.type_id", int64s(c.IDs))
	case KindDescription:
		ors := make([]string, len(c.Values))
		for i, v := range c.Values {
			ors[i] = "strpos(s.description, " + b.placeholder(v) + ") > 0"
		}
		return strings.Join(ors, " OR ")
	case KindStartDate:
		return "s.start_date BETWEEN " + b.placeholder(c.From) + " AND " + b.placeholder(c.To)
	case KindStatus:
		if len(c.Statuses) == 0 {
			return "FALSE"
		}
		ors := make([]string, len(c.Statuses))
		for i, st := range c.Statuses {
			ors[i] = statusSQL[st]
		}
		return strings.Join(ors, " OR ")
	default:
		column, ok := valueColumns[c.Kind]
		if !ok {
			return "FALSE"
		}
		return b.in(column, strings2any(c.Values))
	}
}

func int64s(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func strings2any(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
