// Package filter 将查询参数翻译成针对班次的过滤条件。
//
// 不同参数之间是 AND 关系，同一参数的多个取值之间是 OR 关系。
// 解析得到的 Query 与存储无关，既可以翻译成 SQL，也可以直接在内存中求值。
package filter

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
)

// DefaultLimit 是给出过滤条件但没有给出分页参数时返回的最大条数
const DefaultLimit = 500

type Kind int

const (
	KindID Kind = iota + 1
	KindOwner
	KindDescription
	KindType
	KindLeadOperator
	KindOnShiftPersonal
	KindCloseUser
	KindStartDate
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindOwner:
		return "owner"
	case KindDescription:
		return "description"
	case KindType:
		return "type"
	case KindLeadOperator:
		return "leadoperator"
	case KindOnShiftPersonal:
		return "onshiftpersonal"
	case KindCloseUser:
		return "closeuser"
	case KindStartDate:
		return "startdate"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Clause 是一个过滤条件，具体使用哪些字段由 Kind 决定：
//   - KindID：IDs
//   - KindType：Values 为类型名，IDs 为解析后的类型 ID
//   - KindStartDate：From、To（闭区间）
//   - KindStatus：Statuses
//   - 其余：Values
type Clause struct {
	Kind     Kind
	Values   []string
	IDs      []int64
	From     time.Time
	To       time.Time
	Statuses []domain.ShiftStatus
}

type Query struct {
	Clauses []Clause
	// Limit 为 0 表示不限制条数
	Limit  int
	Offset int
}

var statusAliases = map[string]domain.ShiftStatus{
	"active": domain.ShiftStatusActive,
	"end":    domain.ShiftStatusEnded,
	"signed": domain.ShiftStatusClosed,
	"close":  domain.ShiftStatusClosed,
	"closed": domain.ShiftStatusClosed,
}

var valueKinds = map[string]Kind{
	"owner":           KindOwner,
	"description":     KindDescription,
	"type":            KindType,
	"leadoperator":    KindLeadOperator,
	"onshiftpersonal": KindOnShiftPersonal,
	"closeuser":       KindCloseUser,
}

// Parse 解析查询参数。参数名不区分大小写，不认识的参数会被忽略。
// now 用作只给出 from 时的区间上界。
func Parse(params map[string][]string, now time.Time, defaultLimit int) (*Query, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	matches := normalize(params)
	q := &Query{}

	if ids := matches["id"]; len(ids) > 0 {
		c := Clause{Kind: KindID, IDs: make([]int64, 0, len(ids))}
		for _, v := range ids {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, &domain.MalformedFilterValueError{Key: "id", Value: v}
			}
			c.IDs = append(c.IDs, id)
		}
		q.Clauses = append(q.Clauses, c)
	}

	for _, key := range []string{"owner", "description", "type", "leadoperator", "onshiftpersonal", "closeuser"} {
		if values := matches[key]; len(values) > 0 {
			q.Clauses = append(q.Clauses, Clause{Kind: valueKinds[key], Values: values})
		}
	}

	// from 和 to 只使用第一个取值，后面的会被忽略
	from, hasFrom, err := firstUnix(matches, "from")
	if err != nil {
		return nil, err
	}
	to, hasTo, err := firstUnix(matches, "to")
	if err != nil {
		return nil, err
	}
	if hasFrom || hasTo {
		c := Clause{Kind: KindStartDate, From: time.UnixMilli(0), To: now}
		if hasFrom {
			c.From = from
		}
		if hasTo {
			c.To = to
		}
		q.Clauses = append(q.Clauses, c)
	}

	if statuses := matches["status"]; len(statuses) > 0 {
		c := Clause{Kind: KindStatus}
		for _, v := range statuses {
			// 无法识别的状态不会匹配任何班次
			if st, ok := statusAliases[strings.ToLower(v)]; ok {
				c.Statuses = append(c.Statuses, st)
			}
		}
		q.Clauses = append(q.Clauses, c)
	}

	page, hasPage, err := firstPositive(matches, "page")
	if err != nil {
		return nil, err
	}
	limit, hasLimit, err := firstPositive(matches, "limit")
	if err != nil {
		return nil, err
	}

	switch {
	case hasLimit && hasPage:
		// 偏移量超过 int 范围时会回绕成负数
		if page-1 > math.MaxInt/limit {
			return nil, &domain.MalformedFilterValueError{Key: "page", Value: strconv.Itoa(page)}
		}
		q.Limit = limit
		q.Offset = (page - 1) * limit
	case hasLimit:
		q.Limit = limit
	case len(params) == 0:
		// 没有任何参数时返回全部班次
	case len(q.Clauses) == 0 && !hasPage:
		// 给了参数但没有一个有效，只返回最近的一个班次
		q.Limit = 1
	default:
		q.Limit = defaultLimit
	}

	return q, nil
}

// normalize 将参数名转成小写并合并，同时丢弃空字符串
func normalize(params map[string][]string) map[string][]string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	matches := make(map[string][]string, len(params))
	for _, k := range keys {
		key := strings.ToLower(strings.TrimSpace(k))
		for _, v := range params[k] {
			if v == "" {
				continue
			}
			matches[key] = append(matches[key], v)
		}
	}
	return matches
}

// 时间戳只接受公元 1 年到 9999 年之间的值，这个范围在 PostgreSQL timestamptz 之内，
// 换算成毫秒也不会溢出
var (
	minUnix = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxUnix = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// firstUnix 将第一个取值按秒级 Unix 时间戳解析，乘以 1000 换算成毫秒
func firstUnix(matches map[string][]string, key string) (time.Time, bool, error) {
	values := matches[key]
	if len(values) == 0 {
		return time.Time{}, false, nil
	}
	sec, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil || sec < minUnix || sec > maxUnix {
		return time.Time{}, false, &domain.MalformedFilterValueError{Key: key, Value: values[0]}
	}
	return time.UnixMilli(sec * 1000), true, nil
}

func firstPositive(matches map[string][]string, key string) (int, bool, error) {
	values := matches[key]
	if len(values) == 0 {
		return 0, false, nil
	}
	n, err := strconv.Atoi(values[0])
	if err != nil || n < 1 {
		return 0, false, &domain.MalformedFilterValueError{Key: key, Value: values[0]}
	}
	return n, true, nil
}

// TypeNames 返回类型条件中出现的所有类型名
func (q *Query) TypeNames() []string {
	var names []string
	for _, c := range q.Clauses {
		if c.Kind == KindType {
			names = append(names, c.Values...)
		}
	}
	return names
}

// ResolveTypes 把类型名替换为类型 ID。解析结果为空时该条件不匹配任何班次。
func (q *Query) ResolveTypes(resolve func(names []string) ([]int64, error)) error {
	for i := range q.Clauses {
		if q.Clauses[i].Kind != KindType {
			continue
		}
		ids, err := resolve(q.Clauses[i].Values)
		if err != nil {
			return err
		}
		q.Clauses[i].IDs = ids
	}
	return nil
}

// Describe 用于日志输出
func (q *Query) Describe() string {
	parts := make([]string, 0, len(q.Clauses)+1)
	for _, c := range q.Clauses {
		switch c.Kind {
		case KindID:
			ids := make([]string, len(c.IDs))
			for i, id := range c.IDs {
				ids[i] = strconv.FormatInt(id, 10)
			}
			parts = append(parts, c.Kind.String()+":"+strings.Join(ids, ","))
		case KindStartDate:
			parts = append(parts, c.Kind.String()+":"+c.From.UTC().Format(time.RFC3339)+"~"+c.To.UTC().Format(time.RFC3339))
		case KindStatus:
			statuses := make([]string, len(c.Statuses))
			for i, st := range c.Statuses {
				statuses[i] = string(st)
			}
			parts = append(parts, c.Kind.String()+":"+strings.Join(statuses, ","))
		default:
			parts = append(parts, c.Kind.String()+":"+strings.Join(c.Values, ","))
		}
	}
	if q.Limit > 0 {
		parts = append(parts, "limit:"+strconv.Itoa(q.Limit)+" offset:"+strconv.Itoa(q.Offset))
	}
	return strings.Join(parts, " ")
}
