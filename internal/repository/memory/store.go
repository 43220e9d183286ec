// Package memory 提供一个进程内的 store.Store 实现，用于测试和本地开发。
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/filter"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/store"
)

var _ store.Store = (*Store)(nil)
var _ store.OperatorStore = (*Store)(nil)

type dataset struct {
	types          map[int64]*domain.Type
	shifts         map[int64]*domain.Shift
	operators      map[string]*domain.Operator
	nextTypeID     int64
	nextShiftID    int64
	nextOperatorID int64
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		types:          make(map[int64]*domain.Type, len(d.types)),
		shifts:         make(map[int64]*domain.Shift, len(d.shifts)),
		operators:      maps.Clone(d.operators),
		nextTypeID:     d.nextTypeID,
		nextShiftID:    d.nextShiftID,
		nextOperatorID: d.nextOperatorID,
	}
	for id, t := range d.types {
		typ := *t
		c.types[id] = &typ
	}
	for id, s := range d.shifts {
		c.shifts[id] = s.Clone()
	}
	return c
}

func (d *dataset) typeByName(name string) *domain.Type {
	var found *domain.Type
	for _, t := range d.types {
		if t.Name == name && (found == nil || t.ID < found.ID) {
			found = t
		}
	}
	return found
}

// Store 中所有的写操作都会被串行化，事务在副本上执行，成功后才会替换原数据
type Store struct {
	mu   sync.RWMutex
	data *dataset
	now  func() time.Time
}

func New() *Store {
	return &Store{
		data: &dataset{
			types:     make(map[int64]*domain.Type),
			shifts:    make(map[int64]*domain.Shift),
			operators: make(map[string]*domain.Operator),
		},
		now: time.Now,
	}
}

func (s *Store) ListTypes(ctx context.Context) ([]*domain.Type, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]*domain.Type, 0, len(s.data.types))
	for _, t := range s.data.types {
		typ := *t
		types = append(types, &typ)
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].Name != types[j].Name {
			return types[i].Name < types[j].Name
		}
		return types[i].ID < types[j].ID
	})
	return types, nil
}

func (s *Store) CreateType(ctx context.Context, t *domain.Type) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.typeByName(t.Name) != nil {
		return domain.ErrTypeExists
	}
	s.data.nextTypeID++
	t.ID = s.data.nextTypeID
	typ := *t
	s.data.types[t.ID] = &typ
	return nil
}

func (s *Store) GetTypesByNames(ctx context.Context, names []string) ([]*domain.Type, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]*domain.Type, 0)
	for _, t := range s.data.types {
		if slices.Contains(names, t.Name) {
			typ := *t
			types = append(types, &typ)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types, nil
}

func (s *Store) GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, ok := s.data.shifts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return shift.Clone(), nil
}

func (s *Store) ListShifts(ctx context.Context) ([]*domain.Shift, error) {
	return s.FindShifts(ctx, &filter.Query{})
}

func (s *Store) FindShifts(ctx context.Context, q *filter.Query) ([]*domain.Shift, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	shifts := make([]*domain.Shift, 0)
	for _, shift := range s.data.shifts {
		if q.Match(shift) {
			shifts = append(shifts, shift.Clone())
		}
	}
	s.mu.RUnlock()

	filter.Sort(shifts)
	return q.Window(shifts), nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(ctx, &memTx{data: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.data = working
	return nil
}

func (s *Store) GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.data.operators[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *op
	return &c, nil
}

func (s *Store) ListOperators(ctx context.Context) ([]*domain.Operator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	operators := make([]*domain.Operator, 0, len(s.data.operators))
	for _, op := range s.data.operators {
		c := *op
		operators = append(operators, &c)
	}
	sort.Slice(operators, func(i, j int) bool { return operators[i].ID < operators[j].ID })
	return operators, nil
}

func (s *Store) CreateOperator(ctx context.Context, op *domain.Operator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.operators[op.Username]; ok {
		return domain.ErrOperatorExists
	}
	s.data.nextOperatorID++
	op.ID = s.data.nextOperatorID
	op.CreatedAt = s.now()
	c := *op
	s.data.operators[op.Username] = &c
	return nil
}

func (s *Store) UpdateOperatorPassword(ctx context.Context, username, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.data.operators[username]
	if !ok {
		return domain.ErrNotFound
	}
	c := *op
	c.PasswordHash = passwordHash
	s.data.operators[username] = &c
	return nil
}

type memTx struct {
	data *dataset
}

func (t *memTx) LockTypeByName(_ context.Context, name string) (*domain.Type, error) {
	typ := t.data.typeByName(name)
	if typ == nil {
		return nil, domain.ErrNotFound
	}
	c := *typ
	return &c, nil
}

func (t *memTx) GetOpenShiftByType(_ context.Context, typeID int64) (*domain.Shift, error) {
	open := make([]*domain.Shift, 0, 1)
	for _, s := range t.data.shifts {
		if s.TypeID == typeID && s.EndDate == nil {
			open = append(open, s)
		}
	}
	if len(open) == 0 {
		return nil, nil
	}
	filter.Sort(open)
	return open[0].Clone(), nil
}

func (t *memTx) LockShiftByID(_ context.Context, id int64) (*domain.Shift, error) {
	s, ok := t.data.shifts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (t *memTx) InsertShift(_ context.Context, s *domain.Shift) error {
	if s.EndDate == nil {
		for _, existing := range t.data.shifts {
			if existing.TypeID == s.TypeID && existing.EndDate == nil {
				return &domain.ConflictingOpenShiftError{ShiftID: existing.ID, Type: s.Type}
			}
		}
	}
	t.data.nextShiftID++
	s.ID = t.data.nextShiftID
	t.data.shifts[s.ID] = s.Clone()
	return nil
}

func (t *memTx) UpdateShift(_ context.Context, s *domain.Shift) error {
	existing, ok := t.data.shifts[s.ID]
	if !ok {
		return domain.ErrNotFound
	}

	// 与 SQL 实现一致，只有可变字段以及结束时间和关闭人会被写入
	updated := existing.Clone()
	updated.Description = s.Description
	updated.OnShiftPersonal = s.OnShiftPersonal
	updated.Report = s.Report
	c := s.Clone()
	updated.EndDate = c.EndDate
	updated.CloseShiftUser = c.CloseShiftUser
	t.data.shifts[s.ID] = updated
	return nil
}
