package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/filter"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/store"
)

func insert(t *testing.T, s *Store, shift *domain.Shift) {
	t.Helper()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertShift(ctx, shift)
	})
	require.NoError(t, err)
}

func TestStore_Types(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateType(ctx, &domain.Type{Name: "linac"}))
	require.NoError(t, s.CreateType(ctx, &domain.Type{Name: "booster"}))
	assert.ErrorIs(t, s.CreateType(ctx, &domain.Type{Name: "linac"}), domain.ErrTypeExists)

	types, err := s.ListTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "booster", types[0].Name)
	assert.Equal(t, "linac", types[1].Name)

	types, err = s.GetTypesByNames(ctx, []string{"linac", "booster", "missing"})
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, int64(1), types[0].ID)
	assert.Equal(t, int64(2), types[1].ID)

	types, err = s.GetTypesByNames(ctx, []string{"LINAC"})
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestStore_WithinTx_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateType(ctx, &domain.Type{Name: "linac"}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertShift(ctx, &domain.Shift{TypeID: 1, Owner: "alice", StartDate: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	shifts, err := s.ListShifts(ctx)
	require.NoError(t, err)
	assert.Empty(t, shifts)
}

func TestStore_InsertShift_RejectsSecondOpenShift(t *testing.T) {
	s := New()
	ctx := context.Background()

	insert(t, s, &domain.Shift{TypeID: 1, Type: "linac", Owner: "alice", StartDate: time.Now()})

	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertShift(ctx, &domain.Shift{TypeID: 1, Type: "linac", Owner: "bob", StartDate: time.Now()})
	})
	var conflict *domain.ConflictingOpenShiftError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(1), conflict.ShiftID)

	// 其他类型不受影响
	insert(t, s, &domain.Shift{TypeID: 2, Type: "booster", Owner: "bob", StartDate: time.Now()})
}

func TestStore_UpdateShift_KeepsImmutableFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	insert(t, s, &domain.Shift{TypeID: 1, Type: "linac", Owner: "alice", LeadOperator: "bob", StartDate: start})

	end := start.Add(time.Hour)
	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		shift, err := tx.LockShiftByID(ctx, 1)
		if err != nil {
			return err
		}
		shift.EndDate = &end
		shift.Report = "done"
		shift.Owner = "mallory"
		shift.StartDate = start.Add(24 * time.Hour)
		return tx.UpdateShift(ctx, shift)
	})
	require.NoError(t, err)

	got, err := s.GetShiftByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, "bob", got.LeadOperator)
	assert.True(t, got.StartDate.Equal(start))
	assert.Equal(t, "done", got.Report)
	assert.Equal(t, domain.ShiftStatusEnded, got.Status())

	err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateShift(ctx, &domain.Shift{ID: 42})
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	insert(t, s, &domain.Shift{TypeID: 1, Owner: "alice", StartDate: time.Now()})

	got, err := s.GetShiftByID(ctx, 1)
	require.NoError(t, err)
	got.Owner = "mallory"

	again, err := s.GetShiftByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Owner)
}

func TestStore_FindShifts(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	end := base.Add(time.Minute)

	insert(t, s, &domain.Shift{TypeID: 1, Owner: "alice", StartDate: base, EndDate: &end})
	insert(t, s, &domain.Shift{TypeID: 1, Owner: "bob", StartDate: base.Add(time.Hour), EndDate: &end})
	insert(t, s, &domain.Shift{TypeID: 2, Owner: "alice", StartDate: base.Add(2 * time.Hour)})

	all, err := s.ListShifts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	q, err := filter.Parse(map[string][]string{"owner": {"alice"}}, base.Add(24*time.Hour), filter.DefaultLimit)
	require.NoError(t, err)
	shifts, err := s.FindShifts(ctx, q)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, int64(3), shifts[0].ID)
	assert.Equal(t, int64(1), shifts[1].ID)

	q, err = filter.Parse(map[string][]string{"page": {"2"}, "limit": {"2"}}, base, filter.DefaultLimit)
	require.NoError(t, err)
	shifts, err = s.FindShifts(ctx, q)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, int64(1), shifts[0].ID)

	// 超出结果范围的页返回空，而不是越界
	q, err = filter.Parse(map[string][]string{"page": {"2"}, "limit": {"9223372036854775807"}}, base, filter.DefaultLimit)
	require.NoError(t, err)
	shifts, err = s.FindShifts(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, shifts)

	_, err = filter.Parse(map[string][]string{"page": {"4611686018427387905"}, "limit": {"2"}}, base, filter.DefaultLimit)
	assert.ErrorIs(t, err, domain.ErrMalformedFilterValue)
}

func TestStore_Operators(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateOperator(ctx, &domain.Operator{Username: "admin", PasswordHash: "hash", IsAdmin: true}))
	assert.ErrorIs(t, s.CreateOperator(ctx, &domain.Operator{Username: "admin"}), domain.ErrOperatorExists)

	op, err := s.GetOperatorByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, op.IsAdmin)
	assert.False(t, op.CreatedAt.IsZero())

	_, err = s.GetOperatorByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.UpdateOperatorPassword(ctx, "admin", "new-hash"))
	op, err = s.GetOperatorByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", op.PasswordHash)
	assert.ErrorIs(t, s.UpdateOperatorPassword(ctx, "ghost", "new-hash"), domain.ErrNotFound)

	require.NoError(t, s.CreateOperator(ctx, &domain.Operator{Username: "alice", PasswordHash: "hash"}))
	operators, err := s.ListOperators(ctx)
	require.NoError(t, err)
	require.Len(t, operators, 2)
	assert.Equal(t, "admin", operators[0].Username)
	assert.Equal(t, "alice", operators[1].Username)
}

func TestStore_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListShifts(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	err = s.WithinTx(ctx, func(context.Context, store.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
