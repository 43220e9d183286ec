package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/filter"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/repository/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type fakeAuditor struct {
	events []domain.AuditEvent
	err    error
}

func (a *fakeAuditor) Publish(_ context.Context, event domain.AuditEvent) error {
	a.events = append(a.events, event)
	return a.err
}

type fakeCache struct {
	ids    map[string]int64
	getErr error
	gets   int
}

func (c *fakeCache) GetTypeIDs(_ context.Context, names []string) (map[string]int64, []string, error) {
	c.gets++
	if c.getErr != nil {
		return nil, nil, c.getErr
	}
	hits := map[string]int64{}
	var missing []string
	for _, name := range names {
		if id, ok := c.ids[name]; ok {
			hits[name] = id
		} else {
			missing = append(missing, name)
		}
	}
	return hits, missing, nil
}

func (c *fakeCache) SetTypeIDs(_ context.Context, ids map[string]int64) error {
	for name, id := range ids {
		c.ids[name] = id
	}
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, names ...string) error {
	for _, name := range names {
		delete(c.ids, name)
	}
	return nil
}

type fixture struct {
	svc     *ShiftService
	store   *memory.Store
	clock   *fakeClock
	auditor *fakeAuditor
}

func newFixture(t *testing.T, types ...string) *fixture {
	t.Helper()

	st := memory.New()
	for _, name := range types {
		require.NoError(t, st.CreateType(context.Background(), &domain.Type{Name: name}))
	}

	clock := &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	auditor := &fakeAuditor{}
	svc := NewShiftService(st,
		WithClock(clock.Now),
		WithAuditor(auditor),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	return &fixture{svc: svc, store: st, clock: clock, auditor: auditor}
}

// startAndEnd 依次开始并结束 n 个班次，每个班次间隔一小时，返回按开始时间升序的班次
func (f *fixture) startAndEnd(t *testing.T, typeName, owner string, n int) []*domain.Shift {
	t.Helper()

	shifts := make([]*domain.Shift, 0, n)
	for range n {
		s, err := f.svc.StartShift(context.Background(), owner, StartParams{Type: typeName})
		require.NoError(t, err)
		f.clock.Advance(30 * time.Minute)
		_, err = f.svc.EndShift(context.Background(), owner, s.ID, domain.ShiftPatch{})
		require.NoError(t, err)
		f.clock.Advance(30 * time.Minute)
		shifts = append(shifts, s)
	}
	return shifts
}

func ids(shifts []*domain.Shift) []int64 {
	out := make([]int64, len(shifts))
	for i, s := range shifts {
		out[i] = s.ID
	}
	return out
}

func ptr(s string) *string {
	return &s
}

func TestStartShift(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()

	first, err := f.svc.StartShift(ctx, "alice", StartParams{Type: "dayshift", LeadOperator: "lead"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "alice", first.Owner)
	assert.Equal(t, "dayshift", first.Type)
	assert.True(t, first.StartDate.Equal(f.clock.Now()))
	assert.Nil(t, first.EndDate)
	assert.Equal(t, domain.ShiftStatusActive, first.Status())

	f.clock.Advance(time.Minute)
	_, err = f.svc.StartShift(ctx, "bob", StartParams{Type: "dayshift", Owner: "bob"})
	require.ErrorIs(t, err, domain.ErrConflictingOpenShift)
	var conflict *domain.ConflictingOpenShiftError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ShiftID)
	assert.Contains(t, err.Error(), strconv.FormatInt(first.ID, 10))

	// 冲突时不会写入任何数据
	all, err := f.svc.FindShifts(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStartShift_OwnerDefaultsToActor(t *testing.T) {
	f := newFixture(t, "dayshift")

	s, err := f.svc.StartShift(context.Background(), "carol", StartParams{Type: "dayshift"})
	require.NoError(t, err)
	assert.Equal(t, "carol", s.Owner)
}

func TestStartShift_InvalidType(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()

	_, err := f.svc.StartShift(ctx, "alice", StartParams{})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = f.svc.StartShift(ctx, "alice", StartParams{Type: "nightshift"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = f.svc.StartShift(ctx, "alice", StartParams{Type: "DAYSHIFT"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	assert.Empty(t, f.auditor.events)
}

func TestStartShift_RoundTrip(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()

	started, err := f.svc.StartShift(ctx, "alice", StartParams{
		Type:            "dayshift",
		Description:     "beam tuning",
		LeadOperator:    "bob",
		OnShiftPersonal: "carol, dave",
	})
	require.NoError(t, err)

	got, err := f.svc.GetShift(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, started, got)
}

func TestEndShift(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()

	started, err := f.svc.StartShift(ctx, "alice", StartParams{Type: "dayshift", LeadOperator: "bob"})
	require.NoError(t, err)

	f.clock.Advance(8 * time.Hour)
	ended, err := f.svc.EndShift(ctx, "mallory", started.ID, domain.ShiftPatch{Description: ptr("updated")})
	require.NoError(t, err)
	assert.Equal(t, "alice", ended.Owner)
	assert.Equal(t, "bob", ended.LeadOperator)
	assert.Equal(t, "dayshift", ended.Type)
	assert.True(t, ended.StartDate.Equal(started.StartDate))
	assert.Equal(t, "updated", ended.Description)
	require.NotNil(t, ended.EndDate)
	assert.True(t, ended.EndDate.Equal(f.clock.Now()))
	assert.Equal(t, domain.ShiftStatusEnded, ended.Status())

	// 第二次结束失败且不改变状态
	f.clock.Advance(time.Hour)
	_, err = f.svc.EndShift(ctx, "alice", started.ID, domain.ShiftPatch{Description: ptr("again")})
	require.ErrorIs(t, err, domain.ErrAlreadyEnded)

	got, err := f.svc.GetShift(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, ended, got)
}

func TestEndShift_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.EndShift(context.Background(), "alice", 42, domain.ShiftPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEndShift_AllowsNewStart(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()

	first, err := f.svc.StartShift(ctx, "alice", StartParams{Type: "dayshift"})
	require.NoError(t, err)
	_, err = f.svc.EndShift(ctx, "alice", first.ID, domain.ShiftPatch{})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := f.svc.StartShift(ctx, "bob", StartParams{Type: "dayshift"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCloseShift(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()

	started, err := f.svc.StartShift(ctx, "alice", StartParams{Type: "dayshift"})
	require.NoError(t, err)

	_, err = f.svc.CloseShift(ctx, "carol", started.ID, domain.ShiftPatch{})
	require.ErrorIs(t, err, domain.ErrNotYetEnded)

	f.clock.Advance(time.Hour)
	ended, err := f.svc.EndShift(ctx, "alice", started.ID, domain.ShiftPatch{})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	closed, err := f.svc.CloseShift(ctx, "carol", started.ID, domain.ShiftPatch{Report: ptr("all good")})
	require.NoError(t, err)
	require.NotNil(t, closed.CloseShiftUser)
	assert.Equal(t, "carol", *closed.CloseShiftUser)
	assert.Equal(t, "alice", closed.Owner)
	assert.Equal(t, "all good", closed.Report)
	assert.True(t, closed.EndDate.Equal(*ended.EndDate))
	assert.Equal(t, domain.ShiftStatusClosed, closed.Status())

	_, err = f.svc.CloseShift(ctx, "dave", started.ID, domain.ShiftPatch{})
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)

	_, err = f.svc.EndShift(ctx, "dave", started.ID, domain.ShiftPatch{})
	require.ErrorIs(t, err, domain.ErrAlreadyEnded)

	_, err = f.svc.CloseShift(ctx, "dave", 999, domain.ShiftPatch{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLifecycle_Audit(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()

	s, err := f.svc.StartShift(ctx, "alice", StartParams{Type: "dayshift"})
	require.NoError(t, err)
	_, err = f.svc.EndShift(ctx, "alice", s.ID, domain.ShiftPatch{})
	require.NoError(t, err)
	_, err = f.svc.CloseShift(ctx, "carol", s.ID, domain.ShiftPatch{Report: ptr("ok")})
	require.NoError(t, err)

	require.Len(t, f.auditor.events, 3)
	assert.Equal(t, domain.AuditActionStart, f.auditor.events[0].Action)
	assert.Equal(t, domain.AuditActionEnd, f.auditor.events[1].Action)
	assert.Equal(t, domain.AuditActionClose, f.auditor.events[2].Action)
	assert.Equal(t, "carol", f.auditor.events[2].Actor)
	assert.Equal(t, "alice", f.auditor.events[2].Owner)
	assert.Equal(t, s.ID, f.auditor.events[2].ShiftID)
	assert.Equal(t, domain.ShiftStatusClosed, f.auditor.events[2].Status)
	assert.Equal(t, "ok", f.auditor.events[2].Report)
}

func TestLifecycle_AuditFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, "dayshift")
	f.auditor.err = errors.New("broker down")

	s, err := f.svc.StartShift(context.Background(), "alice", StartParams{Type: "dayshift"})
	require.NoError(t, err)
	assert.NotZero(t, s.ID)
	assert.Len(t, f.auditor.events, 1)
}

func TestFindShifts_EmptyReturnsAllDescending(t *testing.T) {
	f := newFixture(t, "dayshift", "nightshift")
	created := f.startAndEnd(t, "dayshift", "alice", 3)
	created = append(created, f.startAndEnd(t, "nightshift", "bob", 2)...)

	for _, params := range []map[string][]string{nil, {}} {
		shifts, err := f.svc.FindShifts(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, shifts, 5)
		for i := range shifts {
			assert.Equal(t, created[len(created)-1-i].ID, shifts[i].ID)
		}
	}
}

func TestFindShifts_UnrecognizedKeysReturnMostRecent(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()

	shifts, err := f.svc.FindShifts(ctx, map[string][]string{"foo": {"bar"}})
	require.NoError(t, err)
	assert.Empty(t, shifts)

	created := f.startAndEnd(t, "dayshift", "alice", 3)

	shifts, err = f.svc.FindShifts(ctx, map[string][]string{"foo": {"bar"}})
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, created[2].ID, shifts[0].ID)
}

func TestFindShifts_Pagination(t *testing.T) {
	f := newFixture(t, "T", "U")
	created := f.startAndEnd(t, "T", "alice", 10)
	f.startAndEnd(t, "U", "alice", 2)

	shifts, err := f.svc.FindShifts(context.Background(), map[string][]string{
		"type":  {"T"},
		"page":  {"2"},
		"limit": {"3"},
	})
	require.NoError(t, err)
	// 按开始时间倒序排名第 4 到第 6 的班次
	assert.Equal(t, []int64{created[6].ID, created[5].ID, created[4].ID}, ids(shifts))
}

func TestFindShifts_Status(t *testing.T) {
	f := newFixture(t, "dayshift", "nightshift", "weekend")
	ctx := context.Background()

	active, err := f.svc.StartShift(ctx, "alice", StartParams{Type: "dayshift"})
	require.NoError(t, err)

	ended, err := f.svc.StartShift(ctx, "bob", StartParams{Type: "nightshift"})
	require.NoError(t, err)
	_, err = f.svc.EndShift(ctx, "bob", ended.ID, domain.ShiftPatch{})
	require.NoError(t, err)

	closed, err := f.svc.StartShift(ctx, "carol", StartParams{Type: "weekend"})
	require.NoError(t, err)
	_, err = f.svc.EndShift(ctx, "carol", closed.ID, domain.ShiftPatch{})
	require.NoError(t, err)
	_, err = f.svc.CloseShift(ctx, "dave", closed.ID, domain.ShiftPatch{})
	require.NoError(t, err)

	find := func(status ...string) []int64 {
		shifts, err := f.svc.FindShifts(ctx, map[string][]string{"status": status})
		require.NoError(t, err)
		return ids(shifts)
	}

	assert.Equal(t, []int64{active.ID}, find("active"))
	assert.Equal(t, []int64{ended.ID}, find("end"))
	assert.Equal(t, []int64{closed.ID}, find("signed"))
	assert.Equal(t, []int64{closed.ID}, find("close"))
	assert.Empty(t, find("bogus"))
	assert.NotContains(t, find("active", "signed"), ended.ID)
}

func TestFindShifts_FromAndOwner(t *testing.T) {
	f := newFixture(t, "dayshift")
	ctx := context.Background()
	f.clock.now = time.Unix(1700000000, 0).Add(-time.Hour)

	early := f.startAndEnd(t, "dayshift", "alice", 1)
	f.startAndEnd(t, "dayshift", "bob", 1)
	late := f.startAndEnd(t, "dayshift", "alice", 2)

	shifts, err := f.svc.FindShifts(ctx, map[string][]string{"from": {"1700000000"}, "owner": {"alice"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{late[1].ID, late[0].ID}, ids(shifts))
	assert.NotContains(t, ids(shifts), early[0].ID)
}

func TestFindShifts_Malformed(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FindShifts(context.Background(), map[string][]string{"from": {"yesterday"}})
	assert.ErrorIs(t, err, domain.ErrMalformedFilterValue)
}

func TestFindShiftsByType(t *testing.T) {
	f := newFixture(t, "dayshift", "nightshift")
	ctx := context.Background()
	day := f.startAndEnd(t, "dayshift", "alice", 2)
	f.startAndEnd(t, "nightshift", "alice", 2)

	shifts, err := f.svc.FindShiftsByType(ctx, "dayshift", map[string][]string{"Type": {"nightshift"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{day[1].ID, day[0].ID}, ids(shifts))

	shifts, err = f.svc.FindShiftsByType(ctx, "unknown", nil)
	require.NoError(t, err)
	assert.Empty(t, shifts)
}

func TestGetShiftByType(t *testing.T) {
	f := newFixture(t, "dayshift", "nightshift")
	ctx := context.Background()
	s := f.startAndEnd(t, "dayshift", "alice", 1)[0]

	got, err := f.svc.GetShiftByType(ctx, "dayshift", s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = f.svc.GetShiftByType(ctx, "nightshift", s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetShiftByType(ctx, "unknown", s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetShiftByType(ctx, "dayshift", 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTypes(t *testing.T) {
	f := newFixture(t, "nightshift")
	ctx := context.Background()

	typ, err := f.svc.CreateType(ctx, "admin", " dayshift ")
	require.NoError(t, err)
	assert.Equal(t, "dayshift", typ.Name)

	_, err = f.svc.CreateType(ctx, "admin", "dayshift")
	assert.ErrorIs(t, err, domain.ErrTypeExists)

	_, err = f.svc.CreateType(ctx, "admin", "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	types, err := f.svc.ListTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "dayshift", types[0].Name)
	assert.Equal(t, "nightshift", types[1].Name)

	require.Len(t, f.auditor.events, 1)
	assert.Equal(t, domain.AuditActionCreateType, f.auditor.events[0].Action)
}

func TestResolveTypeIDs(t *testing.T) {
	f := newFixture(t, "dayshift", "nightshift")
	ctx := context.Background()

	got, err := f.svc.ResolveTypeIDs(ctx, []string{"nightshift", "dayshift", "dayshift", "missing", ""})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)

	got, err = f.svc.ResolveTypeIDs(ctx, []string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, got)

	id, err := f.svc.ResolveType(ctx, "nightshift")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	_, err = f.svc.ResolveType(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestResolveTypeIDs_Cache(t *testing.T) {
	f := newFixture(t, "dayshift", "nightshift")
	cache := &fakeCache{ids: map[string]int64{"dayshift": 1}}
	WithTypeCache(cache)(f.svc)
	ctx := context.Background()

	got, err := f.svc.ResolveTypeIDs(ctx, []string{"dayshift", "nightshift"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)
	// 未命中的类型会被写入缓存
	assert.Equal(t, int64(2), cache.ids["nightshift"])

	cache.getErr = errors.New("redis down")
	got, err = f.svc.ResolveTypeIDs(ctx, []string{"nightshift"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, got)
	assert.Equal(t, 2, cache.gets)
}

type failingStore struct {
	*memory.Store
}

func (failingStore) ListShifts(context.Context) ([]*domain.Shift, error) {
	return nil, errors.New("connection reset")
}

func (failingStore) FindShifts(context.Context, *filter.Query) ([]*domain.Shift, error) {
	return nil, errors.New("connection reset")
}

func TestFindShifts_StorageError(t *testing.T) {
	svc := NewShiftService(failingStore{memory.New()}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx := context.Background()

	_, err := svc.FindShifts(ctx, nil)
	require.ErrorIs(t, err, domain.ErrStorage)
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "list shifts", storageErr.Op)

	_, err = svc.FindShifts(ctx, map[string][]string{"owner": {"alice"}})
	require.ErrorIs(t, err, domain.ErrStorage)
}
