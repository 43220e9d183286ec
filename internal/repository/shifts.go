package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/filter"
)

const selectShifts = `
	SELECT
		s.id,
		s.type_id,
		t.name,
		s.owner,
		s.start_date,
		s.end_date,
		s.description,
		s.lead_operator,
		s.on_shift_personal,
		s.report,
		s.close_shift_user
	FROM shifts s
	JOIN types t ON t.id = s.type_id
`

type shiftRow struct {
	shift          domain.Shift
	endDate        sql.NullTime
	closeShiftUser sql.NullString
}

func (row *shiftRow) dst() []any {
	return []any{
		&row.shift.ID,
		&row.shift.TypeID,
		&row.shift.Type,
		&row.shift.Owner,
		&row.shift.StartDate,
		&row.endDate,
		&row.shift.Description,
		&row.shift.LeadOperator,
		&row.shift.OnShiftPersonal,
		&row.shift.Report,
		&row.closeShiftUser,
	}
}

func (row *shiftRow) toShift() *domain.Shift {
	s := row.shift
	if row.endDate.Valid {
		endDate := row.endDate.Time
		s.EndDate = &endDate
	}
	if row.closeShiftUser.Valid {
		user := row.closeShiftUser.String
		s.CloseShiftUser = &user
	}
	return &s
}

func scanShifts(rows *sql.Rows) ([]*domain.Shift, error) {
	shifts := []*domain.Shift{}
	for rows.Next() {
		var row shiftRow
		if err := rows.Scan(row.dst()...); err != nil {
			return nil, err
		}
		shifts = append(shifts, row.toShift())
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

func getShift(ctx context.Context, q queryer, query string, args ...any) (*domain.Shift, error) {
	var row shiftRow
	if err := q.QueryRowContext(ctx, query, args...).Scan(row.dst()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toShift(), nil
}

func (r *Repository) GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return getShift(ctx, r.dbpool, selectShifts+`WHERE s.id = $1`, id)
}

func (r *Repository) ListShifts(ctx context.Context) ([]*domain.Shift, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, selectShifts+`ORDER BY `+filter.OrderBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShifts(rows)
}

func (r *Repository) FindShifts(ctx context.Context, q *filter.Query) ([]*domain.Shift, error) {
	where, args := q.SQL(1)
	query := selectShifts + `WHERE ` + where + ` ORDER BY ` + filter.OrderBy
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShifts(rows)
}

// shiftTx 实现 store.Tx，所有操作都在同一个数据库事务中执行
type shiftTx struct {
	tx *sql.Tx
}

func (t *shiftTx) LockTypeByName(ctx context.Context, name string) (*domain.Type, error) {
	query := `
		SELECT id, name FROM types
		WHERE name = $1
		ORDER BY id
		LIMIT 1
		FOR UPDATE
	`

	typ := &domain.Type{}
	if err := t.tx.QueryRowContext(ctx, query, name).Scan(&typ.ID, &typ.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return typ, nil
}

func (t *shiftTx) GetOpenShiftByType(ctx context.Context, typeID int64) (*domain.Shift, error) {
	query := selectShifts + `
		WHERE s.type_id = $1 AND s.end_date IS NULL
		ORDER BY ` + filter.OrderBy + `
		LIMIT 1
	`

	s, err := getShift(ctx, t.tx, query, typeID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

func (t *shiftTx) LockShiftByID(ctx context.Context, id int64) (*domain.Shift, error) {
	return getShift(ctx, t.tx, selectShifts+`WHERE s.id = $1 FOR UPDATE OF s`, id)
}

func (t *shiftTx) InsertShift(ctx context.Context, s *domain.Shift) error {
	query := `
		INSERT INTO shifts (
			type_id,
			owner,
			start_date,
			description,
			lead_operator,
			on_shift_personal,
			report
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	params := []any{
		s.TypeID,
		s.Owner,
		s.StartDate,
		s.Description,
		s.LeadOperator,
		s.OnShiftPersonal,
		s.Report,
	}
	if err := t.tx.QueryRowContext(ctx, query, params...).Scan(&s.ID); err != nil {
		switch constraintName(err) {
		case "shifts_type_id_open_key":
			return &domain.ConflictingOpenShiftError{Type: s.Type}
		default:
			return err
		}
	}

	return nil
}

func (t *shiftTx) UpdateShift(ctx context.Context, s *domain.Shift) error {
	// 开始时间、负责人、值班长和类型创建后不可修改，因此不出现在 SET 中
	query := `
		UPDATE shifts
		SET
			end_date = $1,
			description = $2,
			on_shift_personal = $3,
			report = $4,
			close_shift_user = $5
		WHERE id = $6
	`

	var endDate sql.NullTime
	if s.EndDate != nil {
		endDate = sql.NullTime{Time: *s.EndDate, Valid: true}
	}
	var closeShiftUser sql.NullString
	if s.CloseShiftUser != nil {
		closeShiftUser = sql.NullString{String: *s.CloseShiftUser, Valid: true}
	}

	params := []any{
		endDate,
		s.Description,
		s.OnShiftPersonal,
		s.Report,
		closeShiftUser,
		s.ID,
	}
	res, err := t.tx.ExecContext(ctx, query, params...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	return nil
}
