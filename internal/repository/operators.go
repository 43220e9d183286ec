package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
)

func (r *Repository) GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	query := `
		SELECT id, password_hash, is_admin, created_at
		FROM operators WHERE username = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	op := &domain.Operator{
		Username: username,
	}

	dst := []any{&op.ID, &op.PasswordHash, &op.IsAdmin, &op.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, username).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return op, nil
}

func (r *Repository) ListOperators(ctx context.Context) ([]*domain.Operator, error) {
	query := `
		SELECT id, username, password_hash, is_admin, created_at
		FROM operators ORDER BY id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	operators := []*domain.Operator{}
	for rows.Next() {
		op := &domain.Operator{}
		dst := []any{&op.ID, &op.Username, &op.PasswordHash, &op.IsAdmin, &op.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		operators = append(operators, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return operators, nil
}

func (r *Repository) CreateOperator(ctx context.Context, op *domain.Operator) error {
	query := `
		INSERT INTO operators (username, password_hash, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{op.Username, op.PasswordHash, op.IsAdmin}
	dst := []any{&op.ID, &op.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		switch constraintName(err) {
		case "operators_username_key":
			return domain.ErrOperatorExists
		default:
			return err
		}
	}

	return nil
}

func (r *Repository) UpdateOperatorPassword(ctx context.Context, username, passwordHash string) error {
	query := `UPDATE operators SET password_hash = $1 WHERE username = $2`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, passwordHash, username)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
