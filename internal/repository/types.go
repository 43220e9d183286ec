package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
)

func (r *Repository) ListTypes(ctx context.Context) ([]*domain.Type, error) {
	query := `
		SELECT id, name FROM types ORDER BY name, id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]*domain.Type, 0)
	for rows.Next() {
		t := &domain.Type{}
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		types = append(types, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return types, nil
}

func (r *Repository) CreateType(ctx context.Context, t *domain.Type) error {
	query := `
		INSERT INTO types (name) VALUES ($1)
		RETURNING id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, t.Name).Scan(&t.ID); err != nil {
		switch constraintName(err) {
		case "types_name_key":
			return domain.ErrTypeExists
		default:
			return err
		}
	}

	return nil
}

func (r *Repository) GetTypesByNames(ctx context.Context, names []string) ([]*domain.Type, error) {
	types := make([]*domain.Type, 0)
	if len(names) == 0 {
		return types, nil
	}

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = name
	}
	query := `SELECT id, name FROM types WHERE name IN (` + strings.Join(placeholders, ", ") + `) ORDER BY id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t := &domain.Type{}
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		types = append(types, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return types, nil
}
