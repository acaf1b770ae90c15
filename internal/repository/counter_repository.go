package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"phone-pos/internal/domain"
)

var ErrCounterNotFound = errors.New("counter not found")

// CounterStore is the compare-and-swap primitive behind receipt numbering.
// CompareAndSwap returns ErrVersionConflict when the stored value is no
// longer old.
type CounterStore interface {
	Get(ctx context.Context, series string) (*domain.Counter, error)
	CompareAndSwap(ctx context.Context, series string, old, new int64) error
}

type counterRepository struct {
	db *sql.DB
}

// NewCounterRepository creates a PostgreSQL-backed CounterStore
func NewCounterRepository(db *sql.DB) CounterStore {
	return &counterRepository{db: db}
}

// Get retrieves a counter by series using parameterized queries
func (r *counterRepository) Get(ctx context.Context, series string) (*domain.Counter, error) {
	counter := &domain.Counter{}
	err := r.db.QueryRowContext(ctx, `SELECT series, prefix, value FROM counters WHERE series = $1`, series).
		Scan(&counter.Series, &counter.Prefix, &counter.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCounterNotFound
		}
		return nil, fmt.Errorf("failed to read counter: %w", err)
	}
	return counter, nil
}

// CompareAndSwap advances a counter from old to new in a single conditional update
func (r *counterRepository) CompareAndSwap(ctx context.Context, series string, old, new int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE counters SET value = $3 WHERE series = $1 AND value = $2`, series, old, new)
	if err != nil {
		return fmt.Errorf("failed to swap counter: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return checkAffected(rowsAffected, func() (bool, error) {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM counters WHERE series = $1)`, series).Scan(&exists)
		return exists, err
	}, ErrCounterNotFound)
}
