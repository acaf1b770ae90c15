package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"phone-pos/internal/domain"
)

var ErrSettingsNotFound = errors.New("settings not initialized")

// SettingsRepository reads and swaps the single global settings record.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	// Update writes settings if the stored version equals settings.Version
	// and advances settings.Version on success.
	Update(ctx context.Context, settings *domain.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get retrieves the single settings row
func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	s := &domain.Settings{}
	err := r.db.QueryRowContext(ctx, `
		SELECT exchange_rate, points_paused, point_value, earn_rate, version, updated_at
		FROM settings
		WHERE id = 1
	`).Scan(&s.ExchangeRate, &s.PointsPaused, &s.PointValue, &s.EarnRate, &s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return s, nil
}

// Update writes settings if settings.Version is still current and bumps the version
func (r *settingsRepository) Update(ctx context.Context, settings *domain.Settings) error {
	now := time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE settings
		SET exchange_rate = $2, points_paused = $3, point_value = $4, earn_rate = $5,
		    version = version + 1, updated_at = $6
		WHERE id = 1 AND version = $1
	`, settings.Version, settings.ExchangeRate, settings.PointsPaused, settings.PointValue, settings.EarnRate, now)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := checkAffected(rowsAffected, func() (bool, error) {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM settings WHERE id = 1)`).Scan(&exists)
		return exists, err
	}, ErrSettingsNotFound); err != nil {
		return err
	}

	settings.Version++
	settings.UpdatedAt = now
	return nil
}
