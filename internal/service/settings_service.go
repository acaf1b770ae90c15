package service

import (
	"context"

	"phone-pos/internal/domain"
	"phone-pos/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettingsService reads and updates the store-wide pricing settings.
type SettingsService interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Update(ctx context.Context, settings *domain.Settings) (*domain.Settings, error)
	// ApplyDefaults fills in any of the values still unset.
	ApplyDefaults(ctx context.Context, rate, pointValue, earnRate decimal.Decimal) error
}

type settingsService struct {
	repo   repository.SettingsRepository
	logger *zap.Logger
}

// NewSettingsService creates a new instance of SettingsService
func NewSettingsService(repo repository.SettingsRepository, logger *zap.Logger) SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &settingsService{repo: repo, logger: logger}
}

func (s *settingsService) Get(ctx context.Context) (*domain.Settings, error) {
	return s.repo.Get(ctx)
}

// Update writes settings if settings.Version is still current. A stale
// version surfaces as repository.ErrVersionConflict.
func (s *settingsService) Update(ctx context.Context, settings *domain.Settings) (*domain.Settings, error) {
	if settings.ExchangeRate.IsNegative() {
		return nil, domain.NewValidationError("exchange_rate", "must not be negative")
	}
	if settings.PointValue.IsNegative() {
		return nil, domain.NewValidationError("point_value", "must not be negative")
	}
	if settings.EarnRate.IsNegative() {
		return nil, domain.NewValidationError("earn_rate", "must not be negative")
	}

	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("Settings updated",
		zap.String("exchange_rate", settings.ExchangeRate.String()),
		zap.Bool("points_paused", settings.PointsPaused),
		zap.Int64("version", settings.Version),
	)
	return s.repo.Get(ctx)
}

func (s *settingsService) ApplyDefaults(ctx context.Context, rate, pointValue, earnRate decimal.Decimal) error {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}

	changed := false
	fill := func(field *decimal.Decimal, value decimal.Decimal) {
		if field.IsZero() && value.IsPositive() {
			*field = value
			changed = true
		}
	}
	fill(&current.ExchangeRate, rate)
	fill(&current.PointValue, pointValue)
	fill(&current.EarnRate, earnRate)

	if !changed {
		return nil
	}
	_, err = s.Update(ctx, current)
	return err
}
