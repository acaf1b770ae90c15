package service

import (
	"context"
	"testing"

	"phone-pos/internal/domain"
	"phone-pos/internal/repository"
	"phone-pos/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_UpdateIsVersioned(t *testing.T) {
	s := memory.New()
	svc := NewSettingsService(s.Settings(), nil)
	ctx := context.Background()

	current, err := svc.Get(ctx)
	require.NoError(t, err)

	stale := *current
	current.ExchangeRate = decimal.NewFromInt(1200)
	updated, err := svc.Update(ctx, current)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1200).Equal(updated.ExchangeRate))
	assert.Equal(t, stale.Version+1, updated.Version)

	stale.PointsPaused = true
	_, err = svc.Update(ctx, &stale)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	bad := *updated
	bad.EarnRate = decimal.NewFromInt(-1)
	_, err = svc.Update(ctx, &bad)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSettingsService_ApplyDefaults(t *testing.T) {
	s := memory.New()
	svc := NewSettingsService(s.Settings(), nil)
	ctx := context.Background()

	require.NoError(t, svc.ApplyDefaults(ctx, decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromInt(100000)))
	require.NoError(t, svc.ApplyDefaults(ctx, decimal.NewFromInt(2000), decimal.NewFromInt(50000), decimal.NewFromInt(1)))

	current, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(current.ExchangeRate), "an existing rate is kept")
	assert.True(t, decimal.NewFromInt(50000).Equal(current.PointValue))
	assert.True(t, decimal.NewFromInt(100000).Equal(current.EarnRate))
	assert.Equal(t, int64(3), current.Version)
}
