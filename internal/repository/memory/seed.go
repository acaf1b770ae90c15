package memory

import (
	"context"
	"fmt"

	"phone-pos/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedDemo loads a small catalog for development runs: two categories, a few
// phones and accessories in the given store, one bundle rule and settings
// at the given exchange rate.
func (s *Store) SeedDemo(ctx context.Context, store string, rate decimal.Decimal) error {
	categories := []domain.Category{
		{ID: uuid.New(), Name: "Celulares", Description: "Equipos identificados por IMEI", Serialized: true},
		{ID: uuid.New(), Name: "Accesorios", Description: "Fundas, cargadores y vidrios"},
	}
	for i := range categories {
		if err := s.Categories().Create(ctx, &categories[i]); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", categories[i].Name, err)
		}
	}

	funda := domain.Product{ID: uuid.New(), Name: "Funda silicona", Brand: "Apple", Category: "Accesorios",
		Price: decimal.NewFromInt(15), Cost: decimal.NewFromInt(4), Stock: 20, Store: store}
	vidrio := domain.Product{ID: uuid.New(), Name: "Vidrio templado", Category: "Accesorios",
		Price: decimal.NewFromInt(8), Cost: decimal.NewFromInt(2), Stock: 30, Store: store}
	products := []domain.Product{
		{ID: uuid.New(), Name: "iPhone 12 Pro", Brand: "Apple", Model: "12 Pro", Category: "Celulares",
			Price: decimal.NewFromInt(650), Cost: decimal.NewFromInt(520), Stock: 1, Store: store, IMEI: "356789101112131"},
		{ID: uuid.New(), Name: "iPhone 13", Brand: "Apple", Model: "13", Category: "Celulares",
			Price: decimal.NewFromInt(780), Cost: decimal.NewFromInt(640), Stock: 1, Store: store, IMEI: "356789101112132"},
		{ID: uuid.New(), Name: "Cargador 20W", Brand: "Apple", Category: "Accesorios",
			Price: decimal.NewFromInt(25000), Cost: decimal.NewFromInt(12000), Stock: 10, Store: store},
		funda,
		vidrio,
	}
	for i := range products {
		if err := s.Products().Create(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
	}

	rule := domain.BundleRule{
		ID:          uuid.New(),
		Name:        "iPhone 11 a 13 con funda y vidrio",
		Type:        domain.BundleRuleModelRange,
		Conditions:  domain.BundleConditions{Start: "11", End: "13"},
		Accessories: []uuid.UUID{funda.ID, vidrio.ID},
		Active:      true,
	}
	if err := s.BundleRules().Create(ctx, &rule); err != nil {
		return fmt.Errorf("failed to seed bundle rule: %w", err)
	}

	settings, err := s.Settings().Get(ctx)
	if err != nil {
		return err
	}
	settings.ExchangeRate = rate
	settings.PointValue = decimal.NewFromInt(50000)
	settings.EarnRate = decimal.NewFromInt(100000)
	return s.Settings().Update(ctx, settings)
}
