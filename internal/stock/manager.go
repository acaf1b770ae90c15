// Package stock applies inventory deltas with per-record CAS and undoes
// them when a transaction fails part way.
package stock

import (
	"context"
	"errors"
	"fmt"

	"phone-pos/internal/cas"
	"phone-pos/internal/domain"
	"phone-pos/internal/metrics"
	"phone-pos/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Delta is a requested debit of Quantity units of one product.
type Delta struct {
	ProductID uuid.UUID
	Quantity  int
}

// Applied records one committed debit. Before is the record as it was just
// before the swap, so a deleted serialized unit can be re-created.
type Applied struct {
	Before   domain.Product
	Quantity int
	Deleted  bool
}

type Manager struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	policy     cas.Policy
	logger     *zap.Logger
}

func NewManager(products repository.ProductRepository, categories repository.CategoryRepository, policy cas.Policy, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{products: products, categories: categories, policy: policy, logger: logger}
}

// Aggregate merges deltas for the same product, keeping first-seen order and
// dropping zero quantities.
func Aggregate(deltas []Delta) ([]Delta, error) {
	index := make(map[uuid.UUID]int, len(deltas))
	var out []Delta
	for _, d := range deltas {
		if d.Quantity < 0 {
			return nil, domain.NewValidationError("quantity", fmt.Sprintf("negative quantity for product %s", d.ProductID))
		}
		if d.Quantity == 0 {
			continue
		}
		if i, ok := index[d.ProductID]; ok {
			out[i].Quantity += d.Quantity
			continue
		}
		index[d.ProductID] = len(out)
		out = append(out, d)
	}
	return out, nil
}

// SubtractReserved removes units already debited by a reservation so that
// completing it only debits the excess.
func SubtractReserved(deltas []Delta, productID uuid.UUID, reserved int) []Delta {
	out := make([]Delta, 0, len(deltas))
	for _, d := range deltas {
		if d.ProductID == productID && reserved > 0 {
			covered := min(d.Quantity, reserved)
			d.Quantity -= covered
			reserved -= covered
		}
		if d.Quantity > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Debit validates every delta against one snapshot before touching anything,
// then applies them one product at a time. If any swap fails the lines
// already applied are reverted and the original error is returned.
func (m *Manager) Debit(ctx context.Context, store string, deltas []Delta) ([]Applied, error) {
	lines, err := Aggregate(deltas)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	serialized, err := m.Validate(ctx, store, lines)
	if err != nil {
		return nil, err
	}

	applied := make([]Applied, 0, len(lines))
	for _, line := range lines {
		a, err := m.debitOne(ctx, store, line.ProductID, line.Quantity, serialized[line.ProductID])
		if err != nil {
			m.logger.Warn("Stock debit failed, compensating",
				zap.String("product_id", line.ProductID.String()),
				zap.Int("applied", len(applied)),
				zap.Error(err),
			)
			if revertErr := m.Revert(ctx, applied); revertErr != nil {
				return nil, errors.Join(err, revertErr)
			}
			return nil, err
		}
		applied = append(applied, a)
	}

	return applied, nil
}

// Validate checks existence, store affinity and sufficiency of aggregated
// deltas against a single read of the products. It returns whether each
// product belongs to a serialized category.
func (m *Manager) Validate(ctx context.Context, store string, lines []Delta) (map[uuid.UUID]bool, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	snapshot, err := m.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock snapshot: %w", err)
	}
	byID := make(map[uuid.UUID]domain.Product, len(snapshot))
	for _, p := range snapshot {
		byID[p.ID] = p
	}

	serialized := make(map[uuid.UUID]bool, len(lines))
	categoryCache := map[string]bool{}
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, repository.ErrProductNotFound)
		}
		if p.Store != store {
			return nil, &domain.StoreMismatchError{ProductID: p.ID, Expected: store, Actual: p.Store}
		}
		if p.Stock < line.Quantity {
			return nil, &domain.InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: line.Quantity, Available: p.Stock}
		}

		s, cached := categoryCache[p.Category]
		if !cached {
			s, err = m.isSerialized(ctx, p.Category)
			if err != nil {
				return nil, err
			}
			categoryCache[p.Category] = s
		}
		serialized[p.ID] = s
	}

	return serialized, nil
}

func (m *Manager) isSerialized(ctx context.Context, category string) (bool, error) {
	c, err := m.categories.FindByName(ctx, category)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load category %q: %w", category, err)
	}
	return c.Serialized, nil
}

// debitOne swaps a single product's stock down by qty. A serialized record
// reaching zero is deleted; any other record is kept at zero. The record
// passed validation, so one that vanishes meanwhile was sold out from under
// us and reports as insufficient stock.
func (m *Manager) debitOne(ctx context.Context, store string, id uuid.UUID, qty int, serialized bool) (Applied, error) {
	var applied Applied

	soldOut := func(name string) error {
		return &domain.InsufficientStockError{ProductID: id, Name: name, Requested: qty, Available: 0}
	}

	err := cas.Do(ctx, m.policy, "product", func(ctx context.Context) error {
		p, err := m.products.FindByID(ctx, id)
		if errors.Is(err, repository.ErrProductNotFound) {
			return soldOut("")
		}
		if err != nil {
			return err
		}
		if p.Store != store {
			return &domain.StoreMismatchError{ProductID: p.ID, Expected: store, Actual: p.Store}
		}
		if p.Stock < qty {
			return &domain.InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Stock}
		}

		remaining := p.Stock - qty
		if remaining == 0 && serialized {
			if err := m.products.Delete(ctx, p.ID, p.Version); err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return soldOut(p.Name)
				}
				return err
			}
			applied = Applied{Before: *p, Quantity: qty, Deleted: true}
			return nil
		}

		if err := m.products.UpdateStock(ctx, p.ID, p.Version, remaining); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return soldOut(p.Name)
			}
			return err
		}
		applied = Applied{Before: *p, Quantity: qty}
		return nil
	})

	return applied, err
}

// Revert re-credits applied debits in reverse order. Deleted records are
// re-created from their pre-image. Every line is attempted; failures are
// joined into the returned error.
func (m *Manager) Revert(ctx context.Context, applied []Applied) error {
	var errs []error

	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		if err := m.revertOne(ctx, a); err != nil {
			metrics.StockCompensations.WithLabelValues("failed").Inc()
			m.logger.Error("Failed to compensate stock",
				zap.String("product_id", a.Before.ID.String()),
				zap.Int("quantity", a.Quantity),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("failed to revert product %s: %w", a.Before.ID, err))
			continue
		}
		metrics.StockCompensations.WithLabelValues("reverted").Inc()
	}

	return errors.Join(errs...)
}

func (m *Manager) revertOne(ctx context.Context, a Applied) error {
	if a.Deleted {
		return m.recreate(ctx, a.Before, a.Quantity)
	}

	return cas.Do(ctx, m.policy, "product", func(ctx context.Context) error {
		p, err := m.products.FindByID(ctx, a.Before.ID)
		if errors.Is(err, repository.ErrProductNotFound) {
			return m.recreate(ctx, a.Before, a.Quantity)
		}
		if err != nil {
			return err
		}
		return m.products.UpdateStock(ctx, p.ID, p.Version, p.Stock+a.Quantity)
	})
}

func (m *Manager) recreate(ctx context.Context, before domain.Product, qty int) error {
	restored := before
	restored.Stock = qty
	restored.Version = 0
	return m.products.Create(ctx, &restored)
}

// Intake registers a new record, such as a traded-in device.
func (m *Manager) Intake(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Stock <= 0 {
		return domain.NewValidationError("stock", "intake requires positive stock")
	}
	if err := m.products.Create(ctx, p); err != nil {
		return fmt.Errorf("failed to register product: %w", err)
	}
	return nil
}
