package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phone-pos/internal/cas"
	"phone-pos/internal/domain"
	"phone-pos/internal/metrics"
	"phone-pos/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferStrategy names how units reached the destination store.
type TransferStrategy string

const (
	// TransferMerge added the units to an identical record already at the destination.
	TransferMerge TransferStrategy = "merge"
	// TransferMove relabeled the whole source record with the destination store.
	TransferMove TransferStrategy = "move"
	// TransferSplit debited the source and created a new record at the destination.
	TransferSplit TransferStrategy = "split"
)

type TransferResult struct {
	Strategy    TransferStrategy `json:"strategy"`
	Source      *domain.Product  `json:"source,omitempty"`
	Destination *domain.Product  `json:"destination"`
}

// Transfer moves qty units of a product to target. The source is debited
// first; if the destination write fails the source debit is reverted.
func (m *Manager) Transfer(ctx context.Context, productID uuid.UUID, qty int, target string) (*TransferResult, error) {
	if qty <= 0 {
		return nil, domain.NewValidationError("quantity", "must be greater than zero")
	}
	if target == "" {
		return nil, domain.NewValidationError("target_store", "is required")
	}

	source, err := m.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if source.Store == target {
		return nil, domain.NewValidationError("target_store", "product is already in that store")
	}
	if source.Stock < qty {
		return nil, &domain.InsufficientStockError{ProductID: source.ID, Name: source.Name, Requested: qty, Available: source.Stock}
	}

	dest, err := m.products.FindIdentical(ctx, source, target)
	switch {
	case err == nil:
		return m.merge(ctx, source, dest, qty)
	case !errors.Is(err, repository.ErrProductNotFound):
		return nil, fmt.Errorf("failed to look up destination: %w", err)
	case qty == source.Stock:
		return m.move(ctx, source, target)
	default:
		return m.split(ctx, source, qty, target)
	}
}

func (m *Manager) merge(ctx context.Context, source, dest *domain.Product, qty int) (*TransferResult, error) {
	serialized, err := m.isSerialized(ctx, source.Category)
	if err != nil {
		return nil, err
	}

	applied, err := m.debitOne(ctx, source.Store, source.ID, qty, serialized)
	if err != nil {
		return nil, err
	}

	err = cas.Do(ctx, m.policy, "product", func(ctx context.Context) error {
		current, err := m.products.FindByID(ctx, dest.ID)
		if err != nil {
			return err
		}
		return m.products.UpdateStock(ctx, current.ID, current.Version, current.Stock+qty)
	})
	if err != nil {
		return nil, m.compensateTransfer(ctx, applied, err)
	}

	return m.finish(ctx, TransferMerge, source.ID, dest.ID)
}

func (m *Manager) move(ctx context.Context, source *domain.Product, target string) (*TransferResult, error) {
	err := cas.Do(ctx, m.policy, "product", func(ctx context.Context) error {
		current, err := m.products.FindByID(ctx, source.ID)
		if err != nil {
			return err
		}
		if current.Store != source.Store {
			return &domain.StoreMismatchError{ProductID: current.ID, Expected: source.Store, Actual: current.Store}
		}
		if current.Stock != source.Stock {
			return &domain.InsufficientStockError{ProductID: current.ID, Name: current.Name, Requested: source.Stock, Available: current.Stock}
		}
		return m.products.MoveStore(ctx, current.ID, current.Version, target)
	})
	if err != nil {
		return nil, err
	}

	return m.finish(ctx, TransferMove, uuid.Nil, source.ID)
}

func (m *Manager) split(ctx context.Context, source *domain.Product, qty int, target string) (*TransferResult, error) {
	applied, err := m.debitOne(ctx, source.Store, source.ID, qty, false)
	if err != nil {
		return nil, err
	}

	created := *source
	created.ID = uuid.New()
	created.Stock = qty
	created.Store = target
	created.Version = 0
	created.CreatedAt = time.Time{}

	if err := m.products.Create(ctx, &created); err != nil {
		return nil, m.compensateTransfer(ctx, applied, err)
	}

	return m.finish(ctx, TransferSplit, source.ID, created.ID)
}

func (m *Manager) compensateTransfer(ctx context.Context, applied Applied, cause error) error {
	m.logger.Warn("Transfer destination write failed, restoring source",
		zap.String("product_id", applied.Before.ID.String()),
		zap.Error(cause),
	)
	if err := m.Revert(ctx, []Applied{applied}); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// finish reloads both sides for the response. A source deleted at zero is
// reported as nil.
func (m *Manager) finish(ctx context.Context, strategy TransferStrategy, sourceID, destID uuid.UUID) (*TransferResult, error) {
	metrics.TransfersCompleted.WithLabelValues(string(strategy)).Inc()

	result := &TransferResult{Strategy: strategy}
	if sourceID != uuid.Nil {
		src, err := m.products.FindByID(ctx, sourceID)
		if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		result.Source = src
	}

	dest, err := m.products.FindByID(ctx, destID)
	if err != nil {
		return nil, err
	}
	result.Destination = dest

	m.logger.Info("Stock transferred",
		zap.String("strategy", string(strategy)),
		zap.String("destination_id", destID.String()),
		zap.String("store", dest.Store),
	)
	return result, nil
}
