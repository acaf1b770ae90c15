package service

import (
	"context"
	"errors"
	"fmt"

	"phone-pos/internal/cas"
	"phone-pos/internal/domain"
	"phone-pos/internal/pricing"
	"phone-pos/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// upsertCustomer returns the customer for snapshot.DNI, creating it on its
// first transaction. Existing records are not overwritten.
func (s *saleService) upsertCustomer(ctx context.Context, snapshot domain.CustomerSnapshot) (*domain.Customer, error) {
	existing, err := s.repos.Customers.FindByDNI(ctx, snapshot.DNI)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrCustomerNotFound) {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	customer := &domain.Customer{
		ID:    uuid.New(),
		DNI:   snapshot.DNI,
		Name:  snapshot.Name,
		Phone: snapshot.Phone,
		Email: snapshot.Email,
	}
	err = s.repos.Customers.Create(ctx, customer)
	if errors.Is(err, repository.ErrCustomerAlreadyExists) {
		return s.repos.Customers.FindByDNI(ctx, snapshot.DNI)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Customer created", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

// applyPoints swaps in the post-sale balance and returns it. The balance is
// re-read on every attempt so concurrent sales for the same customer compose.
func (s *saleService) applyPoints(ctx context.Context, customerID uuid.UUID, ledger pricing.LedgerResult) (int, error) {
	var balance int

	err := cas.Do(ctx, s.opts.Policy, "customer", func(ctx context.Context) error {
		c, err := s.repos.Customers.FindByID(ctx, customerID)
		if err != nil {
			return err
		}
		if c.Points < ledger.PointsUsed {
			return domain.NewValidationError("points", "points balance changed during the sale")
		}

		balance = ledger.Balance(c.Points)
		if balance == c.Points {
			return nil
		}
		return s.repos.Customers.UpdatePoints(ctx, c.ID, c.Version, balance)
	})

	return balance, err
}

// adjustPoints adds delta (possibly negative) to a balance, clamping at zero.
func (s *saleService) adjustPoints(ctx context.Context, customerID uuid.UUID, delta int) error {
	return cas.Do(ctx, s.opts.Policy, "customer", func(ctx context.Context) error {
		c, err := s.repos.Customers.FindByID(ctx, customerID)
		if err != nil {
			return err
		}
		return s.repos.Customers.UpdatePoints(ctx, c.ID, c.Version, max(c.Points+delta, 0))
	})
}

// undoStack collects compensations for writes already made by a transaction.
type undoStack struct {
	steps []undoStep
}

type undoStep struct {
	name string
	fn   func(ctx context.Context) error
}

func (u *undoStack) push(name string, fn func(ctx context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

// run executes compensations newest first. Failures are logged and do not
// stop the remaining steps.
func (u *undoStack) run(ctx context.Context, logger *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	for i := len(u.steps) - 1; i >= 0; i-- {
		step := u.steps[i]
		if err := step.fn(ctx); err != nil {
			logger.Error("Compensation failed", zap.String("step", step.name), zap.Error(err))
		}
	}
}
