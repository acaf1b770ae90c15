// Package sequence mints human-readable receipt numbers from CAS counters.
package sequence

import (
	"context"
	"fmt"

	"phone-pos/internal/cas"
	"phone-pos/internal/domain"
	"phone-pos/internal/metrics"
	"phone-pos/internal/repository"

	"go.uber.org/zap"
)

// Generator mints receipt numbers such as "V-00001". Every successful call
// returns a number no other call has returned for the same series.
type Generator struct {
	store  repository.CounterStore
	policy cas.Policy
	logger *zap.Logger
}

func NewGenerator(store repository.CounterStore, policy cas.Policy, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{store: store, policy: policy, logger: logger}
}

// Format renders a counter value with its series prefix, zero padded to five digits.
func Format(prefix string, value int64) string {
	return fmt.Sprintf("%s%05d", prefix, value)
}

// NextReceipt increments the series counter and returns the formatted number.
// Conflicts are retried; anything else, or exhausted retries, yields a
// *domain.CounterCommitError.
func (g *Generator) NextReceipt(ctx context.Context, series string) (string, error) {
	var receipt string

	err := cas.Do(ctx, g.policy, "counter", func(ctx context.Context) error {
		counter, err := g.store.Get(ctx, series)
		if err != nil {
			return err
		}

		next := counter.Value + 1
		if err := g.store.CompareAndSwap(ctx, series, counter.Value, next); err != nil {
			return err
		}

		receipt = Format(counter.Prefix, next)
		return nil
	})
	if err != nil {
		metrics.ReceiptMintFailures.WithLabelValues(series).Inc()
		g.logger.Error("Failed to mint receipt number", zap.String("series", series), zap.Error(err))
		return "", &domain.CounterCommitError{Series: series, Err: err}
	}

	return receipt, nil
}
