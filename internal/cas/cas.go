// Package cas runs optimistic read-modify-write loops against versioned records.
package cas

import (
	"context"
	"errors"
	"time"

	"phone-pos/internal/metrics"
	"phone-pos/internal/repository"

	"github.com/sethvargo/go-retry"
)

// Policy bounds a CAS loop.
type Policy struct {
	Retries uint64
	Base    time.Duration
}

// DefaultPolicy is used when a caller leaves its policy zero.
var DefaultPolicy = Policy{Retries: 8, Base: 5 * time.Millisecond}

func (p Policy) backoff() retry.Backoff {
	if p.Base <= 0 {
		p = DefaultPolicy
	}
	b := retry.NewExponential(p.Base)
	b = retry.WithJitterPercent(25, b)
	b = retry.WithCappedDuration(50*p.Base, b)
	return retry.WithMaxRetries(p.Retries, b)
}

// Do runs attempt until it succeeds, fails with an error other than
// repository.ErrVersionConflict, or the retries run out. Each attempt must
// re-read the record it swaps. record labels the conflict metric.
func Do(ctx context.Context, p Policy, record string, attempt func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := attempt(ctx)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.CASConflicts.WithLabelValues(record).Inc()
			return retry.RetryableError(err)
		}
		return err
	})
}
