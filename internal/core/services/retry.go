package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the retries of a mutation that hit a concurrency conflict.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// DefaultRetryPolicy matches the configuration defaults.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, InitialInterval: 50 * time.Millisecond}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	eb.RandomizationFactor = 0.5
	eb.Multiplier = 2
	eb.MaxInterval = 2 * time.Second
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
}

// withConflictRetry runs fn, retrying only on apperrors.ErrConcurrencyConflict.
// Every other error is returned as is after the first attempt. The outcome is
// recorded under operation.
func (s *BaseService) withConflictRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, apperrors.ErrConcurrencyConflict) {
			s.Metrics.RecordConflictRetry(operation)
			s.LogDebug(ctx, "Concurrency conflict, retrying",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, s.Retry.backOff(ctx))
	s.Metrics.RecordMutation(operation, err)
	return err
}
