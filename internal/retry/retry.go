package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/ashwinrao/railswitch/internal/errs"
	"github.com/ashwinrao/railswitch/internal/failover"
	"github.com/ashwinrao/railswitch/internal/payment"
)

// ErrExhausted marks an order that burned through its retry budget.
var ErrExhausted = errors.New("maximum retry attempts exceeded")

type Config struct {
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	MaxRetries        int
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.BackoffMultiplier <= 1 {
		c.BackoffMultiplier = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Scheduler drives bounded retry loops with exponential backoff,
// re-invoking the failover pass on each attempt.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger
}

func NewScheduler(cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{cfg: cfg.withDefaults(), logger: logger}
}

// MaxRetries exposes the retry budget for order construction.
func (s *Scheduler) MaxRetries() int {
	return s.cfg.MaxRetries
}

// Delay returns the backoff before attempt n: baseDelay scaled by the
// multiplier, capped at maxDelay. Non-decreasing in n.
func (s *Scheduler) Delay(n int) time.Duration {
	d := time.Duration(float64(s.cfg.BaseDelay) * math.Pow(s.cfg.BackoffMultiplier, float64(n)))
	if d <= 0 || d > s.cfg.MaxDelay {
		return s.cfg.MaxDelay
	}
	return d
}

// Run re-invokes attempt while the order has retry budget and the last
// failure is transient. lastErr is the failure that triggered the loop.
// Stops immediately on success or on a terminal error kind; exhausting the
// budget returns ErrExhausted wrapping the final failure.
func (s *Scheduler) Run(
	ctx context.Context,
	order *payment.Order,
	lastErr error,
	attempt func(ctx context.Context) (failover.Outcome, error),
) (failover.Outcome, error) {
	var outcome failover.Outcome

	for errs.Retryable(lastErr) {
		if order.RetryCount >= order.MaxRetries {
			order.Status = payment.StatusFailed
			return outcome, errors.Join(ErrExhausted, lastErr)
		}

		order.Status = payment.StatusRetry
		delay := s.Delay(order.RetryCount)

		s.logger.Info("scheduling retry",
			slog.String("order", order.ID),
			slog.Int("attempt", order.RetryCount+1),
			slog.Int("max_retries", order.MaxRetries),
			slog.Duration("delay", delay))

		if err := sleep(ctx, delay); err != nil {
			return outcome, err
		}

		order.Status = payment.StatusProcessing
		order.RetryCount++

		var err error
		outcome, err = attempt(ctx)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
	}

	return outcome, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
