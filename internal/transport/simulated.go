package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashwinrao/railswitch/internal/payment"
)

// Simulated is the deterministic production-shaped transport: every
// submission is accepted after a fixed per-network latency. Real network
// unreliability is modelled by Flaky, which is wired in only by tests and
// load scripts.
type Simulated struct {
	latency map[string]time.Duration
}

func NewSimulated(latency map[string]time.Duration) *Simulated {
	return &Simulated{latency: latency}
}

func (s *Simulated) Submit(ctx context.Context, network string, order *payment.Order) (string, error) {
	if err := s.wait(ctx, network); err != nil {
		return "", err
	}

	ref := fmt.Sprintf("%s-%s", strings.ToUpper(network), strings.ToUpper(uuid.NewString()[:8]))
	return ref, nil
}

func (s *Simulated) Ping(ctx context.Context, network string) error {
	return s.wait(ctx, network)
}

func (s *Simulated) wait(ctx context.Context, network string) error {
	d := s.latency[network]
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
