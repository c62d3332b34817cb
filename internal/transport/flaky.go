package transport

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/ashwinrao/railswitch/internal/errs"
	"github.com/ashwinrao/railswitch/internal/payment"
)

var transientKinds = []errs.Kind{
	errs.KindNetworkTimeout,
	errs.KindServiceUnavailable,
	errs.KindRateLimitExceeded,
	errs.KindConnectionError,
}

// Flaky wraps another transport and fails a configurable fraction of calls
// with transient errors. It exists for tests and load scripts; production
// wiring never constructs one.
type Flaky struct {
	next        Transport
	failureRate float64

	mutex sync.Mutex
	rng   *rand.Rand
}

// NewFlaky creates a failure-injecting transport. failureRate is in [0,1].
// The seed makes a run reproducible.
func NewFlaky(next Transport, failureRate float64, seed uint64) *Flaky {
	return &Flaky{
		next:        next,
		failureRate: failureRate,
		rng:         rand.New(rand.NewPCG(seed, seed)),
	}
}

func (f *Flaky) Submit(ctx context.Context, network string, order *payment.Order) (string, error) {
	if kind, failed := f.roll(); failed {
		return "", &errs.Error{Kind: kind, Rail: network, Msg: "injected transport failure"}
	}
	return f.next.Submit(ctx, network, order)
}

func (f *Flaky) Ping(ctx context.Context, network string) error {
	if kind, failed := f.roll(); failed {
		return &errs.Error{Kind: kind, Rail: network, Msg: "injected probe failure"}
	}
	return f.next.Ping(ctx, network)
}

func (f *Flaky) roll() (errs.Kind, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.rng.Float64() >= f.failureRate {
		return errs.KindUnknown, false
	}
	return transientKinds[f.rng.IntN(len(transientKinds))], true
}
