package transport

import (
	"context"

	"github.com/ashwinrao/railswitch/internal/payment"
)

// Transport is the wire boundary to a settlement network. Rail adapters own
// validation and fees; the transport only carries the submission itself.
// Swapping the implementation is how test configurations inject failures
// without touching the production path.
type Transport interface {
	// Submit dispatches an order to the named network and returns the
	// network-assigned reference.
	Submit(ctx context.Context, network string, order *payment.Order) (string, error)
	// Ping checks reachability of the named network. Used by health probes.
	Ping(ctx context.Context, network string) error
}

// Func adapts plain functions to the Transport interface.
type Func struct {
	SubmitFn func(ctx context.Context, network string, order *payment.Order) (string, error)
	PingFn   func(ctx context.Context, network string) error
}

func (f Func) Submit(ctx context.Context, network string, order *payment.Order) (string, error) {
	if f.SubmitFn == nil {
		return "", nil
	}
	return f.SubmitFn(ctx, network, order)
}

func (f Func) Ping(ctx context.Context, network string) error {
	if f.PingFn == nil {
		return nil
	}
	return f.PingFn(ctx, network)
}
