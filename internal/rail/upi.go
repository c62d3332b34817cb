package rail

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/transport"
)

// DefaultUPIDescriptor is the instant retail rail: small-value domestic
// transfers, free of charge, settled in seconds.
func DefaultUPIDescriptor() Descriptor {
	return Descriptor{
		Name:               UPI,
		MinAmount:          decimal.NewFromInt(1),
		MaxAmount:          decimal.NewFromInt(100_000),
		Currencies:         []string{"INR"},
		ProcessingEstimate: 5 * time.Second,
	}
}

type upiAdapter struct {
	base
}

// NewUPI creates the UPI adapter with the given descriptor.
func NewUPI(desc Descriptor, t transport.Transport) Adapter {
	a := &upiAdapter{base: base{desc: desc, trans: t}}
	a.requireAux = func(order *payment.Order) []error {
		if order.Instruction.WalletID == "" {
			return []error{missingField(desc.Name, "wallet (VPA) id is required")}
		}
		return nil
	}
	return a
}

// Fee is always zero on the instant rail, whatever the descriptor says.
func (a *upiAdapter) Fee(amount decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

func (a *upiAdapter) Execute(ctx context.Context, order *payment.Order) (payment.Receipt, error) {
	return a.execute(ctx, order, decimal.Zero)
}
