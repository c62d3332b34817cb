package rail

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/transport"
)

// DefaultNEFTDescriptor is the batched transfer rail: mid-value domestic
// transfers settled in half-hourly batches, around the clock.
func DefaultNEFTDescriptor() Descriptor {
	return Descriptor{
		Name:               NEFT,
		MinAmount:          decimal.NewFromInt(1),
		MaxAmount:          decimal.NewFromInt(1_000_000),
		Currencies:         []string{"INR"},
		FeeBase:            decimal.NewFromInt(2),
		FeePercent:         decimal.NewFromFloat(0.02),
		ProcessingEstimate: 2 * time.Hour,
	}
}

type neftAdapter struct {
	base
}

// NewNEFT creates the NEFT adapter with the given descriptor.
func NewNEFT(desc Descriptor, t transport.Transport) Adapter {
	a := &neftAdapter{base: base{desc: desc, trans: t}}
	a.requireAux = func(order *payment.Order) []error {
		if order.Instruction.RoutingCode == "" {
			return []error{missingField(desc.Name, "routing (IFSC) code is required")}
		}
		return nil
	}
	return a
}
