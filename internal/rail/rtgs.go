package rail

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/transport"
)

// DefaultRTGSDescriptor is the real-time gross settlement rail: high-value
// domestic transfers, settled individually during banking hours.
func DefaultRTGSDescriptor() Descriptor {
	return Descriptor{
		Name:               RTGS,
		MinAmount:          decimal.NewFromInt(200_000),
		MaxAmount:          decimal.NewFromInt(500_000_000),
		Currencies:         []string{"INR"},
		FeeBase:            decimal.NewFromInt(25),
		FeePercent:         decimal.NewFromFloat(0.01),
		OpenHour:           7,
		CloseHour:          18,
		ProcessingEstimate: 30 * time.Minute,
	}
}

type rtgsAdapter struct {
	base
}

// NewRTGS creates the RTGS adapter with the given descriptor.
func NewRTGS(desc Descriptor, t transport.Transport) Adapter {
	a := &rtgsAdapter{base: base{desc: desc, trans: t}}
	a.requireAux = func(order *payment.Order) []error {
		if order.Instruction.RoutingCode == "" {
			return []error{missingField(desc.Name, "routing (IFSC) code is required")}
		}
		return nil
	}
	return a
}
