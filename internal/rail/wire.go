package rail

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/transport"
)

// DefaultWireDescriptor is the SWIFT wire rail: the only rail accepting
// international transfers and non-INR currencies. Settlement runs through
// correspondent banks, hence the auxiliary identifiers and the fee.
func DefaultWireDescriptor() Descriptor {
	return Descriptor{
		Name:               Wire,
		MinAmount:          decimal.NewFromInt(100),
		MaxAmount:          decimal.NewFromInt(10_000_000),
		Currencies:         []string{"USD", "EUR", "GBP", "INR"},
		FeeBase:            decimal.NewFromInt(25),
		FeePercent:         decimal.NewFromFloat(0.10),
		ProcessingEstimate: 48 * time.Hour,
		International:      true,
	}
}

type wireAdapter struct {
	base
}

// NewWire creates the SWIFT adapter with the given descriptor.
func NewWire(desc Descriptor, t transport.Transport) Adapter {
	a := &wireAdapter{base: base{desc: desc, trans: t}}
	a.requireAux = func(order *payment.Order) []error {
		var errors []error
		if order.Instruction.SwiftCode == "" {
			errors = append(errors, missingField(desc.Name, "SWIFT/BIC code is required"))
		}
		if order.Instruction.CorrespondentBank == "" {
			errors = append(errors, missingField(desc.Name, "correspondent bank is required"))
		}
		return errors
	}
	return a
}
