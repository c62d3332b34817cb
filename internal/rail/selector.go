package rail

import (
	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/payment"
)

// HomeCurrency is the domestic settlement currency. Anything else routes
// through the wire rail.
const HomeCurrency = "INR"

// Selector maps payment attributes to a preferred rail. It is a pure
// function of the order: no health state, no side effects, so identical
// inputs always yield the identical primary rail.
type Selector struct {
	HighValueThreshold  decimal.Decimal
	SmallValueThreshold decimal.Decimal
}

// NewSelector creates a selector with the standard thresholds.
func NewSelector() Selector {
	return Selector{
		HighValueThreshold:  decimal.NewFromInt(200_000),
		SmallValueThreshold: decimal.NewFromInt(1_000),
	}
}

// Select returns the preferred rail name for the order.
func (s Selector) Select(order *payment.Order) string {
	in := order.Instruction

	if in.PaymentType == payment.TypeInternational || in.Currency != HomeCurrency {
		return Wire
	}

	amount := order.SettleAmount()

	if amount.GreaterThanOrEqual(s.HighValueThreshold) {
		return RTGS
	}

	if amount.LessThanOrEqual(s.SmallValueThreshold) || in.Urgency == payment.UrgencyInstant {
		return UPI
	}

	return NEFT
}
