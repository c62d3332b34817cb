package rail

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/errs"
	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/transport"
)

const (
	Wire = "SWIFT"
	RTGS = "RTGS"
	NEFT = "NEFT"
	UPI  = "UPI"
)

// Priority is the fixed tie-break order used by failover when fee and
// processing estimate are equal.
var Priority = []string{RTGS, NEFT, UPI, Wire}

// Descriptor is the static shape of a settlement rail: limits, currency
// whitelist, fee model and operating window.
type Descriptor struct {
	Name               string          `json:"name"`
	MinAmount          decimal.Decimal `json:"min_amount"`
	MaxAmount          decimal.Decimal `json:"max_amount"`
	Currencies         []string        `json:"currencies"`
	FeeBase            decimal.Decimal `json:"fee_base"`
	FeePercent         decimal.Decimal `json:"fee_percent"`
	OpenHour           int             `json:"open_hour"`
	CloseHour          int             `json:"close_hour"` // equal to OpenHour means 24x7
	ProcessingEstimate time.Duration   `json:"processing_estimate"`
	International      bool            `json:"international"`
}

// InOperatingWindow reports whether t falls inside the rail's operating
// hours. Windows may span midnight (OpenHour > CloseHour).
func (d Descriptor) InOperatingWindow(t time.Time) bool {
	if d.OpenHour == d.CloseHour {
		return true
	}

	h := t.Hour()
	if d.OpenHour < d.CloseHour {
		return h >= d.OpenHour && h < d.CloseHour
	}
	return h >= d.OpenHour || h < d.CloseHour
}

// Adapter is one settlement network. Validate and Fee are pure; Execute
// performs the (simulated) network call through the injected transport.
type Adapter interface {
	Name() string
	Descriptor() Descriptor
	Validate(order *payment.Order) []error
	Fee(amount decimal.Decimal) decimal.Decimal
	Execute(ctx context.Context, order *payment.Order) (payment.Receipt, error)
}

// base carries the behaviour shared by all rails. Variants supply their
// descriptor and auxiliary-field checks.
type base struct {
	desc       Descriptor
	trans      transport.Transport
	requireAux func(order *payment.Order) []error
}

func (b *base) Name() string {
	return b.desc.Name
}

func (b *base) Descriptor() Descriptor {
	return b.desc
}

func (b *base) Validate(order *payment.Order) []error {
	var errors []error

	in := order.Instruction
	amount := order.SettleAmount()

	if in.PaymentType == payment.TypeInternational && !b.desc.International {
		errors = append(errors, &errs.Error{
			Kind: errs.KindValidation, Rail: b.desc.Name,
			Msg: "international transfers are not supported",
		})
	}

	if !b.supportsCurrency(in.Currency) {
		errors = append(errors, &errs.Error{
			Kind: errs.KindValidation, Rail: b.desc.Name,
			Msg: "currency " + in.Currency + " is not supported",
		})
	}

	if amount.LessThan(b.desc.MinAmount) {
		errors = append(errors, &errs.Error{
			Kind: errs.KindValidation, Rail: b.desc.Name,
			Msg: "amount below minimum " + b.desc.MinAmount.String(),
		})
	}

	if amount.GreaterThan(b.desc.MaxAmount) {
		errors = append(errors, &errs.Error{
			Kind: errs.KindValidation, Rail: b.desc.Name,
			Msg: "amount above maximum " + b.desc.MaxAmount.String(),
		})
	}

	if !b.desc.InOperatingWindow(time.Now()) {
		errors = append(errors, &errs.Error{
			Kind: errs.KindValidation, Rail: b.desc.Name,
			Msg: "not within operating hours",
		})
	}

	if b.requireAux != nil {
		errors = append(errors, b.requireAux(order)...)
	}

	return errors
}

func (b *base) supportsCurrency(code string) bool {
	for _, c := range b.desc.Currencies {
		if c == code {
			return true
		}
	}
	return false
}

// Fee is flat base plus percentage of the amount, rounded to 2 decimals.
func (b *base) Fee(amount decimal.Decimal) decimal.Decimal {
	pct := amount.Mul(b.desc.FeePercent).Div(decimal.NewFromInt(100))
	return b.desc.FeeBase.Add(pct).Round(2)
}

func (b *base) Execute(ctx context.Context, order *payment.Order) (payment.Receipt, error) {
	return b.execute(ctx, order, b.Fee(order.SettleAmount()))
}

func (b *base) execute(ctx context.Context, order *payment.Order, fee decimal.Decimal) (payment.Receipt, error) {
	ref, err := b.trans.Submit(ctx, b.desc.Name, order)
	if err != nil {
		if errs.KindOf(err) != errs.KindUnknown {
			return payment.Receipt{}, err
		}
		return payment.Receipt{}, errs.Wrap(errs.KindConnectionError, b.desc.Name, err)
	}

	return payment.Receipt{
		Reference:   ref,
		Fee:         fee,
		ProcessedAt: time.Now(),
	}, nil
}

func missingField(railName, msg string) error {
	return &errs.Error{Kind: errs.KindValidation, Rail: railName, Msg: msg}
}
