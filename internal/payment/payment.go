package payment

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeDomestic      Type = "DOMESTIC_TRANSFER"
	TypeInternational Type = "INTERNATIONAL_TRANSFER"
)

type Urgency string

const (
	UrgencyNormal  Urgency = "NORMAL"
	UrgencyInstant Urgency = "INSTANT"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusValidating Status = "VALIDATING"
	StatusProcessing Status = "PROCESSING"
	StatusRetry      Status = "RETRY"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Instruction is the external input to the settlement layer. Auxiliary
// fields are rail-specific and only checked by the rails that need them.
type Instruction struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	PaymentType   Type            `json:"payment_type"`
	Urgency       Urgency         `json:"urgency,omitempty"`
	Description   string          `json:"description,omitempty"`

	RoutingCode       string `json:"routing_code,omitempty"`
	WalletID          string `json:"wallet_id,omitempty"`
	SwiftCode         string `json:"swift_code,omitempty"`
	CorrespondentBank string `json:"correspondent_bank,omitempty"`
}

// Validate enforces the instruction-level business rules. Rail-specific
// constraints (limits, hours, auxiliary identifiers) are checked by the
// rail adapters, not here.
func (in Instruction) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Amount,
			validation.Required,
			validation.By(validatePositiveAmount),
		),
		validation.Field(&in.Currency,
			validation.Required,
			is.CurrencyCode,
		),
		validation.Field(&in.FromAccountID, validation.Required),
		validation.Field(&in.ToAccountID,
			validation.Required,
			validation.By(func(value interface{}) error {
				to, _ := value.(string)
				if to != "" && to == in.FromAccountID {
					return validation.NewError("validation_same_account", "source and destination accounts must differ")
				}
				return nil
			}),
		),
		validation.Field(&in.PaymentType,
			validation.Required,
			validation.In(TypeDomestic, TypeInternational),
		),
		validation.Field(&in.Urgency,
			validation.In(UrgencyNormal, UrgencyInstant),
		),
	)
}

func validatePositiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a decimal amount")
	}

	if !amount.IsPositive() {
		return validation.NewError("validation_invalid_amount", "amount must be greater than zero")
	}

	return nil
}

// Order is the per-request unit of work. It lives for a single Process
// call and is mutated only by the goroutine driving that call.
type Order struct {
	ID              string
	Instruction     Instruction
	Status          Status
	RetryCount      int
	MaxRetries      int
	ConvertedAmount *decimal.Decimal
	SelectedRail    string
	FailureReason   string
	CreatedAt       time.Time
}

// NewOrder builds an Order in the CREATED state with a fresh id.
func NewOrder(in Instruction, maxRetries int) *Order {
	return &Order{
		ID:          uuid.NewString(),
		Instruction: in,
		Status:      StatusCreated,
		MaxRetries:  maxRetries,
		CreatedAt:   time.Now(),
	}
}

// SettleAmount is the amount the ledger must cover: the converted amount
// when a conversion happened, the instructed amount otherwise.
func (o *Order) SettleAmount() decimal.Decimal {
	if o.ConvertedAmount != nil {
		return *o.ConvertedAmount
	}
	return o.Instruction.Amount
}

// Receipt is what a rail returns for an accepted settlement.
type Receipt struct {
	Reference   string          `json:"reference"`
	Fee         decimal.Decimal `json:"fee"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// SettlementResult crosses the public boundary; nothing else does.
type SettlementResult struct {
	Success                bool            `json:"success"`
	TransactionID          string          `json:"transaction_id"`
	RailUsed               string          `json:"rail_used,omitempty"`
	Fee                    decimal.Decimal `json:"fee"`
	ProcessingTimeEstimate time.Duration   `json:"processing_time_estimate,omitempty"`
	FailoverUsed           bool            `json:"failover_used"`
	RetryCount             int             `json:"retry_count"`
	Reference              string          `json:"reference,omitempty"`
	Error                  string          `json:"error,omitempty"`
	ErrorKind              string          `json:"error_kind,omitempty"`
	RequiresManualReview   bool            `json:"requires_manual_review,omitempty"`
}
