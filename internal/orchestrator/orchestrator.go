package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/errs"
	"github.com/ashwinrao/railswitch/internal/failover"
	"github.com/ashwinrao/railswitch/internal/metrics"
	"github.com/ashwinrao/railswitch/internal/notify"
	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/retry"
)

const auditCategory = "PAYMENT"

// Request is one settlement submission. AccountBalance is a snapshot
// supplied by the ledger collaborator; this layer never mutates balances.
type Request struct {
	Instruction    payment.Instruction
	AccountBalance decimal.Decimal
	TargetCurrency string
	Recipients     []string
}

// Orchestrator is the top-level use case: validate, convert, check funds,
// execute with failover and retry, then report and notify.
type Orchestrator struct {
	rc *ResilienceContext
}

func New(rc *ResilienceContext) *Orchestrator {
	return &Orchestrator{rc: rc}
}

// Process runs a payment to a terminal state. It always returns a
// SettlementResult; internal failures are reclassified into the public
// error taxonomy and never escape as raw errors.
func (o *Orchestrator) Process(ctx context.Context, req Request) payment.SettlementResult {
	order := payment.NewOrder(req.Instruction, o.rc.Retry.MaxRetries())
	o.emit(metrics.MetricEvent{Type: metrics.EventPaymentSubmitted})

	o.transition(order, payment.StatusValidating, "validation_started", nil)

	if err := req.Instruction.Validate(); err != nil {
		return o.fail(ctx, order, req, errs.Wrap(errs.KindValidation, "", err))
	}

	if err := o.convert(order, req.TargetCurrency); err != nil {
		return o.fail(ctx, order, req, err)
	}

	if req.AccountBalance.LessThan(order.SettleAmount()) {
		return o.fail(ctx, order, req, errs.Newf(errs.KindFunds,
			"insufficient funds: balance %s is below %s",
			req.AccountBalance, order.SettleAmount()))
	}

	o.transition(order, payment.StatusProcessing, "processing_started", nil)

	start := time.Now()
	outcome, err := o.rc.Failover.Process(ctx, order)

	if err != nil && errs.Retryable(err) {
		outcome, err = o.rc.Retry.Run(ctx, order, err, func(ctx context.Context) (failover.Outcome, error) {
			o.emit(metrics.MetricEvent{Type: metrics.EventRetryScheduled})
			return o.rc.Failover.Process(ctx, order)
		})
	}

	if err == nil {
		return o.complete(ctx, order, req, outcome, time.Since(start))
	}

	if outcome.RequiresManualReview {
		return o.manualReview(ctx, order, req, outcome)
	}

	if errors.Is(err, retry.ErrExhausted) {
		return o.fail(ctx, order, req, errs.New(errs.KindServiceUnavailable, "maximum retry attempts exceeded"))
	}

	return o.fail(ctx, order, req, err)
}

func (o *Orchestrator) convert(order *payment.Order, target string) error {
	if target == "" || target == order.Instruction.Currency {
		return nil
	}

	conv, err := o.rc.FX.Convert(order.Instruction.Amount, order.Instruction.Currency, target)
	if err != nil {
		return err
	}

	order.ConvertedAmount = &conv.Amount
	o.rc.Logger.Info("converted amount",
		slog.String("order", order.ID),
		slog.String("from", conv.From),
		slog.String("to", conv.To),
		slog.String("rate", conv.Rate.String()),
		slog.String("spread", conv.Spread.String()),
		slog.String("converted", conv.Amount.String()))
	return nil
}

func (o *Orchestrator) complete(ctx context.Context, order *payment.Order, req Request, outcome failover.Outcome, elapsed time.Duration) payment.SettlementResult {
	o.transition(order, payment.StatusCompleted, "settlement_completed", map[string]any{
		"rail":      outcome.Rail,
		"reference": outcome.Receipt.Reference,
		"failover":  outcome.FailoverUsed,
	})

	if outcome.FailoverUsed {
		o.emit(metrics.MetricEvent{Type: metrics.EventFailoverUsed})
	}
	o.emit(metrics.MetricEvent{
		Type:     metrics.EventPaymentSettled,
		Rail:     outcome.Rail,
		Fee:      outcome.Receipt.Fee,
		Duration: elapsed,
	})

	result := payment.SettlementResult{
		Success:                true,
		TransactionID:          order.ID,
		RailUsed:               outcome.Rail,
		Fee:                    outcome.Receipt.Fee,
		ProcessingTimeEstimate: o.estimate(outcome.Rail),
		FailoverUsed:           outcome.FailoverUsed,
		RetryCount:             order.RetryCount,
		Reference:              outcome.Receipt.Reference,
	}

	o.notify(ctx, notify.EventPaymentCompleted, req.Recipients, order, result)
	return result
}

func (o *Orchestrator) fail(ctx context.Context, order *payment.Order, req Request, err error) payment.SettlementResult {
	kind := errs.KindOf(err)
	order.FailureReason = err.Error()

	o.transition(order, payment.StatusFailed, "settlement_failed", map[string]any{
		"reason": order.FailureReason,
		"kind":   kind.String(),
	})
	o.emit(metrics.MetricEvent{Type: metrics.EventPaymentFailed, Rail: order.SelectedRail})

	result := payment.SettlementResult{
		TransactionID: order.ID,
		RetryCount:    order.RetryCount,
		FailoverUsed:  false,
		Error:         err.Error(),
		ErrorKind:     kind.String(),
	}

	o.notify(ctx, notify.EventPaymentFailed, req.Recipients, order, result)
	return result
}

func (o *Orchestrator) manualReview(ctx context.Context, order *payment.Order, req Request, outcome failover.Outcome) payment.SettlementResult {
	order.FailureReason = "all settlement rails exhausted, manual review required"

	o.transition(order, payment.StatusFailed, "manual_review_required", map[string]any{
		"attempts": len(outcome.Errors),
	})
	o.emit(metrics.MetricEvent{Type: metrics.EventManualReview})
	o.emit(metrics.MetricEvent{Type: metrics.EventPaymentFailed, Rail: order.SelectedRail})

	result := payment.SettlementResult{
		TransactionID:        order.ID,
		RetryCount:           order.RetryCount,
		FailoverUsed:         outcome.FailoverUsed,
		Error:                joinErrors(outcome.Errors),
		ErrorKind:            errs.KindManualReview.String(),
		RequiresManualReview: true,
	}

	o.notify(ctx, notify.EventManualReviewNeeded, req.Recipients, order, result)
	return result
}

func (o *Orchestrator) estimate(railName string) time.Duration {
	for _, a := range o.rc.Adapters {
		if a.Name() == railName {
			return a.Descriptor().ProcessingEstimate
		}
	}
	return 0
}

// transition moves the order to the next status and writes the audit
// record for the boundary.
func (o *Orchestrator) transition(order *payment.Order, to payment.Status, action string, metadata map[string]any) {
	before := order.Status
	order.Status = to

	o.rc.Audit.Log(auditCategory, order.ID, action, "system", string(before), string(to), metadata)
}

// notify is fire-and-forget: delivery failures are logged, never returned.
func (o *Orchestrator) notify(ctx context.Context, event notify.Event, recipients []string, order *payment.Order, result payment.SettlementResult) {
	payload := map[string]any{
		"transaction_id": order.ID,
		"status":         string(order.Status),
		"rail":           result.RailUsed,
		"amount":         order.SettleAmount().String(),
		"currency":       order.Instruction.Currency,
	}

	go func() {
		if err := o.rc.Notify.Send(context.WithoutCancel(ctx), event, recipients, payload); err != nil {
			o.rc.Logger.Warn("notification delivery failed",
				slog.String("event", string(event)),
				slog.String("order", order.ID),
				slog.Any("err", err))
		}
	}()
}

func (o *Orchestrator) emit(event metrics.MetricEvent) {
	if o.rc.Metrics == nil {
		return
	}
	o.rc.Metrics.Emit(event)
}

func joinErrors(errors []error) string {
	if len(errors) == 0 {
		return ""
	}

	msg := errors[0].Error()
	for _, e := range errors[1:] {
		msg += "; " + e.Error()
	}
	return msg
}
