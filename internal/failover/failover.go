package failover

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/ashwinrao/railswitch/internal/circuitbreaker"
	"github.com/ashwinrao/railswitch/internal/errs"
	"github.com/ashwinrao/railswitch/internal/health"
	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/rail"
)

// Outcome is the result of one failover pass: either a settled receipt or
// the aggregated errors of every rail attempted.
type Outcome struct {
	Receipt              payment.Receipt
	Rail                 string
	FailoverUsed         bool
	RequiresManualReview bool
	Errors               []error
}

// Orchestrator picks a healthy rail for an order and executes against it
// through that rail's circuit breaker, walking the alternates when the
// preferred rail is unhealthy, circuit-open, or failing.
type Orchestrator struct {
	selector rail.Selector
	adapters map[string]rail.Adapter
	breakers *circuitbreaker.Registry
	registry *health.Registry
	logger   *slog.Logger
}

func NewOrchestrator(
	selector rail.Selector,
	adapters []rail.Adapter,
	breakers *circuitbreaker.Registry,
	registry *health.Registry,
	logger *slog.Logger,
) *Orchestrator {
	byName := make(map[string]rail.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}

	return &Orchestrator{
		selector: selector,
		adapters: byName,
		breakers: breakers,
		registry: registry,
		logger:   logger,
	}
}

// Process settles the order on the preferred rail or a healthy alternate.
//
// A validation failure on the preferred rail is terminal: an order the
// network would reject does not get failed over, it gets fixed. Transient
// failures walk the candidate list; when every rail is exhausted the
// outcome carries RequiresManualReview and a MANUAL_REVIEW error, unless
// at least one attempt failed transiently, in which case the transient
// error is returned so the retry scheduler can drive another pass.
func (o *Orchestrator) Process(ctx context.Context, order *payment.Order) (Outcome, error) {
	primary := o.selector.Select(order)
	order.SelectedRail = primary

	adapter, ok := o.adapters[primary]
	if !ok {
		return Outcome{}, errs.Newf(errs.KindServiceUnavailable, "no adapter for rail %s", primary)
	}

	if verrs := adapter.Validate(order); len(verrs) > 0 {
		return Outcome{Errors: verrs}, verrs[0]
	}

	var attemptErrors []error

	if o.registry.Healthy(primary) {
		receipt, err := o.attempt(ctx, adapter, order)
		if err == nil {
			return Outcome{Receipt: receipt, Rail: primary}, nil
		}
		attemptErrors = append(attemptErrors, err)

		o.logger.Warn("primary rail attempt failed",
			slog.String("order", order.ID),
			slog.String("rail", primary),
			slog.Any("err", err))
	} else {
		attemptErrors = append(attemptErrors, errs.Newf(errs.KindServiceUnavailable, "rail %s is unhealthy", primary))

		o.logger.Warn("primary rail unhealthy, skipping",
			slog.String("order", order.ID),
			slog.String("rail", primary))
	}

	for _, candidate := range o.candidates(order, primary) {
		receipt, err := o.attempt(ctx, candidate, order)
		if err == nil {
			order.SelectedRail = candidate.Name()
			o.logger.Info("failover succeeded",
				slog.String("order", order.ID),
				slog.String("rail", candidate.Name()))
			return Outcome{Receipt: receipt, Rail: candidate.Name(), FailoverUsed: true}, nil
		}
		attemptErrors = append(attemptErrors, err)
	}

	if transient := lastRetryable(attemptErrors); transient != nil {
		return Outcome{FailoverUsed: true, Errors: attemptErrors}, transient
	}

	err := errs.New(errs.KindManualReview, "all settlement rails exhausted")
	return Outcome{FailoverUsed: true, RequiresManualReview: true, Errors: attemptErrors}, err
}

// attempt executes the order through the rail's own breaker and feeds the
// result back into the health registry. Circuit rejections made no call,
// so they report nothing.
func (o *Orchestrator) attempt(ctx context.Context, adapter rail.Adapter, order *payment.Order) (payment.Receipt, error) {
	var receipt payment.Receipt

	cb := o.breakers.GetBreaker(adapter.Name())
	start := time.Now()

	err := cb.Execute(ctx, func(ctx context.Context) error {
		var execErr error
		receipt, execErr = adapter.Execute(ctx, order)
		return execErr
	})

	if errs.KindOf(err) != errs.KindCircuitOpen {
		o.registry.ReportOutcome(adapter.Name(), err == nil, time.Since(start))
	}

	return receipt, err
}

// candidates lists every other rail that both validates the order and is
// currently healthy, ordered by ascending fee, then shorter processing
// estimate, then the fixed priority order, for full determinism.
func (o *Orchestrator) candidates(order *payment.Order, exclude string) []rail.Adapter {
	var out []rail.Adapter

	for _, name := range rail.Priority {
		if name == exclude {
			continue
		}

		adapter, ok := o.adapters[name]
		if !ok {
			continue
		}

		if len(adapter.Validate(order)) > 0 {
			continue
		}

		if !o.registry.Healthy(name) {
			continue
		}

		out = append(out, adapter)
	}

	amount := order.SettleAmount()
	sort.SliceStable(out, func(i, j int) bool {
		feeI := out[i].Fee(amount)
		feeJ := out[j].Fee(amount)
		if !feeI.Equal(feeJ) {
			return feeI.LessThan(feeJ)
		}

		estI := out[i].Descriptor().ProcessingEstimate
		estJ := out[j].Descriptor().ProcessingEstimate
		if estI != estJ {
			return estI < estJ
		}

		return priorityIndex(out[i].Name()) < priorityIndex(out[j].Name())
	})

	return out
}

func priorityIndex(name string) int {
	for i, n := range rail.Priority {
		if n == name {
			return i
		}
	}
	return len(rail.Priority)
}

func lastRetryable(attemptErrors []error) error {
	for i := len(attemptErrors) - 1; i >= 0; i-- {
		if errs.Retryable(attemptErrors[i]) {
			return attemptErrors[i]
		}
	}
	return nil
}
