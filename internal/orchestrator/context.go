package orchestrator

import (
	"context"
	"log/slog"

	"github.com/ashwinrao/railswitch/internal/audit"
	"github.com/ashwinrao/railswitch/internal/circuitbreaker"
	"github.com/ashwinrao/railswitch/internal/failover"
	"github.com/ashwinrao/railswitch/internal/fx"
	"github.com/ashwinrao/railswitch/internal/health"
	"github.com/ashwinrao/railswitch/internal/metrics"
	"github.com/ashwinrao/railswitch/internal/notify"
	"github.com/ashwinrao/railswitch/internal/rail"
	"github.com/ashwinrao/railswitch/internal/retry"
	"github.com/ashwinrao/railswitch/internal/strategy"
	"github.com/ashwinrao/railswitch/internal/transport"
)

// ResilienceContext bundles the long-lived resilience machinery. It is
// built once at process startup and passed down explicitly; nothing in the
// settlement path reaches for ambient globals.
type ResilienceContext struct {
	Selector rail.Selector
	Adapters []rail.Adapter
	Breakers *circuitbreaker.Registry
	Health   *health.Registry
	Failover *failover.Orchestrator
	Retry    *retry.Scheduler
	FX       *fx.Converter
	Audit    audit.Service
	Notify   notify.Service
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// Options configures BuildContext. Zero values fall back to defaults.
type Options struct {
	Transport   transport.Transport
	Descriptors []rail.Descriptor
	Breaker     circuitbreaker.Config
	Health      health.Config
	Picker      health.Picker
	Retry       retry.Config
	RateSource  fx.RateSource
	Audit       audit.Service
	Notify      notify.Service
	Metrics     *metrics.Collector
}

// BuildContext wires the standard four rails, one breaker per rail, and a
// health-registry entry per rail probed through the transport.
func BuildContext(opts Options, logger *slog.Logger) *ResilienceContext {
	trans := opts.Transport
	if trans == nil {
		trans = transport.NewSimulated(nil)
	}

	descriptors := opts.Descriptors
	if len(descriptors) == 0 {
		descriptors = []rail.Descriptor{
			rail.DefaultWireDescriptor(),
			rail.DefaultRTGSDescriptor(),
			rail.DefaultNEFTDescriptor(),
			rail.DefaultUPIDescriptor(),
		}
	}

	adapters := make([]rail.Adapter, 0, len(descriptors))
	for _, desc := range descriptors {
		adapters = append(adapters, newAdapter(desc, trans))
	}

	picker := opts.Picker
	if picker == nil {
		picker = strategy.NewRoundRobinStrategy()
	}

	registry := health.NewRegistry(opts.Health, picker, logger)
	for _, a := range adapters {
		name := a.Name()
		registry.Register(name, func(ctx context.Context) error {
			return trans.Ping(ctx, name)
		})
	}

	breakers := circuitbreaker.NewRegistry(opts.Breaker)

	auditSvc := opts.Audit
	if auditSvc == nil {
		auditSvc = audit.NewLogSink(logger)
	}

	notifySvc := opts.Notify
	if notifySvc == nil {
		notifySvc = notify.NewLogSink(logger)
	}

	selector := rail.NewSelector()

	return &ResilienceContext{
		Selector: selector,
		Adapters: adapters,
		Breakers: breakers,
		Health:   registry,
		Failover: failover.NewOrchestrator(selector, adapters, breakers, registry, logger),
		Retry:    retry.NewScheduler(opts.Retry, logger),
		FX:       fx.NewConverter(opts.RateSource, logger),
		Audit:    auditSvc,
		Notify:   notifySvc,
		Metrics:  opts.Metrics,
		Logger:   logger,
	}
}

func newAdapter(desc rail.Descriptor, trans transport.Transport) rail.Adapter {
	switch desc.Name {
	case rail.RTGS:
		return rail.NewRTGS(desc, trans)
	case rail.NEFT:
		return rail.NewNEFT(desc, trans)
	case rail.UPI:
		return rail.NewUPI(desc, trans)
	default:
		return rail.NewWire(desc, trans)
	}
}
