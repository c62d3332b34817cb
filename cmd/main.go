package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/config"
	"github.com/ashwinrao/railswitch/internal/circuitbreaker"
	"github.com/ashwinrao/railswitch/internal/fx"
	"github.com/ashwinrao/railswitch/internal/handler"
	"github.com/ashwinrao/railswitch/internal/health"
	"github.com/ashwinrao/railswitch/internal/httpserver"
	"github.com/ashwinrao/railswitch/internal/ledger"
	"github.com/ashwinrao/railswitch/internal/metrics"
	"github.com/ashwinrao/railswitch/internal/orchestrator"
	"github.com/ashwinrao/railswitch/internal/rail"
	"github.com/ashwinrao/railswitch/internal/strategy"
	"github.com/ashwinrao/railswitch/internal/transport"
	"github.com/ashwinrao/railswitch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(1000, log)
	collector.Start(ctx)

	trans := transport.NewSimulated(map[string]time.Duration{
		rail.Wire: 120 * time.Millisecond,
		rail.RTGS: 60 * time.Millisecond,
		rail.NEFT: 40 * time.Millisecond,
		rail.UPI:  15 * time.Millisecond,
	})

	rc := orchestrator.BuildContext(orchestrator.Options{
		Transport:   trans,
		Descriptors: cfg.RailDescriptors(),
		Breaker:     cfg.BreakerSettings(),
		Health:      cfg.HealthSettings(),
		Picker:      createStrategy(log, cfg.HealthCheck.Strategy),
		Retry:       cfg.RetrySettings(),
		RateSource:  staticRateSource(),
		Metrics:     collector,
	}, log)

	rc.Health.Start(ctx)

	if err := rc.FX.Refresh(ctx); err != nil {
		log.Error("Failed to load initial exchange rates", slog.Any("err", err))
		os.Exit(1)
	}
	if interval, err := time.ParseDuration(cfg.FX.RefreshInterval); err == nil {
		rc.FX.StartRefresher(ctx, interval)
	}

	rc.Health.Subscribe(func(change health.StatusChange) {
		collector.Emit(metrics.MetricEvent{
			Type:    metrics.EventHealthChanged,
			Rail:    change.Service,
			Healthy: change.To != health.StatusUnhealthy,
		})
	})

	rc.Breakers.Subscribe(func(change circuitbreaker.StateChange) {
		log.Warn("Circuit breaker state changed",
			slog.String("rail", change.Name),
			slog.String("from", change.From.String()),
			slog.String("to", change.To.String()))
	})

	orch := orchestrator.New(rc)
	ldg := demoLedger()

	paymentHandler := handler.NewPaymentHandler(log, orch, ldg)
	mux := setupRouter(paymentHandler, collector, rc)

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Settlement service listening", slog.String("address", cfg.Server.Address))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting settlement service", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func createStrategy(logger *slog.Logger, strategyType string) strategy.Strategy {
	switch strategyType {
	case "round-robin":
		return strategy.NewRoundRobinStrategy()
	case "random":
		return strategy.NewRandomStrategy()
	case "fastest":
		return strategy.NewFastestStrategy()
	default:
		logger.Warn("Unknown strategy, defaulting to round-robin", slog.String("requested", strategyType))
		return strategy.NewRoundRobinStrategy()
	}
}

// staticRateSource serves a fixed rate table. A real deployment swaps in a
// market data feed behind the same RateSource signature.
func staticRateSource() fx.RateSource {
	return func(ctx context.Context) ([]fx.Rate, error) {
		return []fx.Rate{
			{From: "USD", To: "INR", Rate: decimal.NewFromFloat(83.10), Spread: decimal.NewFromFloat(0.25)},
			{From: "EUR", To: "INR", Rate: decimal.NewFromFloat(90.45), Spread: decimal.NewFromFloat(0.30)},
			{From: "GBP", To: "INR", Rate: decimal.NewFromFloat(105.70), Spread: decimal.NewFromFloat(0.35)},
			{From: "USD", To: "EUR", Rate: decimal.NewFromFloat(0.92), Spread: decimal.NewFromFloat(0.01)},
		}, nil
	}
}

func demoLedger() *ledger.Static {
	return ledger.NewStatic(map[string]decimal.Decimal{
		"ACC-1001": decimal.NewFromInt(1_000_000),
		"ACC-1002": decimal.NewFromInt(250_000),
		"ACC-1003": decimal.NewFromInt(7_500),
	})
}
