package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPaymentSubmitted EventType = "payment_submitted"
	EventPaymentSettled   EventType = "payment_settled"
	EventPaymentFailed    EventType = "payment_failed"
	EventFailoverUsed     EventType = "failover_used"
	EventRetryScheduled   EventType = "retry_scheduled"
	EventManualReview     EventType = "manual_review"
	EventHealthChanged    EventType = "health_changed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Rail      string
	Duration  time.Duration
	Fee       decimal.Decimal
	Healthy   bool
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit sends an event without ever blocking the settlement path; events
// are dropped when the buffer is full.
func (c *Collector) Emit(event MetricEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventPaymentSubmitted:
		c.metrics.IncrementSubmissions()

	case EventPaymentSettled:
		c.metrics.RecordSettlement(event.Rail, event.Fee, event.Duration)

	case EventPaymentFailed:
		c.metrics.RecordFailure(event.Rail)

	case EventFailoverUsed:
		c.metrics.IncrementFailovers()

	case EventRetryScheduled:
		c.metrics.IncrementRetries()

	case EventManualReview:
		c.metrics.IncrementManualReviews()

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Rail, event.Healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
