// Package notify defines the notification collaborator contract. Sends are
// fire-and-forget: failures are logged and never reach the settlement path.
package notify

import (
	"context"
	"log/slog"
)

// Event names the settlement milestones worth telling someone about.
type Event string

const (
	EventPaymentCompleted    Event = "payment_completed"
	EventPaymentFailed       Event = "payment_failed"
	EventManualReviewNeeded  Event = "manual_review_needed"
	EventRailStatusChanged   Event = "rail_status_changed"
	EventCircuitStateChanged Event = "circuit_state_changed"
)

// Service delivers an event to recipients. Implementations own content
// generation; this layer only supplies the event and its payload.
type Service interface {
	Send(ctx context.Context, event Event, recipients []string, payload map[string]any) error
}

// LogSink writes notifications to the structured log instead of delivering
// them. The default wiring when no real notifier is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, event Event, recipients []string, payload map[string]any) error {
	s.logger.Info("notification",
		slog.String("event", string(event)),
		slog.Any("recipients", recipients),
		slog.Any("payload", payload))
	return nil
}
