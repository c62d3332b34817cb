// Package audit defines the audit-trail collaborator contract and a
// structured-log sink used when no external audit system is wired in.
package audit

import (
	"log/slog"

	jsoniter "github.com/json-iterator/go"
)

// Service receives a record at every order state-transition boundary.
// Implementations must be cheap; the settlement path calls them inline.
type Service interface {
	Log(category, id, action, actor string, before, after any, metadata map[string]any)
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LogSink writes audit records to the structured log, serializing the
// before/after snapshots as JSON.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Log(category, id, action, actor string, before, after any, metadata map[string]any) {
	s.logger.Info("audit",
		slog.String("category", category),
		slog.String("id", id),
		slog.String("action", action),
		slog.String("actor", actor),
		slog.String("before", marshal(before)),
		slog.String("after", marshal(after)),
		slog.Any("metadata", metadata))
}

func marshal(v any) string {
	if v == nil {
		return ""
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "<unserializable>"
	}
	return string(b)
}

// Nop discards every record. Useful in tests.
type Nop struct{}

func (Nop) Log(category, id, action, actor string, before, after any, metadata map[string]any) {}
