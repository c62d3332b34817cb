// Package metrics provides real-time metrics collection for the settlement
// layer.
//
// It uses a channel-based event pipeline to asynchronously collect metrics about:
//   - Submission, settlement and failure counts per rail
//   - Failover, retry and manual-review totals
//   - Fees collected per rail
//   - Settlement latencies with percentile calculations (P50, P95, P99)
//   - Rail health status
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the settlement path. Events are emitted with non-blocking
// semantics and dropped when the buffer is full.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//	    Type:     metrics.EventPaymentSettled,
//	    Rail:     "NEFT",
//	    Fee:      decimal.NewFromInt(12),
//	    Duration: 150 * time.Millisecond,
//	})
//
//	snapshot := collector.Snapshot()
package metrics
