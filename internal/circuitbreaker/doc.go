// Package circuitbreaker implements per-target failure isolation for
// outbound settlement and lookup calls.
//
// A circuit breaker prevents cascading failures by temporarily blocking calls
// to a failing external target. It has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Target failing, calls rejected
//   - HALF-OPEN: Testing if the target recovered with a single trial call
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(circuitbreaker.Config{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  30 * time.Second,
//	})
//	cb := registry.GetBreaker("SWIFT")
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return adapter.Execute(ctx, order)
//	})
package circuitbreaker
