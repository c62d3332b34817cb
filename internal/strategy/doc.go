// Package strategy defines the instance selection interface used by the
// service health registry and implements its algorithms:
//
//   - Round Robin: Sequential distribution across instances
//   - Random: Random instance selection
//   - Fastest: Routes based on exponentially weighted moving average (EWMA) response times
//
// Strategies only ever see instances the registry already considers usable.
package strategy
