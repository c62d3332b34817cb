// Package failover combines the rail selector, health registry and circuit
// breakers into health-aware routing with deterministic fallback ordering.
package failover
