// Package transport abstracts the wire boundary to settlement networks.
// Production wiring uses the deterministic Simulated transport; tests and
// load scripts wrap it in Flaky to inject transient failures.
package transport
