// Package orchestrator implements the top-level payment use case and the
// ResilienceContext dependency bundle built once at process startup.
package orchestrator
