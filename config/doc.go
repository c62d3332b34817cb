// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, per-rail limits and fees, circuit breaker and
// retry tunables, and health check intervals.
package config
