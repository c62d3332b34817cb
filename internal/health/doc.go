// Package health implements the service health registry: registration,
// periodic background probing, call-outcome feedback, and discovery that
// excludes unhealthy instances.
package health
