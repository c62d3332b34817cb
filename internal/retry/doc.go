// Package retry computes exponential backoff delays and drives bounded
// retry loops over the failover pass.
package retry
