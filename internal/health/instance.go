package health

import (
	"context"
	"sync"
	"time"
)

type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "HEALTHY"
	case StatusDegraded:
		return "DEGRADED"
	case StatusUnhealthy:
		return "UNHEALTHY"
	default:
		return "UNKNOWN"
	}
}

// Probe checks one target's reachability. It must honour the context
// deadline the prober passes in.
type Probe func(ctx context.Context) error

// Record is the externally visible health state of one instance.
type Record struct {
	ID                   string        `json:"id"`
	Service              string        `json:"service"`
	Status               string        `json:"status"`
	ConsecutiveFailures  int           `json:"consecutive_failures"`
	LastCheck            time.Time     `json:"last_check"`
	ResponseTimeEstimate time.Duration `json:"response_time_estimate"`
}

const ewmaAlpha = 0.2

// Instance is one registered target. Its counters are mutated only by the
// registry's prober and by call-outcome feedback from the failover path.
type Instance struct {
	id      string
	service string
	probe   Probe

	mutex               sync.Mutex
	status              Status
	consecutiveFailures int
	lastCheck           time.Time
	ewmaResponseTime    time.Duration
	hasEWMA             bool
}

func (i *Instance) ID() string {
	return i.id
}

func (i *Instance) Service() string {
	return i.service
}

func (i *Instance) Status() Status {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.status
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no responses have been recorded yet.
func (i *Instance) EWMATime() time.Duration {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if !i.hasEWMA {
		return 0
	}
	return i.ewmaResponseTime
}

// recordSuccess resets the failure run and folds the latency into the EWMA.
// Returns the previous status so the registry can emit a change event.
func (i *Instance) recordSuccess(latency time.Duration) (from, to Status) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	from = i.status
	i.status = StatusHealthy
	i.consecutiveFailures = 0
	i.lastCheck = time.Now()

	if latency > 0 {
		if !i.hasEWMA {
			i.ewmaResponseTime = latency
			i.hasEWMA = true
		} else {
			//ewma = (1 - α) * ewma + α * latest
			i.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(i.ewmaResponseTime) + ewmaAlpha*float64(latency))
		}
	}

	return from, i.status
}

// recordFailure bumps the failure run; the instance degrades below the
// threshold and goes unhealthy at it. Returns the run length and statuses.
func (i *Instance) recordFailure(threshold int) (failures int, from, to Status) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	from = i.status
	i.consecutiveFailures++
	i.lastCheck = time.Now()

	if i.consecutiveFailures >= threshold {
		i.status = StatusUnhealthy
	} else {
		i.status = StatusDegraded
	}

	return i.consecutiveFailures, from, i.status
}

// Snapshot returns the instance's current health record.
func (i *Instance) Snapshot() Record {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	return Record{
		ID:                   i.id,
		Service:              i.service,
		Status:               i.status.String(),
		ConsecutiveFailures:  i.consecutiveFailures,
		LastCheck:            i.lastCheck,
		ResponseTimeEstimate: i.ewmaResponseTime,
	}
}
