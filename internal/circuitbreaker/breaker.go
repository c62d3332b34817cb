package circuitbreaker

import (
	"context"
	"sync"
	"time"

	"github.com/ashwinrao/railswitch/internal/errs"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls
	StateHalfOpen              // Testing with one trial call
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config carries the tunables shared by every breaker in a registry.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	// CallTimeout bounds a single attempt. Zero means RecoveryTimeout/2.
	CallTimeout time.Duration
	// MonitoringPeriod bounds the sliding window of recent outcomes.
	MonitoringPeriod time.Duration
	// ExpectedErrors marks business failures that must not trip the
	// breaker (e.g. beneficiary not found).
	ExpectedErrors []func(error) bool
}

func (c Config) callTimeout() time.Duration {
	if c.CallTimeout > 0 {
		return c.CallTimeout
	}
	return c.RecoveryTimeout / 2
}

// Stats is a point-in-time snapshot of a breaker's counters.
type Stats struct {
	State          State         `json:"-"`
	StateName      string        `json:"state"`
	Requests       int64         `json:"requests"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	Timeouts       int64         `json:"timeouts"`
	Rejections     int64         `json:"rejections"`
	ExpectedErrors int64         `json:"expected_errors"`
	FailureCount   int           `json:"failure_count"`
	AverageLatency time.Duration `json:"average_latency"`
}

// StateChange is delivered to subscribers on every transition.
type StateChange struct {
	Name string
	From State
	To   State
}

type outcome struct {
	at time.Time
	ok bool
}

type CircuitBreaker struct {
	name string
	cfg  Config

	mutex         sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	nextAttempt   time.Time
	window        []outcome
	trialInFlight bool
	subscribers   []func(StateChange)

	requests       int64
	successes      int64
	failureTotal   int64
	timeouts       int64
	rejections     int64
	expectedErrors int64
	totalLatency   time.Duration
}

// NewCircuitBreaker creates a breaker in the closed state for one named
// external target.
func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Subscribe registers a handler invoked on every state transition. Delivery
// is synchronous and in-process, after the breaker's lock is released.
func (cb *CircuitBreaker) Subscribe(fn func(StateChange)) {
	cb.mutex.Lock()
	cb.subscribers = append(cb.subscribers, fn)
	cb.mutex.Unlock()
}

// Execute runs op under the breaker. An open circuit fails fast with a
// CIRCUIT_OPEN error and no call is made. The call races a timeout; once
// dispatched it runs to completion, its result discarded after the deadline.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	start := time.Now()
	err := cb.call(ctx, op)
	cb.record(err, time.Since(start))
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mutex.Lock()

	switch cb.state {
	case StateClosed:
		cb.mutex.Unlock()
		return nil

	case StateOpen:
		if time.Now().Before(cb.nextAttempt) {
			cb.rejections++
			cb.mutex.Unlock()
			return &errs.Error{Kind: errs.KindCircuitOpen, Rail: cb.name, Msg: "circuit open, rejecting call"}
		}
		change := cb.transition(StateHalfOpen)
		cb.trialInFlight = true
		cb.mutex.Unlock()
		cb.emit(change)
		return nil

	case StateHalfOpen:
		if cb.trialInFlight {
			cb.rejections++
			cb.mutex.Unlock()
			return &errs.Error{Kind: errs.KindCircuitOpen, Rail: cb.name, Msg: "trial call in flight, rejecting call"}
		}
		cb.trialInFlight = true
		cb.mutex.Unlock()
		return nil

	default:
		cb.mutex.Unlock()
		return nil
	}
}

// call races op against the call timeout. The result channel is buffered so
// a late completion never leaks the goroutine.
func (cb *CircuitBreaker) call(ctx context.Context, op func(context.Context) error) error {
	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	timer := time.NewTimer(cb.cfg.callTimeout())
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return &errs.Error{Kind: errs.KindNetworkTimeout, Rail: cb.name, Msg: "call exceeded breaker timeout"}
	}
}

func (cb *CircuitBreaker) record(err error, latency time.Duration) {
	cb.mutex.Lock()

	cb.requests++
	cb.totalLatency += latency
	cb.trialInFlight = false

	var change StateChange
	var changed bool

	switch {
	case err == nil:
		cb.successes++
		cb.failures = 0
		cb.pushOutcome(true)
		if cb.state == StateHalfOpen {
			change = cb.transition(StateClosed)
			changed = true
		}

	case cb.isExpected(err):
		// Business failure: the target answered, the answer was no.
		cb.expectedErrors++

	default:
		cb.failureTotal++
		if errs.KindOf(err) == errs.KindNetworkTimeout {
			cb.timeouts++
		}
		cb.failures++
		cb.lastFailure = time.Now()
		cb.pushOutcome(false)

		if cb.state == StateHalfOpen || cb.shouldOpen() {
			cb.nextAttempt = time.Now().Add(cb.cfg.RecoveryTimeout)
			if cb.state != StateOpen {
				change = cb.transition(StateOpen)
				changed = true
			}
		}
	}

	cb.mutex.Unlock()
	if changed {
		cb.emit(change)
	}
}

// shouldOpen holds the lock. The circuit opens on a run of consecutive
// failures, or when the sliding window has enough samples and at least
// half of them failed.
func (cb *CircuitBreaker) shouldOpen() bool {
	if cb.failures >= cb.cfg.FailureThreshold {
		return true
	}

	if cb.cfg.MonitoringPeriod <= 0 || len(cb.window) < cb.cfg.FailureThreshold {
		return false
	}

	var failed int
	for _, o := range cb.window {
		if !o.ok {
			failed++
		}
	}

	return failed*2 >= len(cb.window)
}

// pushOutcome appends to the sliding window and drops samples older than
// the monitoring period. Without a monitoring period there is no window.
func (cb *CircuitBreaker) pushOutcome(ok bool) {
	if cb.cfg.MonitoringPeriod <= 0 {
		return
	}

	now := time.Now()
	cb.window = append(cb.window, outcome{at: now, ok: ok})

	cutoff := now.Add(-cb.cfg.MonitoringPeriod)
	for len(cb.window) > 0 && cb.window[0].at.Before(cutoff) {
		cb.window = cb.window[1:]
	}
}

func (cb *CircuitBreaker) isExpected(err error) bool {
	for _, match := range cb.cfg.ExpectedErrors {
		if match(err) {
			return true
		}
	}
	return false
}

// transition holds the lock and returns the change to emit after release.
func (cb *CircuitBreaker) transition(to State) StateChange {
	change := StateChange{Name: cb.name, From: cb.state, To: to}
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	return change
}

func (cb *CircuitBreaker) emit(change StateChange) {
	cb.mutex.Lock()
	subs := make([]func(StateChange), len(cb.subscribers))
	copy(subs, cb.subscribers)
	cb.mutex.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// ForceOpen trips the breaker manually. Calls reject until the recovery
// timeout elapses, same as an organically opened circuit.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mutex.Lock()
	cb.nextAttempt = time.Now().Add(cb.cfg.RecoveryTimeout)
	var change StateChange
	changed := cb.state != StateOpen
	if changed {
		change = cb.transition(StateOpen)
	}
	cb.mutex.Unlock()
	if changed {
		cb.emit(change)
	}
}

// ForceClosed resets the breaker manually, clearing the failure run.
func (cb *CircuitBreaker) ForceClosed() {
	cb.mutex.Lock()
	cb.window = nil
	var change StateChange
	changed := cb.state != StateClosed
	if changed {
		change = cb.transition(StateClosed)
	}
	cb.failures = 0
	cb.mutex.Unlock()
	if changed {
		cb.emit(change)
	}
}

// Stats returns a snapshot of the breaker's cumulative counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	var avg time.Duration
	if cb.requests > 0 {
		avg = cb.totalLatency / time.Duration(cb.requests)
	}

	return Stats{
		State:          cb.state,
		StateName:      cb.state.String(),
		Requests:       cb.requests,
		Successes:      cb.successes,
		Failures:       cb.failureTotal,
		Timeouts:       cb.timeouts,
		Rejections:     cb.rejections,
		ExpectedErrors: cb.expectedErrors,
		FailureCount:   cb.failures,
		AverageLatency: avg,
	}
}
