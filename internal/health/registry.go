package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashwinrao/railswitch/internal/errs"
)

// Picker chooses one instance from a healthy set. Implemented by the
// strategy package; defined here so the registry stays a leaf.
type Picker interface {
	Pick(instances []*Instance) *Instance
}

// StatusChange is delivered to subscribers whenever a probe or outcome
// report moves an instance between statuses.
type StatusChange struct {
	Service string
	ID      string
	From    Status
	To      Status
}

// Config tunes the registry's background prober.
type Config struct {
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	// FailureThreshold is the consecutive-failure count at which an
	// instance goes UNHEALTHY.
	FailureThreshold int
	// AutoDeregister drops an instance once it crosses the threshold.
	AutoDeregister bool
}

func (c Config) withDefaults() Config {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 10 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	return c
}

// Registry tracks named service instances, probes them in the background,
// and hands out healthy instances through the configured picker. Probing
// runs on its own goroutine and never blocks callers.
type Registry struct {
	cfg    Config
	picker Picker
	logger *slog.Logger

	mutex       sync.RWMutex
	instances   map[string]*Instance
	subscribers []func(StatusChange)
}

func NewRegistry(cfg Config, picker Picker, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:       cfg.withDefaults(),
		picker:    picker,
		logger:    logger,
		instances: make(map[string]*Instance),
	}
}

// Register adds an instance for the named service and returns its id.
// Instances start healthy.
func (r *Registry) Register(service string, probe Probe) string {
	inst := &Instance{
		id:      uuid.NewString(),
		service: service,
		probe:   probe,
		status:  StatusHealthy,
	}

	r.mutex.Lock()
	r.instances[inst.id] = inst
	r.mutex.Unlock()

	return inst.id
}

// Deregister removes an instance by id. Unknown ids are a no-op.
func (r *Registry) Deregister(id string) {
	r.mutex.Lock()
	delete(r.instances, id)
	r.mutex.Unlock()
}

// Subscribe registers a handler for status-change events. Delivery is
// synchronous and in-process.
func (r *Registry) Subscribe(fn func(StatusChange)) {
	r.mutex.Lock()
	r.subscribers = append(r.subscribers, fn)
	r.mutex.Unlock()
}

// Discover returns the non-UNHEALTHY instances of a service. Degraded
// instances remain discoverable; unhealthy ones never are.
func (r *Registry) Discover(service string) []*Instance {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*Instance
	for _, inst := range r.instances {
		if inst.service == service && inst.Status() != StatusUnhealthy {
			out = append(out, inst)
		}
	}
	return out
}

// Healthy reports whether the service has at least one usable instance.
func (r *Registry) Healthy(service string) bool {
	return len(r.Discover(service)) > 0
}

// Instance picks one usable instance of the service via the configured
// picker.
func (r *Registry) Instance(service string) (*Instance, error) {
	candidates := r.Discover(service)
	if len(candidates) == 0 {
		return nil, errs.Newf(errs.KindServiceUnavailable, "no healthy instance of %s", service)
	}

	chosen := r.picker.Pick(candidates)
	if chosen == nil {
		return nil, errs.Newf(errs.KindServiceUnavailable, "picker returned no instance of %s", service)
	}
	return chosen, nil
}

// ReportOutcome feeds a call result from the settlement path back into the
// health state of the named service.
func (r *Registry) ReportOutcome(service string, ok bool, latency time.Duration) {
	r.mutex.RLock()
	var matched []*Instance
	for _, inst := range r.instances {
		if inst.service == service {
			matched = append(matched, inst)
		}
	}
	r.mutex.RUnlock()

	for _, inst := range matched {
		if ok {
			from, to := inst.recordSuccess(latency)
			r.notifyChange(inst, from, to)
		} else {
			r.applyFailure(inst)
		}
	}
}

// Records returns a snapshot of every registered instance.
func (r *Registry) Records() []Record {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]Record, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst.Snapshot())
	}
	return out
}

// Start runs the background prober until the context is cancelled.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.cfg.ProbeInterval)
		defer ticker.Stop()

		r.logger.Info("health prober started",
			slog.Duration("interval", r.cfg.ProbeInterval))

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("health prober stopped")
				return
			case <-ticker.C:
				r.probeAll(ctx)
			}
		}
	}()
}

func (r *Registry) probeAll(ctx context.Context) {
	r.mutex.RLock()
	instances := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, inst)
	}
	r.mutex.RUnlock()

	for _, inst := range instances {
		r.probeOne(ctx, inst)
	}
}

func (r *Registry) probeOne(ctx context.Context, inst *Instance) {
	if inst.probe == nil {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	err := inst.probe(probeCtx)

	if err == nil {
		from, to := inst.recordSuccess(time.Since(start))
		r.notifyChange(inst, from, to)
		return
	}

	r.applyFailure(inst)
}

func (r *Registry) applyFailure(inst *Instance) {
	failures, from, to := inst.recordFailure(r.cfg.FailureThreshold)
	r.notifyChange(inst, from, to)

	if to == StatusUnhealthy && r.cfg.AutoDeregister {
		r.logger.Warn("deregistering unhealthy instance",
			slog.String("service", inst.service),
			slog.String("id", inst.id),
			slog.Int("consecutive_failures", failures))
		r.Deregister(inst.id)
	}
}

func (r *Registry) notifyChange(inst *Instance, from, to Status) {
	if from == to {
		return
	}

	if to == StatusUnhealthy {
		r.logger.Warn("service instance went unhealthy",
			slog.String("service", inst.service),
			slog.String("id", inst.id))
	} else if from == StatusUnhealthy {
		r.logger.Info("service instance recovered",
			slog.String("service", inst.service),
			slog.String("id", inst.id))
	}

	r.mutex.RLock()
	subs := make([]func(StatusChange), len(r.subscribers))
	copy(subs, r.subscribers)
	r.mutex.RUnlock()

	change := StatusChange{Service: inst.service, ID: inst.id, From: from, To: to}
	for _, fn := range subs {
		fn(change)
	}
}
