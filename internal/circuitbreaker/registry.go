package circuitbreaker

import (
	"sync"
)

// Registry hands out one breaker per external target, created lazily with
// a shared config.
type Registry struct {
	mutex       sync.RWMutex
	breakers    map[string]*CircuitBreaker
	cfg         Config
	subscribers []func(StateChange)
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		cfg:      cfg,
	}
}

func (r *Registry) GetBreaker(target string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[target]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[target]; exists {
		return cb
	}

	cb = NewCircuitBreaker(target, r.cfg)
	for _, fn := range r.subscribers {
		cb.Subscribe(fn)
	}
	r.breakers[target] = cb
	return cb
}

// Subscribe attaches a state-change handler to every breaker, existing and
// future.
func (r *Registry) Subscribe(fn func(StateChange)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.subscribers = append(r.subscribers, fn)
	for _, cb := range r.breakers {
		cb.Subscribe(fn)
	}
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

func (r *Registry) Stats() map[string]Stats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]Stats, len(r.breakers))
	for target, cb := range r.breakers {
		stats[target] = cb.Stats()
	}
	return stats
}
