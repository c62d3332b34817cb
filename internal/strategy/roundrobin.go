package strategy

import (
	"sync/atomic"

	"github.com/ashwinrao/railswitch/internal/health"
)

type roundRobinStrategy struct {
	current uint64
}

func (rb *roundRobinStrategy) Pick(instances []*health.Instance) *health.Instance {
	if len(instances) == 0 {
		return nil
	}

	n := atomic.AddUint64(&rb.current, 1)

	index := (n - 1) % uint64(len(instances))

	return instances[index]
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{
		current: 0,
	}
}
