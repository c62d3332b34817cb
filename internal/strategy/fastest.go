package strategy

import (
	"time"

	"github.com/ashwinrao/railswitch/internal/health"
)

type fastestStrategy struct{}

// Pick prefers the instance with the lowest EWMA response time. An
// instance with no samples yet wins outright so it gets measured.
func (f *fastestStrategy) Pick(instances []*health.Instance) *health.Instance {
	if len(instances) == 0 {
		return nil
	}

	var chosen *health.Instance
	var best time.Duration

	for _, inst := range instances {
		ewma := inst.EWMATime()

		if ewma == 0 {
			return inst
		}

		if chosen == nil || ewma < best {
			chosen = inst
			best = ewma
		}
	}

	return chosen
}

func NewFastestStrategy() Strategy {
	return &fastestStrategy{}
}
