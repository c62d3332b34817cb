package strategy

import (
	"math/rand/v2"

	"github.com/ashwinrao/railswitch/internal/health"
)

type randomStrategy struct{}

func (r *randomStrategy) Pick(instances []*health.Instance) *health.Instance {
	if len(instances) == 0 {
		return nil
	}

	index := rand.IntN(len(instances))
	return instances[index]
}

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}
