package strategy

import (
	"github.com/ashwinrao/railswitch/internal/health"
)

// Strategy picks one service instance from an already-filtered healthy set.
// It satisfies health.Picker.
type Strategy interface {
	Pick(instances []*health.Instance) *health.Instance
}
