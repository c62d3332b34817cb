package strategy_test

import (
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ashwinrao/railswitch/internal/health"
	"github.com/ashwinrao/railswitch/internal/strategy"
)

// instancesFor registers count instances under distinct service names so
// each can be given its own latency history, then returns them as one set.
func instancesFor(r *health.Registry, services ...string) []*health.Instance {
	var out []*health.Instance
	for _, s := range services {
		r.Register(s, nil)
		out = append(out, r.Discover(s)...)
	}
	return out
}

var _ = Describe("Strategies", func() {
	var registry *health.Registry

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		registry = health.NewRegistry(health.Config{}, strategy.NewRoundRobinStrategy(), logger)
	})

	Describe("round robin", func() {
		It("cycles through the instances in order", func() {
			instances := instancesFor(registry, "a", "b", "c")
			s := strategy.NewRoundRobinStrategy()

			var picked []string
			for n := 0; n < 6; n++ {
				picked = append(picked, s.Pick(instances).Service())
			}
			Expect(picked).To(Equal([]string{"a", "b", "c", "a", "b", "c"}))
		})

		It("returns nil for an empty set", func() {
			s := strategy.NewRoundRobinStrategy()
			Expect(s.Pick(nil)).To(BeNil())
		})
	})

	Describe("random", func() {
		It("always picks a member of the set", func() {
			instances := instancesFor(registry, "a", "b", "c")
			s := strategy.NewRandomStrategy()

			names := map[string]bool{"a": true, "b": true, "c": true}
			for n := 0; n < 50; n++ {
				Expect(names).To(HaveKey(s.Pick(instances).Service()))
			}
		})

		It("returns nil for an empty set", func() {
			s := strategy.NewRandomStrategy()
			Expect(s.Pick(nil)).To(BeNil())
		})
	})

	Describe("fastest", func() {
		It("prefers the lowest smoothed response time", func() {
			instances := instancesFor(registry, "slow", "fast")
			registry.ReportOutcome("slow", true, 300*time.Millisecond)
			registry.ReportOutcome("fast", true, 20*time.Millisecond)

			s := strategy.NewFastestStrategy()
			Expect(s.Pick(instances).Service()).To(Equal("fast"))
		})

		It("gives an unmeasured instance the first call", func() {
			instances := instancesFor(registry, "measured", "new")
			registry.ReportOutcome("measured", true, 5*time.Millisecond)

			s := strategy.NewFastestStrategy()
			Expect(s.Pick(instances).Service()).To(Equal("new"))
		})

		It("returns nil for an empty set", func() {
			s := strategy.NewFastestStrategy()
			Expect(s.Pick(nil)).To(BeNil())
		})
	})
})
