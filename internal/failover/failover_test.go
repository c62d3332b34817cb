package failover_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/circuitbreaker"
	"github.com/ashwinrao/railswitch/internal/errs"
	"github.com/ashwinrao/railswitch/internal/failover"
	"github.com/ashwinrao/railswitch/internal/health"
	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/rail"
	"github.com/ashwinrao/railswitch/internal/strategy"
	"github.com/ashwinrao/railswitch/internal/transport"
)

// scriptedTransport fails submissions for the listed networks and records
// every network it was asked to reach.
type scriptedTransport struct {
	mutex    sync.Mutex
	failing  map[string]errs.Kind
	submits  []string
	delegate transport.Transport
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		failing:  make(map[string]errs.Kind),
		delegate: transport.NewSimulated(nil),
	}
}

func (s *scriptedTransport) fail(network string, kind errs.Kind) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failing[network] = kind
}

func (s *scriptedTransport) Submit(ctx context.Context, network string, order *payment.Order) (string, error) {
	s.mutex.Lock()
	s.submits = append(s.submits, network)
	kind, bad := s.failing[network]
	s.mutex.Unlock()

	if bad {
		return "", &errs.Error{Kind: kind, Rail: network, Msg: "injected failure"}
	}
	return s.delegate.Submit(ctx, network, order)
}

func (s *scriptedTransport) Ping(ctx context.Context, network string) error {
	return nil
}

func (s *scriptedTransport) submitted() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.submits...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func order(amount int64, currency string, ptype payment.Type) *payment.Order {
	return payment.NewOrder(payment.Instruction{
		Amount:            decimal.NewFromInt(amount),
		Currency:          currency,
		FromAccountID:     "ACC-1",
		ToAccountID:       "ACC-2",
		PaymentType:       ptype,
		RoutingCode:       "HDFC0001234",
		WalletID:          "payee@upi",
		SwiftCode:         "CHASUS33",
		CorrespondentBank: "JPMC",
	}, 3)
}

var _ = Describe("Orchestrator", func() {
	var (
		trans    *scriptedTransport
		adapters []rail.Adapter
		breakers *circuitbreaker.Registry
		registry *health.Registry
		orch     *failover.Orchestrator
	)

	alwaysOpen := func(name string) rail.Descriptor {
		var desc rail.Descriptor
		switch name {
		case rail.Wire:
			desc = rail.DefaultWireDescriptor()
		case rail.RTGS:
			desc = rail.DefaultRTGSDescriptor()
		case rail.NEFT:
			desc = rail.DefaultNEFTDescriptor()
		case rail.UPI:
			desc = rail.DefaultUPIDescriptor()
		}
		desc.OpenHour = 0
		desc.CloseHour = 0
		return desc
	}

	registerAll := func(names ...string) {
		for _, name := range names {
			registry.Register(name, nil)
		}
	}

	BeforeEach(func() {
		trans = newScriptedTransport()
		adapters = []rail.Adapter{
			rail.NewWire(alwaysOpen(rail.Wire), trans),
			rail.NewRTGS(alwaysOpen(rail.RTGS), trans),
			rail.NewNEFT(alwaysOpen(rail.NEFT), trans),
			rail.NewUPI(alwaysOpen(rail.UPI), trans),
		}
		breakers = circuitbreaker.NewRegistry(circuitbreaker.Config{
			FailureThreshold: 5,
			RecoveryTimeout:  time.Second,
			CallTimeout:      time.Second,
		})
		registry = health.NewRegistry(health.Config{}, strategy.NewRoundRobinStrategy(), discardLogger())
		orch = failover.NewOrchestrator(rail.NewSelector(), adapters, breakers, registry, discardLogger())
	})

	It("settles on the preferred rail when it is healthy", func() {
		registerAll(rail.NEFT, rail.UPI, rail.RTGS, rail.Wire)
		o := order(50000, "INR", payment.TypeDomestic)

		outcome, err := orch.Process(context.Background(), o)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Rail).To(Equal(rail.NEFT))
		Expect(outcome.FailoverUsed).To(BeFalse())
		Expect(outcome.Receipt.Fee.Equal(decimal.NewFromInt(12))).To(BeTrue())
		Expect(trans.submitted()).To(Equal([]string{rail.NEFT}))
	})

	It("treats a preferred-rail validation failure as terminal", func() {
		registerAll(rail.NEFT, rail.UPI)

		o := order(50000, "INR", payment.TypeDomestic)
		o.Instruction.RoutingCode = ""

		outcome, err := orch.Process(context.Background(), o)

		Expect(errs.KindOf(err)).To(Equal(errs.KindValidation))
		Expect(outcome.FailoverUsed).To(BeFalse())
		Expect(trans.submitted()).To(BeEmpty(), "a rejected order must never reach a network")
	})

	It("skips an unhealthy preferred rail and fails over", func() {
		// NEFT has no registered instance, so it is not healthy.
		registerAll(rail.UPI, rail.RTGS, rail.Wire)
		o := order(50000, "INR", payment.TypeDomestic)

		outcome, err := orch.Process(context.Background(), o)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Rail).To(Equal(rail.UPI))
		Expect(outcome.FailoverUsed).To(BeTrue())
		Expect(outcome.Receipt.Fee.IsZero()).To(BeTrue())
		Expect(trans.submitted()).To(Equal([]string{rail.UPI}))
	})

	It("fails over after a transient failure on the preferred rail", func() {
		registerAll(rail.NEFT, rail.UPI, rail.RTGS, rail.Wire)
		trans.fail(rail.NEFT, errs.KindServiceUnavailable)
		o := order(50000, "INR", payment.TypeDomestic)

		outcome, err := orch.Process(context.Background(), o)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Rail).To(Equal(rail.UPI))
		Expect(outcome.FailoverUsed).To(BeTrue())
		Expect(trans.submitted()).To(Equal([]string{rail.NEFT, rail.UPI}))
	})

	It("walks alternates in ascending fee order", func() {
		registerAll(rail.NEFT, rail.UPI, rail.RTGS, rail.Wire)
		trans.fail(rail.NEFT, errs.KindConnectionError)
		trans.fail(rail.UPI, errs.KindConnectionError)

		// 50,000 validates on NEFT (fee 12), UPI (fee 0) and Wire with
		// aux identifiers (fee 75). The cheapest alternate goes first.
		o := order(50000, "INR", payment.TypeDomestic)

		outcome, err := orch.Process(context.Background(), o)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Rail).To(Equal(rail.Wire))
		Expect(trans.submitted()).To(Equal([]string{rail.NEFT, rail.UPI, rail.Wire}))
	})

	It("returns the transient error when every attempt failed transiently", func() {
		registerAll(rail.NEFT, rail.UPI, rail.RTGS, rail.Wire)
		trans.fail(rail.NEFT, errs.KindConnectionError)
		trans.fail(rail.UPI, errs.KindNetworkTimeout)
		trans.fail(rail.Wire, errs.KindServiceUnavailable)
		o := order(50000, "INR", payment.TypeDomestic)

		outcome, err := orch.Process(context.Background(), o)

		Expect(err).To(HaveOccurred())
		Expect(errs.Retryable(err)).To(BeTrue())
		Expect(outcome.RequiresManualReview).To(BeFalse())
		Expect(outcome.Errors).To(HaveLen(3))
	})

	It("flags manual review when the only eligible rail is circuit-open", func() {
		registerAll(rail.NEFT, rail.UPI, rail.RTGS, rail.Wire)
		breakers.GetBreaker(rail.Wire).ForceOpen()

		// International USD settles on the wire rail only.
		o := order(15000, "USD", payment.TypeInternational)

		outcome, err := orch.Process(context.Background(), o)

		Expect(errs.KindOf(err)).To(Equal(errs.KindManualReview))
		Expect(outcome.RequiresManualReview).To(BeTrue())
		Expect(outcome.FailoverUsed).To(BeTrue())
		Expect(trans.submitted()).To(BeEmpty())
	})

	It("feeds attempt outcomes back into the health registry", func() {
		registerAll(rail.NEFT)
		registerAll(rail.UPI)
		trans.fail(rail.NEFT, errs.KindServiceUnavailable)
		o := order(50000, "INR", payment.TypeDomestic)

		_, err := orch.Process(context.Background(), o)
		Expect(err).NotTo(HaveOccurred())

		var neftFailures int
		for _, rec := range registry.Records() {
			if rec.Service == rail.NEFT {
				neftFailures = rec.ConsecutiveFailures
			}
		}
		Expect(neftFailures).To(Equal(1))
	})
})
