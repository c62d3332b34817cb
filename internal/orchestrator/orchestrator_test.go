package orchestrator_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/audit"
	"github.com/ashwinrao/railswitch/internal/circuitbreaker"
	"github.com/ashwinrao/railswitch/internal/errs"
	"github.com/ashwinrao/railswitch/internal/fx"
	"github.com/ashwinrao/railswitch/internal/orchestrator"
	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/rail"
	"github.com/ashwinrao/railswitch/internal/retry"
	"github.com/ashwinrao/railswitch/internal/transport"
)

// countingTransport fails the first failures submissions per network with
// the given kind, then delegates to the deterministic transport.
type countingTransport struct {
	mutex    sync.Mutex
	failures map[string]int
	kind     errs.Kind
	delegate transport.Transport
}

func newCountingTransport(kind errs.Kind, failures map[string]int) *countingTransport {
	return &countingTransport{
		failures: failures,
		kind:     kind,
		delegate: transport.NewSimulated(nil),
	}
}

func (t *countingTransport) Submit(ctx context.Context, network string, order *payment.Order) (string, error) {
	t.mutex.Lock()
	remaining := t.failures[network]
	if remaining > 0 {
		t.failures[network] = remaining - 1
	}
	t.mutex.Unlock()

	if remaining > 0 {
		return "", &errs.Error{Kind: t.kind, Rail: network, Msg: "injected failure"}
	}
	return t.delegate.Submit(ctx, network, order)
}

func (t *countingTransport) Ping(ctx context.Context, network string) error {
	return nil
}

func rateFixture(ctx context.Context) ([]fx.Rate, error) {
	return []fx.Rate{
		{From: "USD", To: "INR", Rate: decimal.NewFromFloat(83.10), Spread: decimal.NewFromFloat(0.005)},
	}, nil
}

func instruction(amount int64, currency string, ptype payment.Type) payment.Instruction {
	return payment.Instruction{
		Amount:            decimal.NewFromInt(amount),
		Currency:          currency,
		FromAccountID:     "ACC-1001",
		ToAccountID:       "ACC-1002",
		PaymentType:       ptype,
		RoutingCode:       "HDFC0001234",
		WalletID:          "payee@upi",
		SwiftCode:         "CHASUS33",
		CorrespondentBank: "JPMC",
	}
}

var _ = Describe("Orchestrator", func() {
	var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	build := func(opts orchestrator.Options) (*orchestrator.Orchestrator, *orchestrator.ResilienceContext) {
		if opts.Retry.BaseDelay == 0 {
			opts.Retry = retry.Config{
				BaseDelay:  time.Millisecond,
				MaxDelay:   5 * time.Millisecond,
				MaxRetries: 3,
			}
		}
		if opts.Breaker.FailureThreshold == 0 {
			opts.Breaker = circuitbreaker.Config{
				FailureThreshold: 10,
				RecoveryTimeout:  time.Second,
				CallTimeout:      time.Second,
			}
		}
		if opts.Audit == nil {
			opts.Audit = audit.Nop{}
		}
		if opts.RateSource == nil {
			opts.RateSource = rateFixture
		}

		rc := orchestrator.BuildContext(opts, logger)
		Expect(rc.FX.Refresh(context.Background())).To(Succeed())
		return orchestrator.New(rc), rc
	}

	It("settles a mid-value domestic payment on the batch rail", func() {
		orch, _ := build(orchestrator.Options{})

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    instruction(50000, "INR", payment.TypeDomestic),
			AccountBalance: decimal.NewFromInt(100000),
		})

		Expect(result.Success).To(BeTrue())
		Expect(result.RailUsed).To(Equal(rail.NEFT))
		Expect(result.Fee.Equal(decimal.NewFromInt(12))).To(BeTrue(), "got %s", result.Fee)
		Expect(result.FailoverUsed).To(BeFalse())
		Expect(result.RetryCount).To(BeZero())
		Expect(result.Reference).To(HavePrefix("NEFT-"))
		Expect(result.ProcessingTimeEstimate).To(Equal(2 * time.Hour))
	})

	It("fails a high-value payment outside the gross settlement window without retrying", func() {
		descriptors := []rail.Descriptor{
			rail.DefaultWireDescriptor(),
			rail.DefaultRTGSDescriptor(),
			rail.DefaultNEFTDescriptor(),
			rail.DefaultUPIDescriptor(),
		}
		for i := range descriptors {
			if descriptors[i].Name == rail.RTGS {
				descriptors[i].OpenHour = (time.Now().Hour() + 2) % 24
				descriptors[i].CloseHour = (time.Now().Hour() + 3) % 24
			}
		}
		orch, _ := build(orchestrator.Options{Descriptors: descriptors})

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    instruction(5_000_000, "INR", payment.TypeDomestic),
			AccountBalance: decimal.NewFromInt(10_000_000),
		})

		Expect(result.Success).To(BeFalse())
		Expect(result.ErrorKind).To(Equal("VALIDATION_ERROR"))
		Expect(result.Error).To(ContainSubstring("not within operating hours"))
		Expect(result.RetryCount).To(BeZero())
		Expect(result.FailoverUsed).To(BeFalse())
	})

	It("sends an international payment to manual review when the wire breaker is open", func() {
		orch, rc := build(orchestrator.Options{})
		rc.Breakers.GetBreaker(rail.Wire).ForceOpen()

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    instruction(15000, "USD", payment.TypeInternational),
			AccountBalance: decimal.NewFromInt(100000),
		})

		Expect(result.Success).To(BeFalse())
		Expect(result.RequiresManualReview).To(BeTrue())
		Expect(result.ErrorKind).To(Equal("MANUAL_REVIEW_REQUIRED"))
	})

	It("rejects a malformed instruction before touching any rail", func() {
		orch, _ := build(orchestrator.Options{})

		in := instruction(1000, "INR", payment.TypeDomestic)
		in.ToAccountID = in.FromAccountID

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    in,
			AccountBalance: decimal.NewFromInt(100000),
		})

		Expect(result.Success).To(BeFalse())
		Expect(result.ErrorKind).To(Equal("VALIDATION_ERROR"))
	})

	It("rejects a payment the balance cannot cover", func() {
		orch, _ := build(orchestrator.Options{})

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    instruction(50000, "INR", payment.TypeDomestic),
			AccountBalance: decimal.NewFromInt(10),
		})

		Expect(result.Success).To(BeFalse())
		Expect(result.ErrorKind).To(Equal("FUNDS_ERROR"))
	})

	It("checks funds against the converted amount", func() {
		orch, _ := build(orchestrator.Options{})

		// 100 USD converts to 8310 INR; the balance covers the USD face
		// value but not the settled amount.
		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    instruction(100, "USD", payment.TypeInternational),
			AccountBalance: decimal.NewFromInt(500),
			TargetCurrency: "INR",
		})

		Expect(result.Success).To(BeFalse())
		Expect(result.ErrorKind).To(Equal("FUNDS_ERROR"))
	})

	It("fails with a rate error when no exchange rate exists", func() {
		orch, _ := build(orchestrator.Options{})

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    instruction(1000, "GBP", payment.TypeInternational),
			AccountBalance: decimal.NewFromInt(100000),
			TargetCurrency: "JPY",
		})

		Expect(result.Success).To(BeFalse())
		Expect(result.ErrorKind).To(Equal("RATE_UNAVAILABLE"))
	})

	It("retries a transient failure and settles on a later attempt", func() {
		// Every eligible rail fails once, so the first pass and its
		// failover both miss; the first retry lands.
		trans := newCountingTransport(errs.KindServiceUnavailable, map[string]int{
			rail.NEFT: 1,
			rail.UPI:  1,
			rail.Wire: 1,
		})
		orch, _ := build(orchestrator.Options{Transport: trans})

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    instruction(50000, "INR", payment.TypeDomestic),
			AccountBalance: decimal.NewFromInt(100000),
		})

		Expect(result.Success).To(BeTrue())
		Expect(result.RetryCount).To(Equal(1))
	})

	It("fails after exhausting the retry budget", func() {
		trans := newCountingTransport(errs.KindNetworkTimeout, map[string]int{
			rail.NEFT: 100,
			rail.UPI:  100,
			rail.Wire: 100,
			rail.RTGS: 100,
		})
		orch, _ := build(orchestrator.Options{
			Transport: trans,
			Retry: retry.Config{
				BaseDelay:  time.Millisecond,
				MaxDelay:   2 * time.Millisecond,
				MaxRetries: 2,
			},
		})

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    instruction(50000, "INR", payment.TypeDomestic),
			AccountBalance: decimal.NewFromInt(100000),
		})

		Expect(result.Success).To(BeFalse())
		Expect(result.Error).To(Equal("SERVICE_UNAVAILABLE: maximum retry attempts exceeded"))
		Expect(result.ErrorKind).To(Equal("SERVICE_UNAVAILABLE"))
		Expect(result.RetryCount).To(Equal(2))
	})

	It("routes small instant payments over the instant rail for free", func() {
		orch, _ := build(orchestrator.Options{})

		in := instruction(800, "INR", payment.TypeDomestic)
		in.Urgency = payment.UrgencyInstant

		result := orch.Process(context.Background(), orchestrator.Request{
			Instruction:    in,
			AccountBalance: decimal.NewFromInt(100000),
		})

		Expect(result.Success).To(BeTrue())
		Expect(result.RailUsed).To(Equal(rail.UPI))
		Expect(result.Fee.IsZero()).To(BeTrue())
	})
})
