package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/audit"
	"github.com/ashwinrao/railswitch/internal/circuitbreaker"
	"github.com/ashwinrao/railswitch/internal/fx"
	"github.com/ashwinrao/railswitch/internal/handler"
	"github.com/ashwinrao/railswitch/internal/ledger"
	"github.com/ashwinrao/railswitch/internal/orchestrator"
	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/rail"
	"github.com/ashwinrao/railswitch/internal/retry"
)

var _ = Describe("PaymentHandler", func() {
	var (
		h   *handler.PaymentHandler
		rc  *orchestrator.ResilienceContext
		ldg *ledger.Static
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))

		rc = orchestrator.BuildContext(orchestrator.Options{
			Breaker: circuitbreaker.Config{
				FailureThreshold: 10,
				RecoveryTimeout:  time.Second,
			},
			Retry: retry.Config{
				BaseDelay:  time.Millisecond,
				MaxDelay:   5 * time.Millisecond,
				MaxRetries: 1,
			},
			Audit: audit.Nop{},
			RateSource: func(ctx context.Context) ([]fx.Rate, error) {
				return []fx.Rate{
					{From: "USD", To: "INR", Rate: decimal.NewFromFloat(83.10)},
				}, nil
			},
		}, logger)
		Expect(rc.FX.Refresh(context.Background())).To(Succeed())

		ldg = ledger.NewStatic(map[string]decimal.Decimal{
			"ACC-1001": decimal.NewFromInt(1_000_000),
			"ACC-2002": decimal.NewFromInt(50),
		})

		h = handler.NewPaymentHandler(logger, orchestrator.New(rc), ldg)
	})

	post := func(body any) *httptest.ResponseRecorder {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(raw))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	submitBody := func(amount int64) map[string]any {
		return map[string]any{
			"amount":          amount,
			"currency":        "INR",
			"from_account_id": "ACC-1001",
			"to_account_id":   "ACC-1002",
			"payment_type":    "DOMESTIC_TRANSFER",
			"routing_code":    "HDFC0001234",
			"wallet_id":       "payee@upi",
		}
	}

	It("settles a valid submission and returns the result", func() {
		rec := post(submitBody(50000))

		Expect(rec.Code).To(Equal(http.StatusOK))

		var result payment.SettlementResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
		Expect(result.Success).To(BeTrue())
		Expect(result.RailUsed).To(Equal(rail.NEFT))
		Expect(result.TransactionID).NotTo(BeEmpty())
	})

	It("rejects non-POST methods", func() {
		req := httptest.NewRequest(http.MethodGet, "/payments", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("rejects a body that is not JSON", func() {
		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString("not json"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("maps validation failures to 422", func() {
		body := submitBody(50000)
		body["to_account_id"] = body["from_account_id"]

		rec := post(body)
		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))

		var result payment.SettlementResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
		Expect(result.ErrorKind).To(Equal("VALIDATION_ERROR"))
	})

	It("maps insufficient funds to 402", func() {
		body := submitBody(50000)
		body["from_account_id"] = "ACC-2002"

		rec := post(body)
		Expect(rec.Code).To(Equal(http.StatusPaymentRequired))
	})

	It("maps an unknown account to 402", func() {
		body := submitBody(50000)
		body["from_account_id"] = "ACC-9999"

		rec := post(body)
		Expect(rec.Code).To(Equal(http.StatusPaymentRequired))
	})

	It("maps manual review to 202", func() {
		rc.Breakers.GetBreaker(rail.Wire).ForceOpen()

		body := submitBody(15000)
		body["currency"] = "USD"
		body["payment_type"] = "INTERNATIONAL_TRANSFER"
		body["swift_code"] = "CHASUS33"
		body["correspondent_bank"] = "JPMC"

		rec := post(body)
		Expect(rec.Code).To(Equal(http.StatusAccepted))

		var result payment.SettlementResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
		Expect(result.RequiresManualReview).To(BeTrue())
	})

	It("maps a missing exchange rate to 409", func() {
		body := submitBody(50000)
		body["target_currency"] = "JPY"

		rec := post(body)
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})
})
