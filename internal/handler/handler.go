package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashwinrao/railswitch/internal/errs"
	"github.com/ashwinrao/railswitch/internal/ledger"
	"github.com/ashwinrao/railswitch/internal/orchestrator"
	"github.com/ashwinrao/railswitch/internal/payment"
)

// SubmitRequest is the JSON body of POST /payments.
type SubmitRequest struct {
	payment.Instruction
	TargetCurrency string   `json:"target_currency,omitempty"`
	Recipients     []string `json:"recipients,omitempty"`
}

// PaymentHandler exposes the settlement layer over a thin JSON surface.
// Auth and request routing policy live outside this repo.
type PaymentHandler struct {
	logger *slog.Logger
	orch   *orchestrator.Orchestrator
	ledger ledger.AccountLedger
}

func NewPaymentHandler(logger *slog.Logger, orch *orchestrator.Orchestrator, ldg ledger.AccountLedger) *PaymentHandler {
	return &PaymentHandler{
		logger: logger,
		orch:   orch,
		ledger: ldg,
	}
}

func (h *PaymentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.logger.Info("Received payment instruction",
		slog.String("from", req.FromAccountID),
		slog.String("to", req.ToAccountID),
		slog.String("amount", req.Amount.String()),
		slog.String("currency", req.Currency),
		slog.String("type", string(req.PaymentType)))

	balance, err := h.ledger.GetBalance(r.Context(), req.FromAccountID)
	if err != nil {
		h.logger.Warn("balance lookup failed",
			slog.String("account", req.FromAccountID),
			slog.Any("err", err))
		writeJSON(w, statusFor(errs.KindOf(err)), payment.SettlementResult{
			Error:     err.Error(),
			ErrorKind: errs.KindOf(err).String(),
		})
		return
	}

	result := h.orch.Process(r.Context(), orchestrator.Request{
		Instruction:    req.Instruction,
		AccountBalance: balance,
		TargetCurrency: req.TargetCurrency,
		Recipients:     req.Recipients,
	})

	status := http.StatusOK
	if !result.Success {
		status = statusFor(kindFromResult(result))
	}

	writeJSON(w, status, result)
}

func kindFromResult(result payment.SettlementResult) errs.Kind {
	for k := errs.KindUnknown; k <= errs.KindManualReview; k++ {
		if k.String() == result.ErrorKind {
			return k
		}
	}
	return errs.KindUnknown
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusUnprocessableEntity
	case errs.KindFunds:
		return http.StatusPaymentRequired
	case errs.KindManualReview:
		return http.StatusAccepted
	case errs.KindRateUnavailable:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
