package main

import (
	"encoding/json"
	"net/http"

	"github.com/ashwinrao/railswitch/internal/handler"
	"github.com/ashwinrao/railswitch/internal/metrics"
	"github.com/ashwinrao/railswitch/internal/orchestrator"
)

func setupRouter(paymentHandler *handler.PaymentHandler, collector *metrics.Collector, rc *orchestrator.ResilienceContext) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/payments", paymentHandler.ServeHTTP)
	mux.HandleFunc("/metrics", collector.Handler())

	mux.HandleFunc("/breakers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rc.Breakers.Stats())
	})

	mux.HandleFunc("/rails/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rc.Health.Records())
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return mux
}
