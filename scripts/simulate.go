// Simulate is a concurrent payment submission driver for exercising the
// settlement service: it fires a mix of domestic and international
// instructions at the /payments endpoint and reports the rail distribution,
// failover usage and latency percentiles.
//
// Usage:
//
//	go run simulate.go -url http://localhost:8080/payments -concurrency 10 -payments 500
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type settlementResult struct {
	Success              bool   `json:"success"`
	RailUsed             string `json:"rail_used"`
	FailoverUsed         bool   `json:"failover_used"`
	RetryCount           int    `json:"retry_count"`
	RequiresManualReview bool   `json:"requires_manual_review"`
	ErrorKind            string `json:"error_kind"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/payments", "Target URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		payments    = flag.Int("payments", 200, "Total number of payments to send")
		timeoutSec  = flag.Int("timeout", 30, "Per-request timeout in seconds")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var success, failure, failover, reviews int32

	railCounts := make(map[string]int32)
	kindCounts := make(map[string]int32)
	var statsMu sync.Mutex

	var latencies []time.Duration
	var latMu sync.Mutex

	start := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				body, err := json.Marshal(instructionFor(idx))
				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}

				reqStart := time.Now()
				resp, err := client.Post(*url, "application/json", bytes.NewReader(body))
				dur := time.Since(reqStart)

				latMu.Lock()
				latencies = append(latencies, dur)
				latMu.Unlock()

				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}

				var result settlementResult
				decodeErr := json.NewDecoder(resp.Body).Decode(&result)
				resp.Body.Close()
				if decodeErr != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}

				if result.Success {
					atomic.AddInt32(&success, 1)
				} else {
					atomic.AddInt32(&failure, 1)
				}
				if result.FailoverUsed {
					atomic.AddInt32(&failover, 1)
				}
				if result.RequiresManualReview {
					atomic.AddInt32(&reviews, 1)
				}

				statsMu.Lock()
				if result.RailUsed != "" {
					railCounts[result.RailUsed]++
				}
				if result.ErrorKind != "" {
					kindCounts[result.ErrorKind]++
				}
				statsMu.Unlock()
			}
		}()
	}

	for idx := 0; idx < *payments; idx++ {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Printf("Sent %d payments in %s (%.1f/s)\n", *payments, elapsed.Round(time.Millisecond), float64(*payments)/elapsed.Seconds())
	fmt.Printf("  success=%d failure=%d failover=%d manual_review=%d\n", success, failure, failover, reviews)
	fmt.Println("  rails:")
	for railName, count := range railCounts {
		fmt.Printf("    %-6s %d\n", railName, count)
	}
	if len(kindCounts) > 0 {
		fmt.Println("  error kinds:")
		for kind, count := range kindCounts {
			fmt.Printf("    %-22s %d\n", kind, count)
		}
	}
	if len(latencies) > 0 {
		fmt.Printf("  latency p50=%s p95=%s p99=%s\n",
			pct(latencies, 0.50), pct(latencies, 0.95), pct(latencies, 0.99))
	}

	if failure > 0 && success == 0 {
		os.Exit(1)
	}
}

// instructionFor cycles through a representative mix of payment shapes.
func instructionFor(idx int) map[string]any {
	base := map[string]any{
		"from_account_id": "ACC-1001",
		"to_account_id":   "ACC-2001",
		"currency":        "INR",
		"payment_type":    "DOMESTIC_TRANSFER",
		"urgency":         "NORMAL",
		"routing_code":    "HDFC0001234",
		"wallet_id":       "payee@upi",
	}

	switch idx % 4 {
	case 0: // small instant
		base["amount"] = "750"
		base["urgency"] = "INSTANT"
	case 1: // mid-value batch
		base["amount"] = "50000"
	case 2: // high-value gross settlement
		base["amount"] = "450000"
	default: // international wire
		base["amount"] = "15000"
		base["currency"] = "USD"
		base["payment_type"] = "INTERNATIONAL_TRANSFER"
		base["swift_code"] = "CHASUS33"
		base["correspondent_bank"] = "JPMorgan Chase NY"
	}

	return base
}

func pct(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx].Round(time.Millisecond)
}
