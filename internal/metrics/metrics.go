package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Metrics struct {
	mutex        sync.RWMutex
	submissions  int64
	failovers    int64
	retries      int64
	reviews      int64
	settlements  map[string]int64
	failures     map[string]int64
	fees         map[string]decimal.Decimal
	latencies    map[string][]time.Duration
	healthStatus map[string]bool
	startTime    time.Time
}

type Snapshot struct {
	TotalSubmissions int64                  `json:"total_submissions"`
	TotalSettlements int64                  `json:"total_settlements"`
	TotalFailures    int64                  `json:"total_failures"`
	Failovers        int64                  `json:"failovers"`
	Retries          int64                  `json:"retries"`
	ManualReviews    int64                  `json:"manual_reviews"`
	Uptime           time.Duration          `json:"uptime"`
	Rails            map[string]RailMetrics `json:"rails"`
}

type RailMetrics struct {
	Settlements   int64           `json:"settlements"`
	Failures      int64           `json:"failures"`
	FeesCollected decimal.Decimal `json:"fees_collected"`
	Healthy       bool            `json:"healthy"`
	AvgLatency    time.Duration   `json:"avg_latency"`
	P50Latency    time.Duration   `json:"p50_latency"`
	P95Latency    time.Duration   `json:"p95_latency"`
	P99Latency    time.Duration   `json:"p99_latency"`
}

func (m *Metrics) IncrementSubmissions() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.submissions++
}

func (m *Metrics) IncrementFailovers() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failovers++
}

func (m *Metrics) IncrementRetries() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.retries++
}

func (m *Metrics) IncrementManualReviews() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reviews++
}

func (m *Metrics) RecordSettlement(railName string, fee decimal.Decimal, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.settlements[railName]++
	m.fees[railName] = m.fees[railName].Add(fee)

	m.latencies[railName] = append(m.latencies[railName], duration)
	if len(m.latencies[railName]) > 1000 {
		m.latencies[railName] = m.latencies[railName][1:]
	}
}

func (m *Metrics) RecordFailure(railName string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failures[railName]++
}

func (m *Metrics) UpdateHealthStatus(railName string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[railName] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalSubmissions: m.submissions,
		Failovers:        m.failovers,
		Retries:          m.retries,
		ManualReviews:    m.reviews,
		Uptime:           time.Since(m.startTime),
		Rails:            make(map[string]RailMetrics),
	}

	// Collect all rails that appear in any map
	allRails := make(map[string]bool)
	for railName := range m.settlements {
		allRails[railName] = true
	}
	for railName := range m.failures {
		allRails[railName] = true
	}
	for railName := range m.latencies {
		allRails[railName] = true
	}
	for railName := range m.healthStatus {
		allRails[railName] = true
	}

	for railName := range allRails {
		snap.TotalSettlements += m.settlements[railName]
		snap.TotalFailures += m.failures[railName]

		rm := RailMetrics{
			Settlements:   m.settlements[railName],
			Failures:      m.failures[railName],
			FeesCollected: m.fees[railName],
			Healthy:       m.healthStatus[railName],
		}

		durations := m.latencies[railName]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			rm.AvgLatency = average(sorted)
			rm.P50Latency = percentile(sorted, 0.50)
			rm.P95Latency = percentile(sorted, 0.95)
			rm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Rails[railName] = rm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		settlements:  make(map[string]int64),
		failures:     make(map[string]int64),
		fees:         make(map[string]decimal.Decimal),
		latencies:    make(map[string][]time.Duration),
		healthStatus: make(map[string]bool),
		startTime:    time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
