package activity

import (
	"math"
	"sync"
	"time"
)

// MaxLatencySamples bounds the response-time window.
const MaxLatencySamples = 50

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	TotalRequests      int     `json:"totalRequests"`
	SuccessfulRequests int     `json:"successfulRequests"`
	FailedRequests     int     `json:"failedRequests"`
	RetryCount         int     `json:"retryCount"`
	AverageResponseMs  float64 `json:"averageResponseMs"`
	SuccessRate        float64 `json:"successRate"`
	Samples            int     `json:"samples"`
}

// Stats counts requests and keeps a rolling response-time average. It
// satisfies fetch.RequestRecorder.
type Stats struct {
	mu         sync.Mutex
	total      int
	successful int
	failed     int
	retryCount int
	latencies  []float64
	averageMs  float64
}

func NewStats() *Stats {
	return &Stats{latencies: make([]float64, 0, MaxLatencySamples)}
}

func (s *Stats) RequestStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
}

func (s *Stats) RequestSucceeded(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successful++
	s.recordLatencyLocked(float64(latency) / float64(time.Millisecond))
}

func (s *Stats) RequestFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

func (s *Stats) RetryCountChanged(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCount = n
}

// PayloadRejected reclassifies the most recent successful request as failed
// after its body was rejected, and drops its latency sample. It does nothing
// when no success has been recorded.
func (s *Stats) PayloadRejected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.successful == 0 {
		return
	}
	s.successful--
	s.failed++
	if n := len(s.latencies); n > 0 {
		s.latencies = s.latencies[:n-1]
		s.averageLocked()
	}
}

// RecordLatency adds one response time in milliseconds to the window.
func (s *Stats) RecordLatency(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLatencyLocked(ms)
}

func (s *Stats) recordLatencyLocked(ms float64) {
	s.latencies = append(s.latencies, ms)
	if len(s.latencies) > MaxLatencySamples {
		s.latencies = s.latencies[1:]
	}
	s.averageLocked()
}

func (s *Stats) averageLocked() {
	if len(s.latencies) == 0 {
		s.averageMs = 0
		return
	}
	var sum float64
	for _, v := range s.latencies {
		sum += v
	}
	s.averageMs = round(sum/float64(len(s.latencies)), 2)
}

// SuccessRate is successful/total as a percentage rounded to one decimal,
// or 0 before the first request.
func (s *Stats) SuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successRateLocked()
}

func (s *Stats) successRateLocked() float64 {
	if s.total == 0 {
		return 0
	}
	return round(float64(s.successful)/float64(s.total)*100, 1)
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		TotalRequests:      s.total,
		SuccessfulRequests: s.successful,
		FailedRequests:     s.failed,
		RetryCount:         s.retryCount,
		AverageResponseMs:  s.averageMs,
		SuccessRate:        s.successRateLocked(),
		Samples:            len(s.latencies),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
