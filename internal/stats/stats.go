// Package stats holds the live, in-flight counters of a running load test.
// The authoritative end-of-run statistics come from the aggregator; this
// package only feeds progress displays while workers are still running.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Stats holds real-time aggregated metrics for one run.
type Stats struct {
	Requests uint64
	Success  uint64
	Fail     uint64

	mu      sync.Mutex
	latency *hdrhistogram.Histogram
}

func NewStats() *Stats {
	return &Stats{
		// 1us to 10min, 3 significant figures.
		latency: hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3),
	}
}

// AddRequest records one completed call. latencyUs is recorded only for
// successful calls, matching what the final percentiles are computed over.
func (s *Stats) AddRequest(success bool, latencyUs int64) {
	atomic.AddUint64(&s.Requests, 1)
	if success {
		atomic.AddUint64(&s.Success, 1)
		s.mu.Lock()
		s.latency.RecordValue(latencyUs)
		s.mu.Unlock()
	} else {
		atomic.AddUint64(&s.Fail, 1)
	}
}

func (s *Stats) ErrorRate() float64 {
	reqs := atomic.LoadUint64(&s.Requests)
	if reqs == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Fail)
	return (float64(fails) / float64(reqs)) * 100
}

// Recorded returns how many latencies the histogram has seen so far.
func (s *Stats) Recorded() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latency.TotalCount()
}

func (s *Stats) P50Ms() float64 { return s.quantileMs(50) }
func (s *Stats) P95Ms() float64 { return s.quantileMs(95) }
func (s *Stats) P99Ms() float64 { return s.quantileMs(99) }

func (s *Stats) quantileMs(q float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.latency.ValueAtQuantile(q)) / 1000.0
}

// MaxMs returns the slowest successful call seen so far in milliseconds.
func (s *Stats) MaxMs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.latency.Max()) / 1000.0
}

// MeanMs returns the mean successful-call latency in milliseconds.
func (s *Stats) MeanMs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latency.Mean() / 1000.0
}
