package runner

import (
	"time"

	"surge/internal/sysmon"
)

// CriteriaBreakdown holds the per-criterion verdicts behind CriteriaMet.
type CriteriaBreakdown struct {
	ResponseTime bool `json:"response_time"`
	ErrorRate    bool `json:"error_rate"`
	Throughput   bool `json:"throughput"`
}

// Result is the aggregated outcome of one load test run. It is derived purely
// from the worker snapshots plus the originating scenario and is read-only
// after construction.
type Result struct {
	ID           string        `json:"id"`
	ScenarioName string        `json:"scenario_name"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	VirtualUsers int           `json:"virtual_users"`

	TotalRequests      int `json:"total_requests"`
	SuccessfulRequests int `json:"successful_requests"`
	FailedRequests     int `json:"failed_requests"`

	ErrorRate  float64 `json:"error_rate"` // percent
	Throughput float64 `json:"throughput"` // requests per second

	// Latency distribution over successful requests. Percentile fields are
	// meaningless when TotalRequests is zero (a 0 sentinel is substituted).
	AvgResponseTime time.Duration `json:"avg_response_time"`
	MinResponseTime time.Duration `json:"min_response_time"`
	MaxResponseTime time.Duration `json:"max_response_time"`
	P50ResponseTime time.Duration `json:"p50_response_time"`
	P95ResponseTime time.Duration `json:"p95_response_time"`
	P99ResponseTime time.Duration `json:"p99_response_time"`

	ErrorsByType    map[string]int  `json:"errors_by_type"`
	ResourceSamples []sysmon.Sample `json:"resource_samples,omitempty"`

	CriteriaMet bool              `json:"criteria_met"`
	Criteria    CriteriaBreakdown `json:"criteria"`
}
