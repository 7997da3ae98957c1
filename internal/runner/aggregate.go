package runner

import (
	"sort"
	"time"
)

// aggregate is a pure function from the frozen set of worker snapshots to one
// Result. Calling it twice over the same snapshots yields identical output.
func aggregate(sc *Scenario, snaps []UserSnapshot, start, end time.Time) *Result {
	res := &Result{
		ScenarioName: sc.Name,
		StartTime:    start,
		EndTime:      end,
		Duration:     end.Sub(start),
		VirtualUsers: sc.VirtualUsers,
		ErrorsByType: make(map[string]int),
	}

	var latencies []time.Duration
	for _, s := range snaps {
		res.TotalRequests += s.RequestCount
		res.FailedRequests += s.ErrorCount
		latencies = append(latencies, s.ResponseTimes...)
		for _, f := range s.Failures {
			kind := f.Kind
			if kind == "" {
				kind = KindUnknown
			}
			res.ErrorsByType[kind]++
		}
	}
	res.SuccessfulRequests = res.TotalRequests - res.FailedRequests

	// A single 0 sentinel keeps the statistics defined when nothing completed;
	// percentile fields are not meaningful in that case.
	if len(latencies) == 0 {
		latencies = []time.Duration{0}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	res.AvgResponseTime = sum / time.Duration(len(latencies))
	res.MinResponseTime = latencies[0]
	res.MaxResponseTime = latencies[len(latencies)-1]
	res.P50ResponseTime = nearestRank(latencies, 0.50)
	res.P95ResponseTime = nearestRank(latencies, 0.95)
	res.P99ResponseTime = nearestRank(latencies, 0.99)

	if res.TotalRequests > 0 {
		res.ErrorRate = float64(res.FailedRequests) / float64(res.TotalRequests) * 100
		res.Throughput = float64(res.TotalRequests) / sc.Duration.Seconds()
	}

	res.Criteria = CriteriaBreakdown{
		ResponseTime: res.AvgResponseTime <= sc.Criteria.MaxResponseTime,
		ErrorRate:    res.ErrorRate <= sc.Criteria.MaxErrorRate,
		Throughput:   res.Throughput >= sc.Criteria.MinThroughput,
	}
	res.CriteriaMet = res.Criteria.ResponseTime && res.Criteria.ErrorRate && res.Criteria.Throughput

	return res
}

// nearestRank reads sorted[floor(n*p)], clamped to the last element. No
// interpolation: the rule is deterministic so tests can encode it exactly.
func nearestRank(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
