package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"surge/internal/runner"
)

// ExportJSON writes the full result to a JSON file.
func ExportJSON(res *runner.Result, filename string) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ExportSummaryCSV writes a one-row summary CSV.
func ExportSummaryCSV(res *runner.Result, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"scenario", "users", "total_reqs", "success", "fail",
		"error_rate", "throughput", "avg_ms", "p50_ms", "p95_ms", "p99_ms", "criteria_met",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	record := []string{
		res.ScenarioName,
		strconv.Itoa(res.VirtualUsers),
		strconv.Itoa(res.TotalRequests),
		strconv.Itoa(res.SuccessfulRequests),
		strconv.Itoa(res.FailedRequests),
		fmt.Sprintf("%.2f", res.ErrorRate),
		fmt.Sprintf("%.2f", res.Throughput),
		fmt.Sprintf("%.3f", float64(res.AvgResponseTime.Microseconds())/1000),
		fmt.Sprintf("%.3f", float64(res.P50ResponseTime.Microseconds())/1000),
		fmt.Sprintf("%.3f", float64(res.P95ResponseTime.Microseconds())/1000),
		fmt.Sprintf("%.3f", float64(res.P99ResponseTime.Microseconds())/1000),
		strconv.FormatBool(res.CriteriaMet),
	}
	return w.Write(record)
}
