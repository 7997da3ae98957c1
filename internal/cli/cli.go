// Package cli is the headless front end: it wires the engine to terminal
// output, report files and the history store.
package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"surge/internal/runner"
	"surge/internal/storage"
	"surge/internal/sysmon"
	"surge/internal/target"
)

// RunOptions carries everything the run command collected from flags.
type RunOptions struct {
	URL     string
	Method  string
	Body    string
	Headers map[string]string

	Users    int
	Duration time.Duration
	Requests int
	RampUp   time.Duration
	ThinkMin time.Duration
	ThinkMax time.Duration
	Timeout  time.Duration

	MaxWorkers  int
	OutPrefix   string
	HistoryPath string
	Verbose     bool
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o RunOptions) scenario(name string) (*runner.Scenario, error) {
	sc := &runner.Scenario{
		Name: name,
		Target: target.NewHTTP(target.HTTPConfig{
			URL:     o.URL,
			Method:  o.Method,
			Body:    o.Body,
			Headers: o.Headers,
			Timeout: o.Timeout,
		}),
		VirtualUsers:    o.Users,
		Duration:        o.Duration,
		RequestsPerUser: o.Requests,
		RampUp:          o.RampUp,
		ThinkTime:       runner.ThinkTime{Min: o.ThinkMin, Max: o.ThinkMax},
	}

	// Templated bodies become a per-request payload generator.
	if strings.Contains(o.Body, "{{") {
		payload, err := target.NewTemplateEngine().PayloadFunc(name, o.Body)
		if err != nil {
			return nil, err
		}
		sc.Payload = payload
	}
	return sc, nil
}

// Run executes one headless load test and prints progress plus a summary.
func Run(opts RunOptions) error {
	printHeader(opts)

	sc, err := opts.scenario("cli")
	if err != nil {
		return err
	}

	updates := make(runner.StatsUpdateChan, 100)
	eng := runner.NewEngine(runner.EngineConfig{
		MaxWorkers: opts.MaxWorkers,
		Sampler:    sysmon.NewHostSampler(),
		Logger:     newLogger(opts.Verbose),
		Updates:    updates,
	})

	type runOutcome struct {
		res *runner.Result
		err error
	}
	done := make(chan runOutcome, 1)
	go func() {
		res, err := eng.Run(context.Background(), sc)
		done <- runOutcome{res, err}
	}()

	start := time.Now()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var last runner.StatsSnapshot
	for {
		select {
		case s := <-updates:
			last = s
		case <-ticker.C:
			printProgress(start, opts.Duration, last)
		case out := <-done:
			if out.err != nil {
				fmt.Println()
				return out.err
			}
			printProgress(start, opts.Duration, last)
			printSummary(out.res)
			return finishRun(out.res, opts)
		}
	}
}

func finishRun(res *runner.Result, opts RunOptions) error {
	if opts.OutPrefix != "" {
		if err := ExportJSON(res, opts.OutPrefix+".json"); err != nil {
			return err
		}
		if err := ExportSummaryCSV(res, opts.OutPrefix+"_summary.csv"); err != nil {
			return err
		}
		fmt.Printf("\n💾 Reports saved to %s.{json,_summary.csv}\n", opts.OutPrefix)
	}
	if opts.HistoryPath != "" {
		store, err := storage.Open(opts.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(res); err != nil {
			return err
		}
		fmt.Printf("💾 Run %s saved to history\n", res.ID)
	}
	return nil
}

// StressOptions carries the stress command's flags.
type StressOptions struct {
	RunOptions

	MaxUsers     int
	StepSize     int
	StepDuration time.Duration
}

// Stress escalates load against the target until it breaks and prints the
// resulting curve.
func Stress(opts StressOptions) error {
	fmt.Printf("\n🔥 STRESS SEARCH\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Target URL : %s\n", opts.URL)
	fmt.Printf("Escalation : %d users per step, up to %d, %s per step\n", opts.StepSize, opts.MaxUsers, opts.StepDuration)
	fmt.Printf("======================================================================\n\n")

	eng := runner.NewEngine(runner.EngineConfig{
		MaxWorkers: opts.MaxWorkers,
		Logger:     newLogger(opts.Verbose),
	})

	targetFn := target.NewHTTP(target.HTTPConfig{
		URL:     opts.URL,
		Method:  opts.Method,
		Body:    opts.Body,
		Headers: opts.Headers,
		Timeout: opts.Timeout,
	})

	report, err := eng.RunStressTest(context.Background(), "cli", targetFn, opts.MaxUsers, opts.StepSize, opts.StepDuration)
	if err != nil {
		return err
	}

	fmt.Printf("%-8s %-10s %-10s %-12s %-8s\n", "USERS", "REQS", "ERR%", "AVG", "PASS")
	for _, step := range report.Steps {
		pass := "yes"
		if !step.CriteriaMet {
			pass = "no"
		}
		fmt.Printf("%-8d %-10d %-10.1f %-12s %-8s\n",
			step.VirtualUsers, step.TotalRequests, step.ErrorRate,
			step.AvgResponseTime.Round(time.Millisecond), pass)
	}

	fmt.Printf("\n")
	if report.BreakingPoint > 0 {
		fmt.Printf("💥 Breaking point     : %d users\n", report.BreakingPoint)
	} else {
		fmt.Printf("💪 No breaking point found up to %d users\n", opts.MaxUsers)
	}
	fmt.Printf("✅ Max sustainable    : %d users\n", report.MaxSustainableUsers)
	return nil
}

func printHeader(opts RunOptions) {
	fmt.Printf("\n🚀 STARTING SURGE LOAD TEST\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Target URL : %s\n", opts.URL)
	fmt.Printf("Method     : %s\n", opts.Method)
	fmt.Printf("Users      : %d\n", opts.Users)
	fmt.Printf("Duration   : %s (RampUp %s)\n", opts.Duration, opts.RampUp)
	fmt.Printf("Think Time : %s - %s\n", opts.ThinkMin, opts.ThinkMax)
	fmt.Printf("Timeout    : %s\n", opts.Timeout)
	fmt.Printf("======================================================================\n\n")
}

func printProgress(start time.Time, total time.Duration, s runner.StatsSnapshot) {
	elapsed := time.Since(start)
	pct := elapsed.Seconds() / total.Seconds()
	if pct > 1.0 {
		pct = 1.0
	}
	fmt.Printf("\r%s %3.0f%% | %s/%s | Reqs: %d | OK: %d | Err: %d | P95: %.1fms",
		progressBar(pct, 20), pct*100,
		elapsed.Round(time.Second), total,
		s.Requests, s.Success, s.Fail, s.P95Ms,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(res *runner.Result) {
	fmt.Printf("\n\n📊 LOAD TEST RESULTS\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Total Duration : %s\n", res.Duration.Round(time.Second))
	fmt.Printf("Requests Sent  : %d\n", res.TotalRequests)
	fmt.Printf("Success        : %d\n", res.SuccessfulRequests)
	fmt.Printf("Failures       : %d\n", res.FailedRequests)
	fmt.Printf("Error Rate     : %.2f%%\n", res.ErrorRate)
	fmt.Printf("Throughput     : %.2f req/s\n", res.Throughput)
	fmt.Printf("\n⏱️  RESPONSE TIMES [Success Only]\n")
	fmt.Printf("   Avg : %s\n", res.AvgResponseTime.Round(time.Microsecond))
	fmt.Printf("   Min : %s\n", res.MinResponseTime.Round(time.Microsecond))
	fmt.Printf("   P50 : %s\n", res.P50ResponseTime.Round(time.Microsecond))
	fmt.Printf("   P95 : %s\n", res.P95ResponseTime.Round(time.Microsecond))
	fmt.Printf("   P99 : %s\n", res.P99ResponseTime.Round(time.Microsecond))
	fmt.Printf("   Max : %s\n", res.MaxResponseTime.Round(time.Microsecond))

	if len(res.ErrorsByType) > 0 {
		fmt.Printf("\n❌ FAILURE SUMMARY\n")
		kinds := make([]string, 0, len(res.ErrorsByType))
		for kind := range res.ErrorsByType {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Printf("   %d x %s\n", res.ErrorsByType[kind], kind)
		}
	}

	verdict := "✅ PASSED"
	if !res.CriteriaMet {
		verdict = "❌ FAILED"
	}
	fmt.Printf("\nSuccess Criteria: %s (latency=%t error_rate=%t throughput=%t)\n",
		verdict, res.Criteria.ResponseTime, res.Criteria.ErrorRate, res.Criteria.Throughput)
	fmt.Printf("======================================================================\n")
}
