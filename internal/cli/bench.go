package cli

import (
	"context"
	"fmt"
	"time"

	"surge/internal/bench"
	"surge/internal/target"
)

// BenchOptions carries the bench command's flags.
type BenchOptions struct {
	RunOptions

	Iterations int
	Baseline   bool
}

// Bench times the configured request sequentially and prints the record.
// With Baseline set, it runs twice and reports the regression delta between
// the two passes.
func Bench(opts BenchOptions) error {
	targetFn := target.NewHTTP(target.HTTPConfig{
		URL:     opts.URL,
		Method:  opts.Method,
		Body:    opts.Body,
		Headers: opts.Headers,
		Timeout: opts.Timeout,
	})

	suite := bench.NewSuite(newLogger(opts.Verbose))
	if err := suite.Register("http", func() error {
		return targetFn(context.Background(), nil)
	}, opts.Iterations); err != nil {
		return err
	}

	fmt.Printf("\n⏱️  BENCHMARK: %s %s (%d iterations)\n", opts.Method, opts.URL, opts.Iterations)

	rec, err := suite.Run("http")
	if err != nil {
		return err
	}
	printRecord(rec)

	if opts.Baseline {
		if err := suite.SetBaseline("http"); err != nil {
			return err
		}
		if _, err := suite.Run("http"); err != nil {
			return err
		}
		cmp, err := suite.CompareWithBaseline("http")
		if err != nil {
			return err
		}
		fmt.Printf("\n🔁 SECOND PASS vs BASELINE\n")
		fmt.Printf("   Baseline Mean : %s\n", cmp.BaselineMean.Round(time.Microsecond))
		fmt.Printf("   Current Mean  : %s\n", cmp.CurrentMean.Round(time.Microsecond))
		fmt.Printf("   Improvement   : %.2f%% (%s)\n", cmp.ImprovementPct, cmp.Verdict)
	}
	return nil
}

func printRecord(rec *bench.Record) {
	if rec.Failed {
		fmt.Printf("❌ All %d iterations failed\n", rec.Iterations)
		for i, msg := range rec.Errors {
			if i >= 5 {
				fmt.Printf("   ... and %d more\n", len(rec.Errors)-i)
				break
			}
			fmt.Printf("   %s\n", msg)
		}
		return
	}

	fmt.Printf("   Mean       : %s\n", rec.Mean.Round(time.Microsecond))
	fmt.Printf("   Median     : %s\n", rec.Median.Round(time.Microsecond))
	fmt.Printf("   Min / Max  : %s / %s\n", rec.Min.Round(time.Microsecond), rec.Max.Round(time.Microsecond))
	fmt.Printf("   StdDev     : %s\n", rec.StdDev.Round(time.Microsecond))
	fmt.Printf("   Throughput : %.1f ops/s\n", rec.Throughput)
	if rec.Failures > 0 {
		fmt.Printf("   Failures   : %d/%d\n", rec.Failures, rec.Iterations)
	}
}
