package bench_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"surge/internal/bench"
)

func sleepOp(d time.Duration) bench.Operation {
	return func() error {
		time.Sleep(d)
		return nil
	}
}

func TestRegisterValidation(t *testing.T) {
	s := bench.NewSuite(nil)

	require.Error(t, s.Register("", sleepOp(0), 1))
	require.Error(t, s.Register("x", nil, 1))
	require.Error(t, s.Register("x", sleepOp(0), 0))
	require.NoError(t, s.Register("x", sleepOp(0), 1))
}

func TestRunComputesStatistics(t *testing.T) {
	s := bench.NewSuite(nil)
	require.NoError(t, s.Register("sleep", sleepOp(time.Millisecond), 10))

	rec, err := s.Run("sleep")
	require.NoError(t, err)

	require.Equal(t, "sleep", rec.Name)
	require.Equal(t, 10, rec.Iterations)
	require.False(t, rec.Failed)
	require.Zero(t, rec.Failures)
	require.GreaterOrEqual(t, rec.Mean, time.Millisecond)
	require.LessOrEqual(t, rec.Min, rec.Median)
	require.LessOrEqual(t, rec.Median, rec.Max)
	require.Greater(t, rec.Throughput, 0.0)
	require.InDelta(t, 1/rec.Mean.Seconds(), rec.Throughput, 1e-9)
}

func TestRunUnregistered(t *testing.T) {
	s := bench.NewSuite(nil)
	_, err := s.Run("ghost")
	require.ErrorIs(t, err, bench.ErrNotRegistered)
}

func TestRunAllIterationsFail(t *testing.T) {
	s := bench.NewSuite(nil)
	boom := errors.New("boom")
	require.NoError(t, s.Register("broken", func() error { return boom }, 5))

	rec, err := s.Run("broken")
	require.NoError(t, err)

	require.True(t, rec.Failed)
	require.Equal(t, 5, rec.Failures)
	require.Len(t, rec.Errors, 5)
	require.Zero(t, rec.Mean)
	require.Zero(t, rec.Throughput)
}

func TestRunCountsPartialFailures(t *testing.T) {
	s := bench.NewSuite(nil)
	var n int
	require.NoError(t, s.Register("flaky", func() error {
		n++
		if n%2 == 0 {
			return errors.New("even iterations fail")
		}
		return nil
	}, 10))

	rec, err := s.Run("flaky")
	require.NoError(t, err)

	require.False(t, rec.Failed)
	require.Equal(t, 5, rec.Failures)
	require.Greater(t, rec.Throughput, 0.0)
}

func TestRunAllKeepsRegistrationOrderAndContinues(t *testing.T) {
	s := bench.NewSuite(nil)
	require.NoError(t, s.Register("first", sleepOp(0), 2))
	require.NoError(t, s.Register("broken", func() error { return errors.New("nope") }, 2))
	require.NoError(t, s.Register("last", sleepOp(0), 2))

	report, err := s.RunAll()
	require.NoError(t, err)

	require.Equal(t, 3, report.Total)
	require.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Records, 3)
	require.Equal(t, "first", report.Records[0].Name)
	require.Equal(t, "broken", report.Records[1].Name)
	require.Equal(t, "last", report.Records[2].Name)
	require.True(t, report.Records[1].Failed)
}

func TestBaselineRoundTrip(t *testing.T) {
	s := bench.NewSuite(nil)
	require.NoError(t, s.Register("x", sleepOp(time.Millisecond), 5))

	_, err := s.Run("x")
	require.NoError(t, err)
	require.NoError(t, s.SetBaseline("x"))

	cmp, err := s.CompareWithBaseline("x")
	require.NoError(t, err)

	// Unchanged benchmark: zero delta against its own baseline.
	require.Equal(t, cmp.BaselineMean, cmp.CurrentMean)
	require.InDelta(t, 0.0, cmp.ImprovementPct, 1e-9)
	require.InDelta(t, 0.0, cmp.ThroughputDelta, 1e-9)
	require.Equal(t, "degraded", cmp.Verdict)
}

func TestCompareMissingData(t *testing.T) {
	s := bench.NewSuite(nil)
	require.NoError(t, s.Register("x", sleepOp(0), 1))

	_, err := s.CompareWithBaseline("x")
	require.ErrorIs(t, err, bench.ErrNoResult)

	_, err = s.Run("x")
	require.NoError(t, err)
	_, err = s.CompareWithBaseline("x")
	require.ErrorIs(t, err, bench.ErrNoBaseline)

	require.ErrorIs(t, s.SetBaseline("ghost"), bench.ErrNoResult)
}

func TestSetBaselineAllAndCompareAll(t *testing.T) {
	s := bench.NewSuite(nil)
	require.NoError(t, s.Register("a", sleepOp(0), 3))
	require.NoError(t, s.Register("b", sleepOp(0), 3))

	_, err := s.RunAll()
	require.NoError(t, err)
	s.SetBaselineAll()

	comparisons, err := s.CompareAll()
	require.NoError(t, err)
	require.Len(t, comparisons, 2)
	require.Equal(t, "a", comparisons[0].Name)
	require.Equal(t, "b", comparisons[1].Name)
}

func TestRerunIsRepeatable(t *testing.T) {
	s := bench.NewSuite(nil)
	require.NoError(t, s.Register("x", sleepOp(0), 3))

	first, err := s.Run("x")
	require.NoError(t, err)
	second, err := s.Run("x")
	require.NoError(t, err)

	// A benchmark may be re-run at any time; the newest record wins.
	require.NoError(t, s.SetBaseline("x"))
	cmp, err := s.CompareWithBaseline("x")
	require.NoError(t, err)
	require.Equal(t, second.Mean, cmp.CurrentMean)
	_ = first
}
