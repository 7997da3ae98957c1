package bench_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"surge/internal/bench"
)

func TestMean(t *testing.T) {
	require.Zero(t, bench.Mean(nil))
	require.Equal(t, 2*time.Second, bench.Mean([]time.Duration{time.Second, 2 * time.Second, 3 * time.Second}))
}

func TestMedian(t *testing.T) {
	require.Zero(t, bench.Median(nil))
	require.Equal(t, 2*time.Second,
		bench.Median([]time.Duration{3 * time.Second, time.Second, 2 * time.Second}))
	require.Equal(t, 2500*time.Millisecond,
		bench.Median([]time.Duration{4 * time.Second, time.Second, 3 * time.Second, 2 * time.Second}))
}

func TestStdDev(t *testing.T) {
	require.Zero(t, bench.StdDev(nil))
	require.Zero(t, bench.StdDev([]time.Duration{time.Second}))
	// Sample stddev of {1s, 2s, 3s} is exactly 1s.
	require.Equal(t, time.Second,
		bench.StdDev([]time.Duration{time.Second, 2 * time.Second, 3 * time.Second}))
}

func TestMinMax(t *testing.T) {
	lo, hi := bench.MinMax([]time.Duration{5 * time.Second, time.Second, 3 * time.Second})
	require.Equal(t, time.Second, lo)
	require.Equal(t, 5*time.Second, hi)

	lo, hi = bench.MinMax(nil)
	require.Zero(t, lo)
	require.Zero(t, hi)
}
