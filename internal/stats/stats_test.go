package stats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"surge/internal/stats"
)

func TestAddRequestCounters(t *testing.T) {
	s := stats.NewStats()

	s.AddRequest(true, 1000)
	s.AddRequest(true, 2000)
	s.AddRequest(false, 0)

	require.Equal(t, uint64(3), s.Requests)
	require.Equal(t, uint64(2), s.Success)
	require.Equal(t, uint64(1), s.Fail)
	require.Equal(t, int64(2), s.Recorded())
}

func TestErrorRate(t *testing.T) {
	s := stats.NewStats()
	require.Zero(t, s.ErrorRate())

	s.AddRequest(true, 100)
	s.AddRequest(false, 0)
	require.InDelta(t, 50.0, s.ErrorRate(), 1e-9)
}

func TestPercentilesReflectRecordedLatencies(t *testing.T) {
	s := stats.NewStats()
	for us := int64(1000); us <= 100000; us += 1000 {
		s.AddRequest(true, us)
	}

	// hdrhistogram is approximate at 3 significant figures; bound, not exact.
	require.InDelta(t, 50.0, s.P50Ms(), 2.0)
	require.InDelta(t, 95.0, s.P95Ms(), 2.0)
	require.InDelta(t, 99.0, s.P99Ms(), 2.0)
	require.Greater(t, s.MeanMs(), 0.0)
}
