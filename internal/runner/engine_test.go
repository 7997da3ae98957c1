package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"surge/internal/runner"
	"surge/internal/sysmon"
)

func fastTarget(ctx context.Context, payload any) error {
	time.Sleep(time.Millisecond)
	return nil
}

func failingTarget(ctx context.Context, payload any) error {
	return runner.NewOpError("Boom", errors.New("service exploded"))
}

func TestRunAlwaysSucceeds(t *testing.T) {
	eng := runner.NewEngine(runner.EngineConfig{})

	res, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "checkout",
		Target:       fastTarget,
		VirtualUsers: 5,
		Duration:     300 * time.Millisecond,
	})
	require.NoError(t, err)

	require.Equal(t, "checkout", res.ScenarioName)
	require.Equal(t, 5, res.VirtualUsers)
	require.NotEmpty(t, res.ID)
	require.Greater(t, res.TotalRequests, 0)
	require.Equal(t, res.TotalRequests, res.SuccessfulRequests)
	require.Zero(t, res.FailedRequests)
	require.Zero(t, res.ErrorRate)
	require.Greater(t, res.Throughput, 0.0)
	require.True(t, res.CriteriaMet)
}

func TestRunAlwaysFails(t *testing.T) {
	eng := runner.NewEngine(runner.EngineConfig{})

	res, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "doomed",
		Target:       failingTarget,
		VirtualUsers: 3,
		Duration:     200 * time.Millisecond,
	})
	require.NoError(t, err)

	require.InDelta(t, 100.0, res.ErrorRate, 1e-9)
	require.Zero(t, res.SuccessfulRequests)
	require.Equal(t, res.TotalRequests, res.FailedRequests)
	require.False(t, res.CriteriaMet)
	require.Equal(t, res.TotalRequests, res.ErrorsByType["Boom"])
}

func TestRunHonorsDuration(t *testing.T) {
	eng := runner.NewEngine(runner.EngineConfig{})

	start := time.Now()
	_, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "bounded",
		Target:       fastTarget,
		VirtualUsers: 4,
		Duration:     200 * time.Millisecond,
		ThinkTime:    runner.ThinkTime{Min: 20 * time.Millisecond, Max: 80 * time.Millisecond},
	})
	require.NoError(t, err)

	// Duration plus at most one think-time increment plus scheduling slack.
	require.Less(t, time.Since(start), time.Second)
}

func TestRunRequestCap(t *testing.T) {
	eng := runner.NewEngine(runner.EngineConfig{})

	start := time.Now()
	res, err := eng.Run(context.Background(), &runner.Scenario{
		Name:            "capped",
		Target:          fastTarget,
		VirtualUsers:    2,
		Duration:        5 * time.Second,
		RequestsPerUser: 3,
	})
	require.NoError(t, err)

	require.Equal(t, 6, res.TotalRequests)
	// Workers drained their quota long before the time budget.
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestRunRejectsDuplicateScenarioName(t *testing.T) {
	eng := runner.NewEngine(runner.EngineConfig{})

	blocking := func(ctx context.Context, payload any) error {
		<-ctx.Done()
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := eng.Run(context.Background(), &runner.Scenario{
			Name:         "dup",
			Target:       blocking,
			VirtualUsers: 1,
			Duration:     500 * time.Millisecond,
		})
		require.NoError(t, err)
	}()

	require.Eventually(t, func() bool { return eng.IsActive("dup") },
		time.Second, 5*time.Millisecond)

	_, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "dup",
		Target:       fastTarget,
		VirtualUsers: 1,
		Duration:     100 * time.Millisecond,
	})
	require.ErrorIs(t, err, runner.ErrScenarioActive)

	<-done
	require.False(t, eng.IsActive("dup"))
	require.Empty(t, eng.Active())
}

func TestRunInvalidScenario(t *testing.T) {
	eng := runner.NewEngine(runner.EngineConfig{})
	_, err := eng.Run(context.Background(), &runner.Scenario{Name: "bad", Target: fastTarget})
	require.ErrorIs(t, err, runner.ErrInvalidScenario)
}

func TestRunRampUpCutShortByDuration(t *testing.T) {
	eng := runner.NewEngine(runner.EngineConfig{})

	start := time.Now()
	res, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "ramp",
		Target:       fastTarget,
		VirtualUsers: 100,
		Duration:     200 * time.Millisecond,
		RampUp:       10 * time.Second,
	})
	require.NoError(t, err)

	// The ramp must stop submitting once the window elapses, not finish.
	require.Less(t, time.Since(start), 2*time.Second)
	require.Greater(t, res.TotalRequests, 0)
}

func TestRunCollectsResourceSamples(t *testing.T) {
	sampled := sysmon.SamplerFunc(func() (sysmon.Sample, error) {
		return sysmon.Sample{Timestamp: time.Now(), CPUPercent: 12.5, MemPercent: 40}, nil
	})

	eng := runner.NewEngine(runner.EngineConfig{
		Sampler:        sampled,
		SampleInterval: 20 * time.Millisecond,
	})

	res, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "sampled",
		Target:       fastTarget,
		VirtualUsers: 2,
		Duration:     250 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NotEmpty(t, res.ResourceSamples)
	require.Equal(t, 12.5, res.ResourceSamples[0].CPUPercent)
}

func TestRunPublishesLiveUpdates(t *testing.T) {
	updates := make(runner.StatsUpdateChan, 100)
	eng := runner.NewEngine(runner.EngineConfig{Updates: updates})

	_, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "live",
		Target:       fastTarget,
		VirtualUsers: 2,
		Duration:     500 * time.Millisecond,
	})
	require.NoError(t, err)

	select {
	case s := <-updates:
		require.Greater(t, s.Requests, uint64(0))
	default:
		t.Fatal("expected at least one live stats snapshot")
	}
}

func TestRunAllWorkersCrashIsFatal(t *testing.T) {
	panicking := func(ctx context.Context, payload any) error {
		panic("worker bug")
	}

	eng := runner.NewEngine(runner.EngineConfig{})
	_, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "crashy",
		Target:       panicking,
		VirtualUsers: 2,
		Duration:     200 * time.Millisecond,
	})
	require.ErrorIs(t, err, runner.ErrNoWorkerResults)
}

func TestRunSurvivesSingleWorkerCrash(t *testing.T) {
	var calls int32
	flaky := func(ctx context.Context, payload any) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("one-off bug")
		}
		time.Sleep(time.Millisecond)
		return nil
	}

	eng := runner.NewEngine(runner.EngineConfig{})
	res, err := eng.Run(context.Background(), &runner.Scenario{
		Name:         "flaky",
		Target:       flaky,
		VirtualUsers: 2,
		Duration:     200 * time.Millisecond,
	})
	require.NoError(t, err)

	// One worker crashed and was excluded; the run still produced a result.
	require.Greater(t, res.TotalRequests, 0)
	require.Zero(t, res.FailedRequests)
}
