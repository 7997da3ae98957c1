package runner

import (
	"context"
	"math/rand"
	"time"

	"surge/internal/stats"
)

// Failure is one recorded target-operation error.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// UserSnapshot is the immutable outcome of one virtual user, handed to the
// aggregator after the worker has fully returned. RequestCount counts every
// attempt; ErrorCount the failed subset.
type UserSnapshot struct {
	UserID        int             `json:"user_id"`
	RequestCount  int             `json:"request_count"`
	ErrorCount    int             `json:"error_count"`
	ResponseTimes []time.Duration `json:"response_times"`
	Failures      []Failure       `json:"failures"`
	Elapsed       time.Duration   `json:"elapsed"`
}

// virtualUser simulates one concurrent caller. All of its counters are
// single-writer: only the owning worker goroutine touches them.
type virtualUser struct {
	id   int
	sc   *Scenario
	live *stats.Stats
}

// run loops until the shared cancellation signal fires or the per-user request
// quota is exhausted. A failing call never aborts the loop; it is recorded and
// the loop continues.
func (u *virtualUser) run(ctx context.Context) UserSnapshot {
	snap := UserSnapshot{UserID: u.id}
	started := time.Now()

	for ctx.Err() == nil {
		if u.sc.RequestsPerUser > 0 && snap.RequestCount >= u.sc.RequestsPerUser {
			break
		}

		var payload any
		if u.sc.Payload != nil {
			payload = u.sc.Payload()
		}

		callStart := time.Now()
		err := u.sc.Target(ctx, payload)
		latency := time.Since(callStart)

		snap.RequestCount++
		if err != nil {
			snap.ErrorCount++
			snap.Failures = append(snap.Failures, Failure{Kind: ErrorKind(err), Message: err.Error()})
		} else {
			snap.ResponseTimes = append(snap.ResponseTimes, latency)
		}
		if u.live != nil {
			u.live.AddRequest(err == nil, latency.Microseconds())
		}

		u.think(ctx)
	}

	snap.Elapsed = time.Since(started)
	return snap
}

// think sleeps a uniformly random duration from the scenario's think-time
// range. The sleep is interruptible so a user never overruns the test window
// by more than one think-time increment.
func (u *virtualUser) think(ctx context.Context) {
	d := u.sc.ThinkTime.Min
	if span := u.sc.ThinkTime.Max - u.sc.ThinkTime.Min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span) + 1))
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
