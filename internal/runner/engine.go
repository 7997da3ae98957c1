package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"surge/internal/stats"
	"surge/internal/sysmon"
)

// StatsSnapshot is sent over the Updates channel while a run is active.
type StatsSnapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64

	// Pre-calculated percentiles for display (cheap copy)
	P50Ms float64
	P95Ms float64
	P99Ms float64
	MaxMs float64

	ErrorRate float64
}

// StatsUpdateChan is the channel type for live updates.
type StatsUpdateChan chan StatsSnapshot

const (
	DefaultMaxWorkers     = 1024
	DefaultSampleInterval = time.Second

	tickInterval = 200 * time.Millisecond
)

// EngineConfig configures one Engine instance.
type EngineConfig struct {
	// MaxWorkers bounds how many virtual users execute concurrently,
	// regardless of how many a scenario requests.
	MaxWorkers int

	// SampleInterval is the resource sampler polling cadence.
	SampleInterval time.Duration

	// Sampler, when set, is polled while a run is active and its samples are
	// attached to the Result.
	Sampler sysmon.Sampler

	Logger *zap.Logger

	// Updates, when set, receives live stats snapshots during runs.
	// Sends are non-blocking; slow consumers just miss updates.
	Updates StatsUpdateChan
}

// Engine runs load test scenarios. All registries are per-instance state so
// multiple engines can coexist without cross-contamination.
type Engine struct {
	cfg    EngineConfig
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		active: make(map[string]struct{}),
	}
}

// Active returns the names of scenarios currently running on this engine.
func (e *Engine) Active() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.active))
	for name := range e.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsActive reports whether a scenario with the given name is running.
func (e *Engine) IsActive(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[name]
	return ok
}

// Run executes one scenario to completion and returns its aggregated result.
// The scenario's duration, enforced through the run context, is the single
// source of truth for "test is over"; workers never decide that themselves.
func (e *Engine) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if err := e.acquire(sc.Name); err != nil {
		return nil, err
	}
	defer e.release(sc.Name)

	runCtx, cancel := context.WithTimeout(ctx, sc.Duration)
	defer cancel()

	live := stats.NewStats()
	e.startTickLoop(runCtx, live)
	sampleCh := e.startSampler(runCtx)

	e.logger.Info("starting load test",
		zap.String("scenario", sc.Name),
		zap.Int("virtual_users", sc.VirtualUsers),
		zap.Duration("duration", sc.Duration),
		zap.Duration("ramp_up", sc.RampUp),
	)

	start := time.Now()

	poolSize := min(e.cfg.MaxWorkers, sc.VirtualUsers)
	jobs := make(chan int, sc.VirtualUsers)
	snapCh := make(chan UserSnapshot, sc.VirtualUsers)

	var wg sync.WaitGroup
	for w := 0; w < poolSize; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				e.runUser(runCtx, sc, id, live, snapCh)
			}
		}()
	}

	// Submission loop. With ramp-up, users are handed to the pool one at a
	// time with a fixed delay; if the run ends mid-ramp, no further users are
	// started.
	var rampDelay time.Duration
	if sc.RampUp > 0 {
		rampDelay = sc.RampUp / time.Duration(sc.VirtualUsers)
	}
submit:
	for i := 0; i < sc.VirtualUsers; i++ {
		if i > 0 && rampDelay > 0 {
			t := time.NewTimer(rampDelay)
			select {
			case <-runCtx.Done():
				t.Stop()
				break submit
			case <-t.C:
			}
		}
		select {
		case <-runCtx.Done():
			break submit
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	end := time.Now()
	close(snapCh)

	snaps := make([]UserSnapshot, 0, sc.VirtualUsers)
	for s := range snapCh {
		snaps = append(snaps, s)
	}

	// Stop the sampler before reading its buffer.
	cancel()
	var samples []sysmon.Sample
	if sampleCh != nil {
		samples = <-sampleCh
	}

	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q", ErrNoWorkerResults, sc.Name)
	}

	res := aggregate(sc, snaps, start, end)
	res.ID = uuid.New().String()
	res.ResourceSamples = samples

	e.logger.Info("load test finished",
		zap.String("scenario", sc.Name),
		zap.Int("total_requests", res.TotalRequests),
		zap.Float64("error_rate", res.ErrorRate),
		zap.Float64("throughput", res.Throughput),
		zap.Bool("criteria_met", res.CriteriaMet),
	)
	return res, nil
}

// runUser executes one virtual user and delivers its snapshot. A panic inside
// the worker is a worker-task error: it is logged and that user's snapshot is
// excluded, but the run continues.
func (e *Engine) runUser(ctx context.Context, sc *Scenario, id int, live *stats.Stats, out chan<- UserSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("virtual user crashed",
				zap.String("scenario", sc.Name),
				zap.Int("user_id", id),
				zap.Any("panic", r),
			)
		}
	}()
	u := &virtualUser{id: id, sc: sc, live: live}
	out <- u.run(ctx)
}

func (e *Engine) acquire(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.active[name]; ok {
		return fmt.Errorf("%w: %q", ErrScenarioActive, name)
	}
	e.active[name] = struct{}{}
	return nil
}

func (e *Engine) release(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, name)
}

// startTickLoop pushes live stats snapshots until the run context ends.
func (e *Engine) startTickLoop(ctx context.Context, live *stats.Stats) {
	if e.cfg.Updates == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.sendUpdate(live)
			}
		}
	}()
}

func (e *Engine) sendUpdate(live *stats.Stats) {
	s := StatsSnapshot{
		Requests:  atomic.LoadUint64(&live.Requests),
		Success:   atomic.LoadUint64(&live.Success),
		Fail:      atomic.LoadUint64(&live.Fail),
		P50Ms:     live.P50Ms(),
		P95Ms:     live.P95Ms(),
		P99Ms:     live.P99Ms(),
		MaxMs:     live.MaxMs(),
		ErrorRate: live.ErrorRate(),
	}

	// Non-blocking send; drop the update if the channel is full.
	select {
	case e.cfg.Updates <- s:
	default:
	}
}

// startSampler polls the configured sampler until the run context ends, then
// delivers the collected buffer. The buffer is read only after the sampler has
// stopped, avoiding a torn read.
func (e *Engine) startSampler(ctx context.Context) <-chan []sysmon.Sample {
	if e.cfg.Sampler == nil {
		return nil
	}
	out := make(chan []sysmon.Sample, 1)
	go func() {
		var buf []sysmon.Sample
		ticker := time.NewTicker(e.cfg.SampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				out <- buf
				return
			case <-ticker.C:
				s, err := e.cfg.Sampler.Sample()
				if err != nil {
					e.logger.Warn("resource sample failed", zap.Error(err))
					continue
				}
				buf = append(buf, s)
			}
		}
	}()
	return out
}
