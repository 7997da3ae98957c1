// Package bench is a deterministic, non-concurrent micro-benchmark facility
// with baseline capture and regression comparison. It is independent of the
// load engine: no state is shared beyond living in the same process.
package bench

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotRegistered = errors.New("benchmark not registered")
	ErrNoResult      = errors.New("benchmark has no current result")
	ErrNoBaseline    = errors.New("benchmark has no baseline")
)

// Operation is a zero-argument operation to be timed.
type Operation func() error

// Record holds the per-iteration timing statistics of one benchmark run.
// When every iteration failed, Failed is set and the statistics are zero.
type Record struct {
	Name       string    `json:"name"`
	Iterations int       `json:"iterations"`
	Failures   int       `json:"failures"`
	Failed     bool      `json:"failed"`
	Errors     []string  `json:"errors,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	Mean   time.Duration `json:"mean"`
	Median time.Duration `json:"median"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	StdDev time.Duration `json:"std_dev"`

	// Throughput is 1/mean, in operations per second.
	Throughput float64 `json:"throughput"`
}

// Report is the combined outcome of RunAll.
type Report struct {
	Records   []*Record `json:"records"`
	Succeeded int       `json:"succeeded"`
	Total     int       `json:"total"`
}

// Comparison is the result of comparing a current record with its baseline.
type Comparison struct {
	Name            string        `json:"name"`
	BaselineMean    time.Duration `json:"baseline_mean"`
	CurrentMean     time.Duration `json:"current_mean"`
	ImprovementPct  float64       `json:"improvement_percent"`
	ThroughputDelta float64       `json:"throughput_delta"`
	Verdict         string        `json:"verdict"` // "improved" or "degraded"
}

type benchmark struct {
	op         Operation
	iterations int
}

// Suite owns the benchmark, result and baseline registries. All state is
// per-instance; suites in different tests cannot contaminate each other.
type Suite struct {
	mu         sync.Mutex
	order      []string
	benchmarks map[string]*benchmark
	results    map[string]*Record
	baselines  map[string]*Record
	logger     *zap.Logger
}

func NewSuite(logger *zap.Logger) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		benchmarks: make(map[string]*benchmark),
		results:    make(map[string]*Record),
		baselines:  make(map[string]*Record),
		logger:     logger,
	}
}

// Register stores an operation under name without running it. Registering an
// existing name replaces the operation but keeps its original run order.
func (s *Suite) Register(name string, op Operation, iterations int) error {
	if name == "" {
		return errors.New("benchmark name is required")
	}
	if op == nil {
		return errors.New("benchmark operation is required")
	}
	if iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", iterations)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.benchmarks[name]; !ok {
		s.order = append(s.order, name)
	}
	s.benchmarks[name] = &benchmark{op: op, iterations: iterations}
	return nil
}

// Run executes the named benchmark sequentially and stores its record as the
// current result. Per-iteration failures are counted without aborting the
// loop; statistics cover the successful timings only.
func (s *Suite) Run(name string) (*Record, error) {
	s.mu.Lock()
	b, ok := s.benchmarks[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}

	rec := &Record{
		Name:       name,
		Iterations: b.iterations,
		Timestamp:  time.Now(),
	}

	timings := make([]time.Duration, 0, b.iterations)
	for i := 0; i < b.iterations; i++ {
		start := time.Now()
		err := b.op()
		elapsed := time.Since(start)
		if err != nil {
			rec.Failures++
			rec.Errors = append(rec.Errors, err.Error())
			continue
		}
		timings = append(timings, elapsed)
	}

	if len(timings) == 0 {
		rec.Failed = true
		s.logger.Warn("benchmark failed every iteration",
			zap.String("name", name),
			zap.Int("iterations", b.iterations),
		)
	} else {
		rec.Mean = Mean(timings)
		rec.Median = Median(timings)
		rec.Min, rec.Max = MinMax(timings)
		rec.StdDev = StdDev(timings)
		if rec.Mean > 0 {
			rec.Throughput = 1 / rec.Mean.Seconds()
		}
	}

	s.mu.Lock()
	s.results[name] = rec
	s.mu.Unlock()
	return rec, nil
}

// RunAll runs every registered benchmark in registration order. A failed
// benchmark does not stop the remaining ones.
func (s *Suite) RunAll() (*Report, error) {
	s.mu.Lock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	s.mu.Unlock()

	report := &Report{Total: len(names)}
	for _, name := range names {
		rec, err := s.Run(name)
		if err != nil {
			return nil, err
		}
		report.Records = append(report.Records, rec)
		if !rec.Failed {
			report.Succeeded++
		}
	}
	return report, nil
}

// SetBaseline copies the named benchmark's current result into the baseline
// store for later regression comparison.
func (s *Suite) SetBaseline(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.results[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoResult, name)
	}
	if rec.Failed {
		return fmt.Errorf("cannot baseline failed benchmark %q", name)
	}
	s.baselines[name] = copyRecord(rec)
	return nil
}

// SetBaselineAll baselines every currently-held successful result.
func (s *Suite) SetBaselineAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, rec := range s.results {
		if rec.Failed {
			continue
		}
		s.baselines[name] = copyRecord(rec)
	}
}

// CompareWithBaseline computes the regression delta between the current
// result and the stored baseline. Missing data is an error, not a silent zero.
func (s *Suite) CompareWithBaseline(name string) (*Comparison, error) {
	s.mu.Lock()
	cur, okCur := s.results[name]
	base, okBase := s.baselines[name]
	s.mu.Unlock()

	if !okCur {
		return nil, fmt.Errorf("%w: %q", ErrNoResult, name)
	}
	if !okBase {
		return nil, fmt.Errorf("%w: %q", ErrNoBaseline, name)
	}
	if cur.Failed {
		return nil, fmt.Errorf("current result for %q failed; nothing to compare", name)
	}

	cmp := &Comparison{
		Name:            name,
		BaselineMean:    base.Mean,
		CurrentMean:     cur.Mean,
		ThroughputDelta: cur.Throughput - base.Throughput,
	}
	if base.Mean > 0 {
		cmp.ImprovementPct = (base.Mean.Seconds() - cur.Mean.Seconds()) / base.Mean.Seconds() * 100
	}
	if cmp.ImprovementPct > 0 {
		cmp.Verdict = "improved"
	} else {
		cmp.Verdict = "degraded"
	}
	return cmp, nil
}

// CompareAll compares every benchmark present in both stores, in registration
// order.
func (s *Suite) CompareAll() ([]*Comparison, error) {
	s.mu.Lock()
	names := make([]string, 0, len(s.order))
	for _, name := range s.order {
		_, okCur := s.results[name]
		_, okBase := s.baselines[name]
		if okCur && okBase {
			names = append(names, name)
		}
	}
	s.mu.Unlock()

	comparisons := make([]*Comparison, 0, len(names))
	for _, name := range names {
		cmp, err := s.CompareWithBaseline(name)
		if err != nil {
			return nil, err
		}
		comparisons = append(comparisons, cmp)
	}
	return comparisons, nil
}

func copyRecord(rec *Record) *Record {
	dup := *rec
	dup.Errors = append([]string(nil), rec.Errors...)
	return &dup
}
