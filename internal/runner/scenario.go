package runner

import (
	"context"
	"fmt"
	"time"
)

// TargetFunc is the operation under test. It receives the payload produced by
// the scenario's PayloadFunc (nil when none is configured) and must be safe to
// call concurrently from independent virtual users.
type TargetFunc func(ctx context.Context, payload any) error

// PayloadFunc produces one request payload per invocation.
type PayloadFunc func() any

// ThinkTime is the pause a virtual user takes between requests. Each pause is
// drawn uniformly from [Min, Max].
type ThinkTime struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// SuccessCriteria are the thresholds a run's aggregated result is checked
// against. Zero-valued fields are replaced by defaults at validation time.
type SuccessCriteria struct {
	MaxResponseTime time.Duration `json:"max_response_time"`
	MaxErrorRate    float64       `json:"max_error_rate"` // percent
	MinThroughput   float64       `json:"min_throughput"` // requests per second
}

// Default thresholds for a normal load test, and the deliberately looser set
// used by stress search steps.
var (
	DefaultCriteria = SuccessCriteria{
		MaxResponseTime: 2 * time.Second,
		MaxErrorRate:    5,
		MinThroughput:   1,
	}
	StressCriteria = SuccessCriteria{
		MaxResponseTime: 5 * time.Second,
		MaxErrorRate:    20,
		MinThroughput:   0.1,
	}
)

// Scenario is the immutable description of one load test.
type Scenario struct {
	Name            string        `json:"name"`
	Target          TargetFunc    `json:"-"`
	VirtualUsers    int           `json:"virtual_users"`
	Duration        time.Duration `json:"duration"`
	RequestsPerUser int           `json:"requests_per_user"` // 0 = unbounded for the duration
	RampUp          time.Duration `json:"ramp_up"`           // 0 = start all users at once
	ThinkTime       ThinkTime     `json:"think_time"`
	Payload         PayloadFunc   `json:"-"`

	Criteria SuccessCriteria `json:"criteria"`
}

// Validate checks the static configuration and fills in criteria defaults.
// It must be called (directly or via Engine.Run) before the scenario is used.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: scenario name is required", ErrInvalidScenario)
	}
	if s.Target == nil {
		return fmt.Errorf("%w: target operation is required", ErrInvalidScenario)
	}
	if s.VirtualUsers <= 0 {
		return fmt.Errorf("%w: virtual users must be positive, got %d", ErrInvalidScenario, s.VirtualUsers)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidScenario, s.Duration)
	}
	if s.RequestsPerUser < 0 {
		return fmt.Errorf("%w: requests per user cannot be negative", ErrInvalidScenario)
	}
	if s.RampUp < 0 {
		return fmt.Errorf("%w: ramp-up cannot be negative", ErrInvalidScenario)
	}
	if s.ThinkTime.Min < 0 || s.ThinkTime.Max < s.ThinkTime.Min {
		return fmt.Errorf("%w: think time range (%s, %s) is invalid", ErrInvalidScenario, s.ThinkTime.Min, s.ThinkTime.Max)
	}
	s.Criteria = s.Criteria.withDefaults()
	return nil
}

func (c SuccessCriteria) withDefaults() SuccessCriteria {
	if c.MaxResponseTime == 0 {
		c.MaxResponseTime = DefaultCriteria.MaxResponseTime
	}
	if c.MaxErrorRate == 0 {
		c.MaxErrorRate = DefaultCriteria.MaxErrorRate
	}
	if c.MinThroughput == 0 {
		c.MinThroughput = DefaultCriteria.MinThroughput
	}
	return c
}
