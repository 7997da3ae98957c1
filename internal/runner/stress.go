package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Breaking-point thresholds: a step breaks the target when it degrades this
// far even under the loosened stress criteria.
const (
	breakingErrorRate   = 50.0
	breakingAvgResponse = 10 * time.Second
)

// StressReport is the outcome of a stress search: the full escalation curve
// plus the discovered limits. BreakingPoint is 0 when no step ever broke.
type StressReport struct {
	Steps               []*Result `json:"steps"`
	BreakingPoint       int       `json:"breaking_point"`
	MaxSustainableUsers int       `json:"max_sustainable_users"`
}

// RunStressTest locates the concurrency level at which the target operation
// degrades beyond acceptable bounds. It runs the target at stepSize,
// 2*stepSize, ... up to maxUsers, stopping at the first step that breaks.
// Each step runs to natural completion before escalation is decided.
func (e *Engine) RunStressTest(ctx context.Context, name string, target TargetFunc, maxUsers, stepSize int, stepDuration time.Duration) (*StressReport, error) {
	if maxUsers <= 0 || stepSize <= 0 {
		return nil, fmt.Errorf("%w: max users and step size must be positive", ErrInvalidScenario)
	}
	if stepDuration <= 0 {
		return nil, fmt.Errorf("%w: step duration must be positive", ErrInvalidScenario)
	}

	report := &StressReport{MaxSustainableUsers: maxUsers}

	for users := stepSize; users <= maxUsers; users += stepSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sc := &Scenario{
			Name:         fmt.Sprintf("%s_stress_%d", name, users),
			Target:       target,
			VirtualUsers: users,
			Duration:     stepDuration,
			Criteria:     StressCriteria,
		}

		res, err := e.Run(ctx, sc)
		if err != nil {
			return report, fmt.Errorf("stress step at %d users: %w", users, err)
		}
		report.Steps = append(report.Steps, res)

		e.logger.Info("stress step complete",
			zap.Int("users", users),
			zap.Float64("error_rate", res.ErrorRate),
			zap.Duration("avg_response", res.AvgResponseTime),
			zap.Bool("criteria_met", res.CriteriaMet),
		)

		if res.ErrorRate > breakingErrorRate || res.AvgResponseTime > breakingAvgResponse || !res.CriteriaMet {
			report.BreakingPoint = users
			report.MaxSustainableUsers = users - stepSize
			break
		}
	}

	return report, nil
}
