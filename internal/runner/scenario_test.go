package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noopTarget(ctx context.Context, payload any) error { return nil }

func TestScenarioValidate(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:         "ok",
			Target:       noopTarget,
			VirtualUsers: 1,
			Duration:     time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(*Scenario){
		"missing name":        func(s *Scenario) { s.Name = "" },
		"missing target":      func(s *Scenario) { s.Target = nil },
		"zero users":          func(s *Scenario) { s.VirtualUsers = 0 },
		"negative users":      func(s *Scenario) { s.VirtualUsers = -3 },
		"zero duration":       func(s *Scenario) { s.Duration = 0 },
		"negative duration":   func(s *Scenario) { s.Duration = -time.Second },
		"negative cap":        func(s *Scenario) { s.RequestsPerUser = -1 },
		"negative ramp":       func(s *Scenario) { s.RampUp = -time.Second },
		"inverted think time": func(s *Scenario) { s.ThinkTime = ThinkTime{Min: time.Second, Max: time.Millisecond} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			sc := valid()
			mutate(sc)
			err := sc.Validate()
			require.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestScenarioCriteriaDefaults(t *testing.T) {
	sc := &Scenario{Name: "defaults", Target: noopTarget, VirtualUsers: 1, Duration: time.Second}
	require.NoError(t, sc.Validate())
	require.Equal(t, DefaultCriteria, sc.Criteria)
}

func TestScenarioCriteriaPartialDefaults(t *testing.T) {
	sc := &Scenario{
		Name:         "partial",
		Target:       noopTarget,
		VirtualUsers: 1,
		Duration:     time.Second,
		Criteria:     SuccessCriteria{MaxErrorRate: 50},
	}
	require.NoError(t, sc.Validate())
	require.Equal(t, 50.0, sc.Criteria.MaxErrorRate)
	require.Equal(t, DefaultCriteria.MaxResponseTime, sc.Criteria.MaxResponseTime)
	require.Equal(t, DefaultCriteria.MinThroughput, sc.Criteria.MinThroughput)
}

func TestErrorKind(t *testing.T) {
	require.Equal(t, "Timeout", ErrorKind(NewOpError("Timeout", context.DeadlineExceeded)))
	require.Equal(t, KindUnknown, ErrorKind(context.Canceled))
	require.Equal(t, KindUnknown, ErrorKind(&OpError{}))
}
