package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScenario is returned for configuration errors caught at
	// validation time, before any worker starts.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrScenarioActive is returned when a run is attempted under a scenario
	// name that is already running on the same engine.
	ErrScenarioActive = errors.New("scenario already running")

	// ErrNoWorkerResults is returned when every worker task crashed and no
	// snapshot survived to aggregate.
	ErrNoWorkerResults = errors.New("no worker produced a result")
)

// KindUnknown is the bucket for failures that carry no explicit kind.
const KindUnknown = "Unknown"

// OpError is a target-operation failure tagged with a caller-meaningful
// category. The aggregator groups failures by Kind; untagged errors fall into
// the Unknown bucket.
type OpError struct {
	Kind string
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Kind
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// NewOpError tags err with a category.
func NewOpError(kind string, err error) *OpError {
	return &OpError{Kind: kind, Err: err}
}

// ErrorKind extracts the category of a target-operation failure.
func ErrorKind(err error) string {
	var oe *OpError
	if errors.As(err, &oe) && oe.Kind != "" {
		return oe.Kind
	}
	return KindUnknown
}
