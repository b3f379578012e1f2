package queue

import (
	"github.com/pkg/errors"
)

// Kind classifies a model failure.
type Kind int

const (
	KindUnstable Kind = iota + 1
	KindInvalidServerCount
	KindDegenerateInput
)

func (k Kind) String() string {
	switch k {
	case KindUnstable:
		return "unstable"
	case KindInvalidServerCount:
		return "invalid_server_count"
	case KindDegenerateInput:
		return "degenerate_input"
	default:
		return "unknown"
	}
}

// ModelError is the error variant of an evaluation.
type ModelError struct {
	Kind    Kind
	Message string
}

func (e *ModelError) Error() string {
	return e.Message
}

// Is matches any *ModelError of the same Kind, so errors.Is(err, ErrDegenerateInput)
// holds for every degenerate-input message.
func (e *ModelError) Is(target error) bool {
	t, ok := target.(*ModelError)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnstable           = &ModelError{Kind: KindUnstable, Message: "System unstable (ρ >= 1)"}
	ErrInvalidServerCount = &ModelError{Kind: KindInvalidServerCount, Message: "c must be >= 1"}
	ErrDegenerateInput    = &ModelError{Kind: KindDegenerateInput, Message: "degenerate input"}
)

// Argument errors of the metric selector and the sweep sampler.
var (
	ErrUnknownMetric     = errors.New("unknown metric")
	ErrMetricUnavailable = errors.New("metric not available for model")
	ErrInvalidSweep      = errors.New("invalid sweep arguments")
)

func degenerate(msg string) *ModelError {
	return &ModelError{Kind: KindDegenerateInput, Message: msg}
}
