package model

import "time"

// EvaluationRequest is the input of a single model evaluation.
// C is ignored for the M/M/1 model.
type EvaluationRequest struct {
	Model  ModelKind `json:"model" yaml:"model"`
	Lambda float64   `json:"lambda" yaml:"lambda"`
	Mu     float64   `json:"mu" yaml:"mu"`
	C      int       `json:"c,omitempty" yaml:"c,omitempty"`
}

// SweepRequest asks for Points samples of Metric over λ in (0, LambdaMax].
type SweepRequest struct {
	Metric    string    `json:"metric" yaml:"metric"`
	Model     ModelKind `json:"model" yaml:"model"`
	Mu        float64   `json:"mu" yaml:"mu"`
	C         int       `json:"c,omitempty" yaml:"c,omitempty"`
	LambdaMax float64   `json:"lambdaMax" yaml:"lambdaMax"`
	Points    int       `json:"points" yaml:"points"`
}

// Sources of an evaluation.
const (
	SourceAPI   = "api"
	SourceAgent = "agent"
	SourceCLI   = "cli"
)

// Evaluation is a history record: the request and exactly one of
// Metrics or Error.
type Evaluation struct {
	ID        int64             `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Source    string            `json:"source"`
	Request   EvaluationRequest `json:"request"`
	Metrics   *Metrics          `json:"metrics,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorKind string            `json:"errorKind,omitempty"`
}

// Failed reports whether the evaluation produced an error instead of metrics.
func (e *Evaluation) Failed() bool {
	return e.Metrics == nil
}
