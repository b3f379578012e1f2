package model

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ModelKind selects the queueing model to evaluate.
type ModelKind string

const (
	ModelMM1 ModelKind = "mm1"
	ModelMMC ModelKind = "mmc"
)

var ErrUnknownModel = errors.New("unknown model")

// ParseModelKind accepts the short names ("mm1", "mmc") and the Kendall
// notation ("M/M/1", "M/M/c"), case-insensitively.
func ParseModelKind(s string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mm1", "m/m/1":
		return ModelMM1, nil
	case "mmc", "m/m/c":
		return ModelMMC, nil
	default:
		return "", errors.Wrapf(ErrUnknownModel, "%q", s)
	}
}

// Metrics is the steady-state result of a stable queue.
// M/M/1 results leave C, R, P0 and Pw nil; M/M/c results set all of them.
type Metrics struct {
	Model  string   `json:"model" yaml:"model"`
	Lambda float64  `json:"lambda" yaml:"lambda"`
	Mu     float64  `json:"mu" yaml:"mu"`
	C      *int     `json:"c,omitempty" yaml:"c,omitempty"`
	R      *float64 `json:"r,omitempty" yaml:"r,omitempty"`
	Rho    float64  `json:"rho" yaml:"rho"`
	P0     *float64 `json:"p0,omitempty" yaml:"p0,omitempty"`
	Pw     *float64 `json:"Pw,omitempty" yaml:"Pw,omitempty"`
	Lq     float64  `json:"Lq" yaml:"Lq"`
	L      float64  `json:"L" yaml:"L"`
	Wq     float64  `json:"Wq" yaml:"Wq"`
	W      float64  `json:"W" yaml:"W"`
}

// Finite reports whether every numeric field is a finite float.
// Large server counts overflow the factorial terms and break this.
func (m *Metrics) Finite() bool {
	values := []float64{m.Lambda, m.Mu, m.Rho, m.Lq, m.L, m.Wq, m.W}
	for _, p := range []*float64{m.R, m.P0, m.Pw} {
		if p != nil {
			values = append(values, *p)
		}
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
