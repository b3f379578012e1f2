package model

// SweepPoint is one sample of a metric curve. A nil Value marks an unstable
// arrival rate and must be rendered as a gap, never as zero.
type SweepPoint struct {
	Lambda float64  `json:"lambda" yaml:"lambda"`
	Value  *float64 `json:"value" yaml:"value"`
}

func (p SweepPoint) Unstable() bool {
	return p.Value == nil
}
