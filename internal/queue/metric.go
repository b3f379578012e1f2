package queue

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Heidric/queueing/internal/model"
)

// Metric names one numeric field of model.Metrics.
type Metric int

const (
	MetricLambda Metric = iota
	MetricMu
	MetricServers
	MetricR
	MetricRho
	MetricP0
	MetricPw
	MetricLq
	MetricL
	MetricWq
	MetricW
)

var metricNames = [...]string{
	MetricLambda:  "lambda",
	MetricMu:      "mu",
	MetricServers: "c",
	MetricR:       "r",
	MetricRho:     "rho",
	MetricP0:      "p0",
	MetricPw:      "Pw",
	MetricLq:      "Lq",
	MetricL:       "L",
	MetricWq:      "Wq",
	MetricW:       "W",
}

type accessor func(m *model.Metrics) (float64, bool)

func present(v float64) (float64, bool) { return v, true }

func optional(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

var accessors = [...]accessor{
	MetricLambda: func(m *model.Metrics) (float64, bool) { return present(m.Lambda) },
	MetricMu:     func(m *model.Metrics) (float64, bool) { return present(m.Mu) },
	MetricServers: func(m *model.Metrics) (float64, bool) {
		if m.C == nil {
			return 0, false
		}
		return float64(*m.C), true
	},
	MetricR:   func(m *model.Metrics) (float64, bool) { return optional(m.R) },
	MetricRho: func(m *model.Metrics) (float64, bool) { return present(m.Rho) },
	MetricP0:  func(m *model.Metrics) (float64, bool) { return optional(m.P0) },
	MetricPw:  func(m *model.Metrics) (float64, bool) { return optional(m.Pw) },
	MetricLq:  func(m *model.Metrics) (float64, bool) { return present(m.Lq) },
	MetricL:   func(m *model.Metrics) (float64, bool) { return present(m.L) },
	MetricWq:  func(m *model.Metrics) (float64, bool) { return present(m.Wq) },
	MetricW:   func(m *model.Metrics) (float64, bool) { return present(m.W) },
}

// Metrics lists every selectable metric in record order.
func Metrics() []Metric {
	all := make([]Metric, len(metricNames))
	for i := range metricNames {
		all[i] = Metric(i)
	}
	return all
}

// ParseMetric resolves a field name as it appears in the result record
// ("Lq", "rho", "Pw"). An exact match wins; otherwise the name is matched
// case-insensitively.
func ParseMetric(name string) (Metric, error) {
	for i, n := range metricNames {
		if n == name {
			return Metric(i), nil
		}
	}
	for i, n := range metricNames {
		if strings.EqualFold(n, name) {
			return Metric(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownMetric, "%q", name)
}

func (m Metric) String() string {
	if m < 0 || int(m) >= len(metricNames) {
		return "unknown"
	}
	return metricNames[m]
}

// AvailableFor reports whether results of kind carry this metric.
func (m Metric) AvailableFor(kind model.ModelKind) bool {
	switch m {
	case MetricServers, MetricR, MetricP0, MetricPw:
		return kind == model.ModelMMC
	default:
		return m >= 0 && int(m) < len(metricNames)
	}
}

// Value reads the metric from res, failing when res does not carry it.
func (m Metric) Value(res model.Metrics) (float64, error) {
	if m < 0 || int(m) >= len(accessors) {
		return 0, errors.Wrapf(ErrUnknownMetric, "%d", int(m))
	}
	v, ok := accessors[m](&res)
	if !ok {
		return 0, errors.Wrapf(ErrMetricUnavailable, "%s on %s", m, res.Model)
	}
	return v, nil
}
