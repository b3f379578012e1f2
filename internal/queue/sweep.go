package queue

import (
	"iter"
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/Heidric/queueing/internal/model"
)

// MinLambda is the first sampled arrival rate; λ = 0 itself is never evaluated.
const MinLambda = 1e-6

func checkSweep(metric Metric, kind model.ModelKind, mu float64, c int, lambdaMax float64, count int) error {
	if kind != model.ModelMM1 && kind != model.ModelMMC {
		return errors.Wrapf(model.ErrUnknownModel, "%q", string(kind))
	}
	if !metric.AvailableFor(kind) {
		return errors.Wrapf(ErrMetricUnavailable, "%s on %s", metric, kind)
	}
	switch {
	case math.IsNaN(mu) || math.IsInf(mu, 0) || mu <= 0:
		return errors.Wrapf(ErrInvalidSweep, "mu must be > 0, got %v", mu)
	case kind == model.ModelMMC && c < 1:
		return errors.Wrapf(ErrInvalidSweep, "c must be >= 1, got %d", c)
	case math.IsNaN(lambdaMax) || math.IsInf(lambdaMax, 0) || lambdaMax <= MinLambda:
		return errors.Wrapf(ErrInvalidSweep, "lambda max must be > %g, the first sampled arrival rate, got %v", MinLambda, lambdaMax)
	case count < 2:
		return errors.Wrapf(ErrInvalidSweep, "points must be >= 2, got %d", count)
	}
	return nil
}

// Points returns a lazy sequence of count samples of metric with λ spaced
// evenly from MinLambda to lambdaMax inclusive. Arguments are validated before
// the sequence is returned; the sequence itself is pure and can be ranged over
// any number of times.
func Points(metric Metric, kind model.ModelKind, mu float64, c int, lambdaMax float64, count int) (iter.Seq[model.SweepPoint], error) {
	if err := checkSweep(metric, kind, mu, c, lambdaMax, count); err != nil {
		return nil, err
	}

	span := lambdaMax - MinLambda

	return func(yield func(model.SweepPoint) bool) {
		for i := 0; i < count; i++ {
			lambda := MinLambda + span*float64(i)/float64(count-1)
			if i == count-1 {
				// pin the end of the range; rounding must not pull it back under ρ = 1
				lambda = lambdaMax
			}

			p := model.SweepPoint{Lambda: lambda}
			if res, err := Evaluate(kind, lambda, mu, c); err == nil {
				if v, err := metric.Value(res); err == nil {
					p.Value = &v
				}
			}

			if !yield(p) {
				return
			}
		}
	}, nil
}

// SampleMetric is the eager form of Points.
func SampleMetric(metric Metric, kind model.ModelKind, mu float64, c int, lambdaMax float64, count int) ([]model.SweepPoint, error) {
	seq, err := Points(metric, kind, mu, c, lambdaMax, count)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}
