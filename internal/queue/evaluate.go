package queue

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/Heidric/queueing/internal/model"
)

// Factorial returns n! as a float64: 1 for n = 0, NaN for negative n and
// +Inf once the product leaves the float64 range (n > 170).
func Factorial(n int) float64 {
	if n < 0 {
		return math.NaN()
	}
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// checkRates rejects inputs whose formulas would divide by zero or carry
// NaN/Inf from the start.
func checkRates(lambda, mu float64) error {
	switch {
	case math.IsNaN(mu) || math.IsInf(mu, 0):
		return degenerate("mu must be a finite number")
	case mu <= 0:
		return degenerate("mu must be > 0")
	case math.IsNaN(lambda) || math.IsInf(lambda, 0):
		return degenerate("lambda must be a finite number")
	case lambda < 0:
		return degenerate("lambda must be >= 0")
	case lambda == 0:
		return degenerate("lambda must be > 0 (Wq = Lq/λ is undefined at λ = 0)")
	}
	return nil
}

// EvaluateSingleServer solves the M/M/1 queue. ρ = 1 is unstable.
func EvaluateSingleServer(lambda, mu float64) (model.Metrics, error) {
	if err := checkRates(lambda, mu); err != nil {
		return model.Metrics{}, err
	}

	rho := lambda / mu
	if rho >= 1 {
		return model.Metrics{}, ErrUnstable
	}

	lq := rho * rho / (1 - rho)

	return model.Metrics{
		Model:  "M/M/1",
		Lambda: lambda,
		Mu:     mu,
		Rho:    rho,
		Lq:     lq,
		L:      rho / (1 - rho),
		Wq:     lq / lambda,
		W:      1 / (mu - lambda),
	}, nil
}

// EvaluateMultiServer solves the M/M/c queue with the Erlang-C formula.
func EvaluateMultiServer(lambda, mu float64, c int) (model.Metrics, error) {
	if c < 1 {
		return model.Metrics{}, ErrInvalidServerCount
	}
	if err := checkRates(lambda, mu); err != nil {
		return model.Metrics{}, err
	}

	r := lambda / mu
	rho := r / float64(c)
	if rho >= 1 {
		return model.Metrics{}, ErrUnstable
	}

	var sum float64
	for n := 0; n < c; n++ {
		sum += math.Pow(r, float64(n)) / Factorial(n)
	}
	rc := math.Pow(r, float64(c))
	cf := Factorial(c)
	last := rc / (cf * (1 - rho))
	p0 := 1 / (sum + last)

	pw := last * p0
	lq := rc * rho / (cf * (1 - rho) * (1 - rho)) * p0
	wq := lq / lambda
	servers := c

	return model.Metrics{
		Model:  fmt.Sprintf("M/M/%d", c),
		Lambda: lambda,
		Mu:     mu,
		C:      &servers,
		R:      &r,
		Rho:    rho,
		P0:     &p0,
		Pw:     &pw,
		Lq:     lq,
		L:      lq + r,
		Wq:     wq,
		W:      wq + 1/mu,
	}, nil
}

// Evaluate dispatches to the evaluator of kind. c is ignored for M/M/1.
func Evaluate(kind model.ModelKind, lambda, mu float64, c int) (model.Metrics, error) {
	switch kind {
	case model.ModelMM1:
		return EvaluateSingleServer(lambda, mu)
	case model.ModelMMC:
		return EvaluateMultiServer(lambda, mu, c)
	default:
		return model.Metrics{}, errors.Wrapf(model.ErrUnknownModel, "%q", string(kind))
	}
}
