package solver

import (
	"errors"
	"fmt"
)

// ErrNoConvergence reports an exhausted iteration cap. It is a normal,
// recoverable outcome, distinct from a solver fault.
var ErrNoConvergence = errors.New("solver: iteration cap reached without convergence")

// Newton drives the outer nonlinear iteration. The caller's step function
// re-evaluates the residual and Jacobian at the current values, solves for
// corrections, applies them scaled by Relax, and returns the maximum
// absolute correction as the error norm.
type Newton struct {
	Tol            float64
	MaxIter        int
	RelaxThreshold float64 // full steps below this error norm
	RelaxFactor    float64 // fractional step above the threshold
	Verbose        bool
}

func NewNewton() *Newton {
	return &Newton{
		Tol:            1.e-12,
		MaxIter:        500,
		RelaxThreshold: 0.01,
		RelaxFactor:    0.2,
	}
}

// Relax returns the damping factor for a step with the given error norm.
func (nw *Newton) Relax(errNorm float64) float64 {
	if errNorm > nw.RelaxThreshold {
		return nw.RelaxFactor
	}
	return 1.
}

type NewtonResult struct {
	Iterations int
	FinalError float64
	Converged  bool
}

// Run iterates the step function until the error norm falls below Tol or
// MaxIter steps have been taken. A step error aborts immediately; cap
// exhaustion returns the partial result together with ErrNoConvergence.
func (nw *Newton) Run(step func(it int) (errNorm float64, err error)) (*NewtonResult, error) {
	res := &NewtonResult{FinalError: 1.}
	for it := 0; it < nw.MaxIter; it++ {
		errNorm, err := step(it)
		if err != nil {
			return nil, err
		}
		res.Iterations = it + 1
		res.FinalError = errNorm
		if nw.Verbose {
			fmt.Printf("iter #%d: error = %e\n", it, errNorm)
		}
		if errNorm < nw.Tol {
			res.Converged = true
			return res, nil
		}
	}
	return res, ErrNoConvergence
}
