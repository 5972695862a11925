package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewton(t *testing.T) {
	// Scalar Newton on x^2 - 2 = 0 converges quadratically from x = 2.
	nw := NewNewton()
	nw.RelaxThreshold = math.Inf(1) // undamped
	x := 2.
	res, err := nw.Run(func(it int) (errNorm float64, err error) {
		dx := -(x*x - 2) / (2 * x)
		x += dx
		return math.Abs(dx), nil
	})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Less(t, res.Iterations, 10)
	assert.InDelta(t, math.Sqrt2, x, 1.e-12)
}

func TestNewtonRelax(t *testing.T) {
	nw := NewNewton()
	assert.Equal(t, nw.RelaxFactor, nw.Relax(0.5))
	assert.Equal(t, 1., nw.Relax(1.e-3))
}

func TestNewtonNoConvergence(t *testing.T) {
	nw := NewNewton()
	nw.MaxIter = 5
	res, err := nw.Run(func(it int) (float64, error) {
		return 1, nil // never improves
	})
	assert.ErrorIs(t, err, ErrNoConvergence)
	assert.False(t, res.Converged)
	assert.Equal(t, 5, res.Iterations)
	assert.Equal(t, 1., res.FinalError)
}

func TestNewtonStepError(t *testing.T) {
	nw := NewNewton()
	fault := errors.New("bad step")
	res, err := nw.Run(func(it int) (float64, error) {
		return 0, fault
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, fault)
	assert.NotErrorIs(t, err, ErrNoConvergence)
}
