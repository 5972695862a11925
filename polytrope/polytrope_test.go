package polytrope

import (
	"io"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrosolve/spectral/solver"
)

// The n = 3/2 spherical polytrope has the Lane-Emden surface
// xi1 = 3.65375374, which fixes Lambda = xi1^2 and the boundary values of
// the potential.
func TestSpherical(t *testing.T) {
	p := New(1.5, 0, 50, 1)
	sol, err := p.Solve()
	require.NoError(t, err)

	assert.Less(t, sol.FinalError, p.Tol)
	assert.InDelta(t, 13.3499166, sol.Lambda, 1.e-3)
	assert.InDelta(t, -0.1305484, sol.Phi0, 1.e-4)
	assert.InDelta(t, -0.0556415, sol.Phi.At(-1, 0), 1.e-4)

	// Boundary conditions hold at convergence.
	assert.InDelta(t, 0, sol.BCBottom, 1.e-8)
	assert.InDelta(t, 0, sol.BCTop, 1.e-8)

	// The central closure pins Phi0 to the central potential.
	assert.InDelta(t, sol.Phi.At(0, 0), sol.Phi0, 1.e-10)

	// The density vanishes at the surface: Lambda (Phi(1) - Phi0) = 1.
	assert.InDelta(t, 1, sol.Lambda*(sol.Phi.At(-1, 0)-sol.Phi0), 1.e-9)
}

// Splitting the interval into two domains with interface matching must
// reproduce the single-domain solution.
func TestTwoDomains(t *testing.T) {
	p := New(1.5, 0, 20, 1)
	p.NDomains = 2
	sol, err := p.Solve()
	require.NoError(t, err)

	assert.InDelta(t, 13.3499166, sol.Lambda, 1.e-3)
	assert.InDelta(t, 0, sol.BCBottom, 1.e-8)
	assert.InDelta(t, 0, sol.BCTop, 1.e-8)

	// The potential is continuous across the interface.
	s1, _ := sol.Map.DomainRows(1)
	assert.InDelta(t, sol.Phi.At(s1-1, 0), sol.Phi.At(s1, 0), 1.e-10)
}

// A spherically symmetric run with an angular grid must stay independent
// of theta.
func TestAngularGrid(t *testing.T) {
	p := New(1.5, 0, 24, 4)
	sol, err := p.Solve()
	require.NoError(t, err)

	assert.InDelta(t, 13.3499166, sol.Lambda, 1.e-3)
	for i := 0; i < p.Nr; i++ {
		for j := 1; j < p.Nt; j++ {
			assert.InDelta(t, sol.Phi.At(i, 0), sol.Phi.At(i, j), 1.e-6)
		}
	}
}

func TestRotating(t *testing.T) {
	p := New(1.5, 0.2, 30, 8)
	sol, err := p.Solve()
	require.NoError(t, err)

	assert.Less(t, sol.FinalError, p.Tol)
	assert.InDelta(t, 0, sol.BCBottom, 1.e-8)
	assert.InDelta(t, 0, sol.BCTop, 1.e-8)

	// Rotation perturbs the structure away from the spherical values.
	assert.False(t, math.Abs(sol.Lambda-13.3499166) < 1.e-6)

	res, err := sol.Residual(p)
	require.NoError(t, err)
	assert.True(t, res.IsFinite())

	// A slow rotator converges to the same tolerance: the near-center
	// rows must not push the system into a failed factorization.
	p = New(1.5, 0.05, 30, 8)
	sol, err = p.Solve()
	require.NoError(t, err)
	assert.Less(t, sol.FinalError, p.Tol)
	assert.InDelta(t, 0, sol.BCBottom, 1.e-8)
	assert.InDelta(t, 0, sol.BCTop, 1.e-8)
}

// Verbose runs report the iteration state and the error norm without
// changing the result.
func TestVerbose(t *testing.T) {
	p := New(1.5, 0, 16, 1)
	p.Verbose = true

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	sol, serr := p.Solve()
	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)

	require.NoError(t, serr)
	assert.Less(t, sol.FinalError, p.Tol)
	assert.Contains(t, string(out), "iter #")
	assert.Contains(t, string(out), "error =")
}

func TestNoConvergence(t *testing.T) {
	p := New(1.5, 0, 20, 1)
	p.MaxIter = 1
	_, err := p.Solve()
	assert.ErrorIs(t, err, solver.ErrNoConvergence)
}
