package mapping

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigErrors(t *testing.T) {
	{
		mp := New()
		mp.SetNDomains(0)
		assert.ErrorIs(t, mp.Init(), ErrConfig)
	}
	{
		mp := New()
		assert.ErrorIs(t, mp.Init(), ErrConfig) // point count not set
	}
	{
		mp := New()
		mp.SetNpts(1)
		assert.ErrorIs(t, mp.Init(), ErrConfig) // need at least 2 points
	}
	{
		mp := New()
		mp.SetNpts(8)
		mp.SetNt(0)
		assert.ErrorIs(t, mp.Init(), ErrConfig)
	}
	{
		mp := New()
		mp.SetNDomains(2)
		mp.SetNpts(8, 8, 8)
		assert.ErrorIs(t, mp.Init(), ErrConfig) // counts do not match domains
	}
	{
		mp := New()
		mp.SetNpts(8)
		mp.SetXif(0, 0.5, 1)
		assert.ErrorIs(t, mp.Init(), ErrConfig) // bounds do not match domains
	}
	{
		mp := New()
		mp.SetNpts(8)
		mp.SetXif(1, 0)
		assert.ErrorIs(t, mp.Init(), ErrConfig) // reversed interval
	}
	{
		mp := New()
		assert.ErrorIs(t, mp.Remap(), ErrConfig) // Remap before Init
	}
}

func TestDerivative(t *testing.T) {
	mp := New()
	mp.SetNpts(16)
	require.NoError(t, mp.Init())
	assert.Equal(t, 16, mp.Nr)
	assert.Equal(t, 16, mp.N())

	// Endpoints of the Gauss-Lobatto grid land on the interval bounds.
	assert.True(t, near(mp.Rad.At(0, 0), 0))
	assert.True(t, near(mp.Rad.At(-1, 0), 1))

	// d/dr r^3 = 3 r^2, exact for a polynomial grid function.
	f := mp.Rad.Copy().ElMul(mp.Rad).ElMul(mp.Rad)
	df := mp.D.Mul(f)
	for i := 0; i < mp.Nr; i++ {
		r := mp.Rad.At(i, 0)
		assert.InDelta(t, 3*r*r, df.At(i, 0), 1.e-10)
	}
}

func TestConvergence(t *testing.T) {
	// Differentiating a non-polynomial grid function: the error drops
	// spectrally as the point count grows.
	maxErr := func(npts int) (e float64) {
		mp := New()
		mp.SetNpts(npts)
		require.NoError(t, mp.Init())
		f := mp.Rad.Copy().Apply(func(r float64) float64 {
			return math.Sin(10 * r)
		})
		df := mp.D.Mul(f)
		for i := 0; i < mp.Nr; i++ {
			d := math.Abs(df.At(i, 0) - 10*math.Cos(10*mp.Rad.At(i, 0)))
			if d > e {
				e = d
			}
		}
		return
	}
	e8, e16, e24 := maxErr(8), maxErr(16), maxErr(24)
	assert.Less(t, e16, e8/100)
	assert.Less(t, e24, e16/100)
	assert.Less(t, e24, 1.e-8)
}

func TestLaplacian(t *testing.T) {
	// lap(r^2) = 6 in spherical coordinates, including the regularized
	// center row.
	{
		mp := New()
		mp.SetNpts(12)
		require.NoError(t, mp.Init())
		f := mp.Rad.Copy().ElMul(mp.Rad)
		lap := mp.Lap(f)
		for i := 0; i < mp.Nr; i++ {
			assert.InDelta(t, 6, lap.At(i, 0), 1.e-9)
		}
	}
	// With an angular dimension: lap(r^2 sin^2 th) = lap(x^2 + y^2) = 4,
	// on the center row too, where the angular part takes its r -> 0
	// limit.
	{
		mp := New()
		mp.SetNpts(12)
		mp.SetNt(16)
		require.NoError(t, mp.Init())
		assert.Equal(t, 12*16, mp.N())
		f := mp.Rad.Copy().ElMul(mp.Rad)
		for i := 0; i < mp.Nr; i++ {
			for j := 0; j < mp.Nt; j++ {
				s := math.Sin(mp.Theta.At(0, j))
				f.Set(i, j, f.At(i, j)*s*s)
			}
		}
		lap := mp.Lap(f)
		for i := 0; i < mp.Nr; i++ {
			for j := 0; j < mp.Nt; j++ {
				assert.InDelta(t, 4, lap.At(i, j), 1.e-7)
			}
		}
	}
}

func TestMultiDomain(t *testing.T) {
	mp := New()
	mp.SetNDomains(2)
	mp.SetNpts(8, 10)
	require.NoError(t, mp.Init())
	assert.Equal(t, 18, mp.Nr)

	s0, e0 := mp.DomainRows(0)
	s1, e1 := mp.DomainRows(1)
	assert.Equal(t, 0, s0)
	assert.Equal(t, 8, e0)
	assert.Equal(t, 8, s1)
	assert.Equal(t, 18, e1)

	// The interface point appears in both domains at the same radius.
	assert.True(t, near(mp.Rad.At(e0-1, 0), 0.5))
	assert.True(t, near(mp.Rad.At(s1, 0), 0.5))

	// DBlock rows differentiate within a domain: d/dr r^2 = 2r at the
	// bottom of domain 1.
	D1 := mp.DBlock(1)
	nr1, nc1 := D1.Dims()
	assert.Equal(t, 10, nr1)
	assert.Equal(t, 10, nc1)
	var df float64
	for j := 0; j < 10; j++ {
		r := mp.Rad.At(s1+j, 0)
		df += D1.At(0, j) * r * r
	}
	assert.InDelta(t, 2*mp.Rad.At(s1, 0), df, 1.e-10)

	// lap(r^2) = 6 across both domains.
	lap := mp.Lap(mp.Rad.Copy().ElMul(mp.Rad))
	for i := 0; i < mp.Nr; i++ {
		assert.InDelta(t, 6, lap.At(i, 0), 1.e-8)
	}
}

func TestRemap(t *testing.T) {
	mp := New()
	mp.SetNpts(10)
	require.NoError(t, mp.Init())
	assert.True(t, near(mp.Rad.At(-1, 0), 1))

	// Move the outer boundary and rebuild.
	mp.R.Set(1, 0, 2)
	require.NoError(t, mp.Remap())
	assert.True(t, near(mp.Rad.At(-1, 0), 2))

	// Operators follow the new interval.
	f := mp.Rad.Copy().ElMul(mp.Rad)
	df := mp.D.Mul(f)
	assert.InDelta(t, 4, df.At(-1, 0), 1.e-10)

	// A reversed boundary is rejected.
	mp.R.Set(1, 0, -1)
	assert.ErrorIs(t, mp.Remap(), ErrConfig)
}

func TestJacobi(t *testing.T) {
	// Gauss-Lobatto nodes include the endpoints and are symmetric.
	x := JacobiGL(0, 0, 4)
	assert.Equal(t, 5, x.Len())
	assert.True(t, near(x.AtVec(0), -1))
	assert.True(t, near(x.AtVec(-1), 1))
	assert.InDelta(t, 0, x.AtVec(2), 1.e-12)
	assert.InDelta(t, x.AtVec(1), -x.AtVec(3), 1.e-12)

	// Gauss quadrature integrates polynomials of degree 2N+1 exactly:
	// int_{-1}^{1} x^4 dx = 2/5 with N = 2.
	xg, wg := JacobiGQ(0, 0, 2)
	var sum float64
	for i := 0; i < xg.Len(); i++ {
		sum += wg.AtVec(i) * math.Pow(xg.AtVec(i), 4)
	}
	assert.InDelta(t, 2./5., sum, 1.e-12)
}

func near(a, b float64) (l bool) {
	if math.Abs(a-b) <= 1.e-08*math.Max(math.Abs(a), 1) {
		l = true
	}
	return
}
