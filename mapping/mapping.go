package mapping

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"

	"github.com/astrosolve/spectral/utils"
)

// ErrConfig is wrapped by every configuration failure from Init and Remap.
var ErrConfig = errors.New("mapping: invalid configuration")

// Mapping is the spectral collocation grid: one or more radial domains with
// Gauss-Lobatto nodes, an optional angular dimension on Gauss nodes, and the
// differentiation operators acting on fields sampled on the grid.
//
// Fields on the grid are Nr x Nt matrices: rows follow the radial
// coordinate across all domains, columns follow the angular coordinate.
// The flattened ordering used by operator matrices is row-major
// (radial index outer, angular index inner).
type Mapping struct {
	NDomains int
	Npts     []int // radial points per domain
	Nt       int
	Nr       int // total radial points across domains

	// R holds the domain boundary radii, (NDomains+1) x 1. It is built by
	// Init from the configured interval and may be overwritten by the
	// caller before Remap when boundaries are solved for.
	R utils.Matrix

	Rad   utils.Matrix // Nr x Nt radial coordinate field
	Theta utils.Matrix // 1 x Nt angular coordinate

	D  utils.Matrix // Nr x Nr block-diagonal radial first derivative
	D2 utils.Matrix // Nr x Nr radial second derivative
	Lt utils.Matrix // Nt x Nt angular Laplacian d2/dth2 + cot(th) d/dth

	xif     []float64
	dblocks []utils.Matrix
	offsets []int
	lapOp   utils.Matrix
	built   bool
}

func New() *Mapping {
	return &Mapping{
		NDomains: 1,
		Nt:       1,
	}
}

func (mp *Mapping) SetNDomains(k int) { mp.NDomains = k }

// SetNpts sets the radial point count: a single value applies to every
// domain, NDomains values set the counts per domain.
func (mp *Mapping) SetNpts(n ...int) { mp.Npts = n }

func (mp *Mapping) SetNt(m int) { mp.Nt = m }

// SetXif sets the NDomains+1 domain boundary coordinates. The default
// interval is an even subdivision of [0, 1].
func (mp *Mapping) SetXif(xif ...float64) { mp.xif = xif }

// N is the composite point count of the grid.
func (mp *Mapping) N() int { return mp.Nr * mp.Nt }

// Init validates the grid specification and builds the coordinate fields
// and differentiation operators.
func (mp *Mapping) Init() (err error) {
	if mp.NDomains < 1 {
		return fmt.Errorf("%w: %d domains", ErrConfig, mp.NDomains)
	}
	switch len(mp.Npts) {
	case 1:
		n := mp.Npts[0]
		mp.Npts = make([]int, mp.NDomains)
		for d := range mp.Npts {
			mp.Npts[d] = n
		}
	case mp.NDomains:
	case 0:
		return fmt.Errorf("%w: point count not set", ErrConfig)
	default:
		return fmt.Errorf("%w: %d point counts for %d domains", ErrConfig, len(mp.Npts), mp.NDomains)
	}
	for d, n := range mp.Npts {
		if n < 2 {
			return fmt.Errorf("%w: domain %d has %d points, need at least 2", ErrConfig, d, n)
		}
	}
	if mp.Nt < 1 {
		return fmt.Errorf("%w: nt = %d", ErrConfig, mp.Nt)
	}
	if len(mp.xif) == 0 {
		mp.xif = make([]float64, mp.NDomains+1)
		for d := range mp.xif {
			mp.xif[d] = float64(d) / float64(mp.NDomains)
		}
	}
	if len(mp.xif) != mp.NDomains+1 {
		return fmt.Errorf("%w: %d interval bounds for %d domains", ErrConfig, len(mp.xif), mp.NDomains)
	}
	mp.R = utils.NewMatrix(mp.NDomains+1, 1)
	for d, x := range mp.xif {
		mp.R.Set(d, 0, x)
	}
	return mp.build()
}

// Remap rebuilds the coordinate fields and operators from the current
// boundary values in R, after the caller has moved them.
func (mp *Mapping) Remap() (err error) {
	if !mp.built {
		return fmt.Errorf("%w: Remap before Init", ErrConfig)
	}
	if nr, nc := mp.R.Dims(); nr != mp.NDomains+1 || nc != 1 {
		return fmt.Errorf("%w: R is %dx%d, want %dx1", ErrConfig, nr, nc, mp.NDomains+1)
	}
	return mp.build()
}

func (mp *Mapping) build() (err error) {
	for d := 0; d < mp.NDomains; d++ {
		if mp.R.At(d+1, 0) <= mp.R.At(d, 0) {
			return fmt.Errorf("%w: domain %d interval [%g, %g] is empty or reversed",
				ErrConfig, d, mp.R.At(d, 0), mp.R.At(d+1, 0))
		}
	}

	mp.Nr = 0
	mp.offsets = make([]int, mp.NDomains)
	for d, n := range mp.Npts {
		mp.offsets[d] = mp.Nr
		mp.Nr += n
	}

	// Per-domain Gauss-Lobatto nodes and scaled differentiation blocks,
	// staged through a DOK sparse matrix for the global block-diagonal D.
	rad := make([]float64, mp.Nr)
	mp.dblocks = make([]utils.Matrix, mp.NDomains)
	dok := sparse.NewDOK(mp.Nr, mp.Nr)
	for d := 0; d < mp.NDomains; d++ {
		var (
			n     = mp.Npts[d]
			a, b  = mp.R.At(d, 0), mp.R.At(d+1, 0)
			off   = mp.offsets[d]
			nodes = JacobiGL(0, 0, n-1)
			Dd    utils.Matrix
		)
		if Dd, err = Dmatrix1D(n-1, nodes); err != nil {
			return fmt.Errorf("domain %d differentiation matrix: %w", d, err)
		}
		Dd.Scale(2. / (b - a))
		mp.dblocks[d] = Dd
		for k := 0; k < n; k++ {
			rad[off+k] = a + 0.5*(nodes.AtVec(k)+1)*(b-a)
			for j := 0; j < n; j++ {
				if v := Dd.At(k, j); v != 0 {
					dok.Set(off+k, off+j, v)
				}
			}
		}
	}
	mp.D = utils.NewMatrix(mp.Nr, mp.Nr)
	mp.D.M.CloneFrom(dok.ToCSR())
	mp.D2 = mp.D.Mul(mp.D)

	mp.Rad = utils.NewMatrix(mp.Nr, mp.Nt)
	for i := 0; i < mp.Nr; i++ {
		for j := 0; j < mp.Nt; j++ {
			mp.Rad.Set(i, j, rad[i])
		}
	}

	if err = mp.buildAngular(); err != nil {
		return
	}
	mp.buildLaplacian(rad)
	mp.built = true
	return
}

func (mp *Mapping) buildAngular() (err error) {
	if mp.Nt == 1 {
		// Purely radial: a single equatorial colatitude, no angular operator.
		mp.Theta = utils.NewMatrix(1, 1, []float64{math.Pi / 2})
		mp.Lt = utils.NewMatrix(1, 1)
		return
	}
	// Gauss nodes exclude the endpoints, keeping cot(theta) regular.
	x, _ := JacobiGQ(0, 0, mp.Nt-1)
	var Dx utils.Matrix
	if Dx, err = Dmatrix1D(mp.Nt-1, x); err != nil {
		return fmt.Errorf("angular differentiation matrix: %w", err)
	}
	mp.Theta = utils.NewMatrix(1, mp.Nt)
	for j := 0; j < mp.Nt; j++ {
		mp.Theta.Set(0, j, (x.AtVec(j)+1)*math.Pi/4)
	}
	Dth := Dx.Scale(4. / math.Pi)
	cot := make([]float64, mp.Nt)
	for j := 0; j < mp.Nt; j++ {
		th := mp.Theta.At(0, j)
		cot[j] = math.Cos(th) / math.Sin(th)
	}
	mp.Lt = Dth.Mul(Dth).Add(Dth.Copy().ScaleRows(cot))
	return
}

func (mp *Mapping) buildLaplacian(rad []float64) {
	// Radial part: D2 + (2/r) D, with the r=0 row replaced by its
	// regular limit 3 D2.
	radial := utils.NewMatrix(mp.Nr, mp.Nr)
	for i := 0; i < mp.Nr; i++ {
		for j := 0; j < mp.Nr; j++ {
			if rad[i] == 0 {
				radial.Set(i, j, 3*mp.D2.At(i, j))
			} else {
				radial.Set(i, j, mp.D2.At(i, j)+2./rad[i]*mp.D.At(i, j))
			}
		}
	}
	mp.lapOp = utils.Kron(radial, utils.Eye(mp.Nt))
	if mp.Nt > 1 {
		ang := utils.Kron(utils.Eye(mp.Nr), mp.Lt)
		coef := make([]float64, mp.Nr*mp.Nt)
		for i := 0; i < mp.Nr; i++ {
			var c float64
			if rad[i] != 0 {
				c = 1. / (rad[i] * rad[i])
			}
			for j := 0; j < mp.Nt; j++ {
				coef[i*mp.Nt+j] = c
			}
		}
		mp.lapOp.Add(ang.ScaleRows(coef))
		// Angular part at r=0: for a field regular at the origin,
		// f = f0 + r f1 + r^2 f2 + ..., so Lt f / r^2 -> Lt(d2f/dr2)/2.
		center := utils.NewMatrix(mp.Nr, mp.Nr)
		var atOrigin bool
		for i := range rad {
			if rad[i] == 0 {
				atOrigin = true
				for k := 0; k < mp.Nr; k++ {
					center.Set(i, k, 0.5*mp.D2.At(i, k))
				}
			}
		}
		if atOrigin {
			mp.lapOp.Add(utils.Kron(center, mp.Lt))
		}
	}
}

// LapOp returns the flattened Laplacian operator, (Nr*Nt) x (Nr*Nt).
func (mp *Mapping) LapOp() utils.Matrix {
	if !mp.built {
		panic("mapping: LapOp before Init")
	}
	return mp.lapOp
}

// Lap applies the Laplacian to a field on the grid.
func (mp *Mapping) Lap(f utils.Matrix) utils.Matrix {
	if !mp.built {
		panic("mapping: Lap before Init")
	}
	return mp.lapOp.Mul(f.Reshape(mp.N(), 1)).Reshape(mp.Nr, mp.Nt)
}

// DomainRows returns the half-open global radial row range [start, end) of
// domain d.
func (mp *Mapping) DomainRows(d int) (start, end int) {
	start = mp.offsets[d]
	end = start + mp.Npts[d]
	return
}

// DBlock returns domain d's radial differentiation block, npts[d] square.
// Rows of this block are the derivative stencils used in boundary rows.
func (mp *Mapping) DBlock(d int) utils.Matrix {
	return mp.dblocks[d]
}
