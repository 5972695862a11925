package symbolic

import (
	"math"

	"github.com/astrosolve/spectral/utils"
)

// diffCtx fixes the variable being differentiated against for one Diff
// call: its name, its unknown count (1 for scalars, Nr*Nt for fields) and
// the flattened grid size.
type diffCtx struct {
	wrt   string
	wcols int
	n     int
}

// jac is a partial derivative accumulated during structural recursion.
// scalar marks a single-row operator belonging to a scalar-valued
// subexpression; it broadcasts over the grid when combined with field
// terms.
type jac struct {
	m      utils.Matrix
	scalar bool
}

func zeroJac(w *diffCtx) jac {
	return jac{m: utils.NewMatrix(1, w.wcols), scalar: true}
}

// promote replicates a scalar operator row across the n grid rows.
func promote(j jac, n int) jac {
	if !j.scalar {
		return j
	}
	_, nc := j.m.Dims()
	R := utils.NewMatrix(n, nc)
	for i := 0; i < n; i++ {
		R.SetRow(i, j.m.Row(0))
	}
	return jac{m: R}
}

func jadd(a, b jac, n int) jac {
	if a.scalar && b.scalar {
		return jac{m: a.m.Copy().Add(b.m), scalar: true}
	}
	a, b = promote(a, n), promote(b, n)
	return jac{m: a.m.Copy().Add(b.m)}
}

// jscale multiplies an operator by an elementwise factor: a scalar factor
// scales uniformly, a field factor scales each grid row by its sample.
func jscale(j jac, x utils.Matrix, n int) jac {
	if x.IsScalar() {
		return jac{m: j.m.Copy().Scale(x.At(0, 0)), scalar: j.scalar}
	}
	jp := promote(j, n)
	return jac{m: jp.m.Copy().ScaleRows(x.RawMatrix().Data)}
}

// Differentiation: the chain rule over each node kind. Values of sibling
// subexpressions enter as elementwise factors.

func (e num) diff(c *Context, w *diffCtx) (jac, error) {
	return zeroJac(w), nil
}

func (e coordRef) diff(c *Context, w *diffCtx) (jac, error) {
	return zeroJac(w), nil
}

func (e varRef) diff(c *Context, w *diffCtx) (jac, error) {
	if e.name != w.wrt {
		return zeroJac(w), nil
	}
	if w.wcols == 1 {
		return jac{m: utils.NewMatrix(1, 1, []float64{1}), scalar: true}, nil
	}
	return jac{m: utils.Eye(w.n)}, nil
}

func (e add) diff(c *Context, w *diffCtx) (jac, error) {
	da, err := e.a.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	db, err := e.b.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	return jadd(da, db, w.n), nil
}

func (e neg) diff(c *Context, w *diffCtx) (jac, error) {
	da, err := e.a.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	return jac{m: da.m.Copy().Scale(-1), scalar: da.scalar}, nil
}

func (e mul) diff(c *Context, w *diffCtx) (jac, error) {
	da, err := e.a.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	db, err := e.b.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	ea, err := e.a.eval(c)
	if err != nil {
		return jac{}, err
	}
	eb, err := e.b.eval(c)
	if err != nil {
		return jac{}, err
	}
	return jadd(jscale(da, eb, w.n), jscale(db, ea, w.n), w.n), nil
}

func (e div) diff(c *Context, w *diffCtx) (jac, error) {
	da, err := e.a.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	db, err := e.b.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	ea, err := e.a.eval(c)
	if err != nil {
		return jac{}, err
	}
	eb, err := e.b.eval(c)
	if err != nil {
		return jac{}, err
	}
	for _, v := range eb.RawMatrix().Data {
		if v == 0 {
			return jac{}, errDivZero
		}
	}
	// d(a/b) = da/b - a db/b^2
	invB := eb.Copy().Apply(func(y float64) float64 { return 1 / y })
	fac := combine(ea, eb, func(x, y float64) float64 { return -x / (y * y) })
	return jadd(jscale(da, invB, w.n), jscale(db, fac, w.n), w.n), nil
}

func (e pow) diff(c *Context, w *diffCtx) (jac, error) {
	da, err := e.a.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	ea, err := e.a.eval(c)
	if err != nil {
		return jac{}, err
	}
	p := e.p
	fac := ea.Copy().Apply(func(x float64) float64 { return powDeriv(x, p) })
	return jscale(da, fac, w.n), nil
}

func (e sine) diff(c *Context, w *diffCtx) (jac, error) {
	da, err := e.a.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	ea, err := e.a.eval(c)
	if err != nil {
		return jac{}, err
	}
	return jscale(da, ea.Copy().Apply(math.Cos), w.n), nil
}

func (e cosine) diff(c *Context, w *diffCtx) (jac, error) {
	da, err := e.a.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	ea, err := e.a.eval(c)
	if err != nil {
		return jac{}, err
	}
	fac := ea.Copy().Apply(func(x float64) float64 { return -math.Sin(x) })
	return jscale(da, fac, w.n), nil
}

func (e laplacian) diff(c *Context, w *diffCtx) (jac, error) {
	da, err := e.a.diff(c, w)
	if err != nil {
		return jac{}, err
	}
	dp := promote(da, w.n)
	return jac{m: c.mp.LapOp().Mul(dp.m)}, nil
}
