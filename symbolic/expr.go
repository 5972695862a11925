package symbolic

import (
	"errors"
	"fmt"
	"math"

	"github.com/astrosolve/spectral/utils"
)

// Expr is an immutable expression node. Building an expression performs no
// evaluation; the same tree is reused across Newton iterations with fresh
// value bindings in the Context.
type Expr interface {
	eval(c *Context) (utils.Matrix, error)
	diff(c *Context, w *diffCtx) (jac, error)
}

// Constructors. Sub and Sqrt are compositions of the primitive nodes.

func Num(v float64) Expr         { return num{v} }
func Add(a, b Expr) Expr         { return add{a, b} }
func Sub(a, b Expr) Expr         { return add{a, neg{b}} }
func Mul(a, b Expr) Expr         { return mul{a, b} }
func Div(a, b Expr) Expr         { return div{a, b} }
func Neg(a Expr) Expr            { return neg{a} }
func Pow(a Expr, p float64) Expr { return pow{a, p} }
func Sqrt(a Expr) Expr           { return pow{a, 0.5} }
func Sin(a Expr) Expr            { return sine{a} }
func Cos(a Expr) Expr            { return cosine{a} }
func Lap(a Expr) Expr            { return laplacian{a} }

type coordKind uint8

const (
	coordRad coordKind = iota
	coordTheta
)

type (
	num      struct{ v float64 }
	varRef   struct{ name string }
	coordRef struct{ kind coordKind }
	add      struct{ a, b Expr }
	mul      struct{ a, b Expr }
	div      struct{ a, b Expr }
	neg      struct{ a Expr }
	pow      struct {
		a Expr
		p float64
	}
	sine      struct{ a Expr }
	cosine    struct{ a Expr }
	laplacian struct{ a Expr }
)

var errDivZero = errors.New("symbolic: division by a zero sample")

// Evaluation. Nodes never mutate values obtained from children; every
// result is freshly allocated or a read-only reference from the context.

func (e num) eval(c *Context) (utils.Matrix, error) {
	return utils.NewMatrix(1, 1, []float64{e.v}), nil
}

func (e varRef) eval(c *Context) (utils.Matrix, error) {
	vr, ok := c.vars[e.name]
	if !ok {
		return utils.Matrix{}, fmt.Errorf("%w: %q", ErrUnknownVar, e.name)
	}
	if !vr.set {
		return utils.Matrix{}, fmt.Errorf("%w: %q", ErrNoValue, e.name)
	}
	return vr.value, nil
}

func (e coordRef) eval(c *Context) (utils.Matrix, error) {
	switch e.kind {
	case coordRad:
		return c.mp.Rad, nil
	default:
		// Replicate the 1 x Nt angular row over the radial rows.
		th := utils.NewMatrix(c.mp.Nr, c.mp.Nt)
		for i := 0; i < c.mp.Nr; i++ {
			for j := 0; j < c.mp.Nt; j++ {
				th.Set(i, j, c.mp.Theta.At(0, j))
			}
		}
		return th, nil
	}
}

func (e add) eval(c *Context) (utils.Matrix, error) {
	return evalBinary(c, e.a, e.b, func(x, y float64) float64 { return x + y })
}

func (e mul) eval(c *Context) (utils.Matrix, error) {
	return evalBinary(c, e.a, e.b, func(x, y float64) float64 { return x * y })
}

func (e div) eval(c *Context) (utils.Matrix, error) {
	eb, err := e.b.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	for _, v := range eb.RawMatrix().Data {
		if v == 0 {
			return utils.Matrix{}, errDivZero
		}
	}
	return evalBinary(c, e.a, e.b, func(x, y float64) float64 { return x / y })
}

func (e neg) eval(c *Context) (utils.Matrix, error) {
	ea, err := e.a.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	return ea.Copy().Scale(-1), nil
}

func (e pow) eval(c *Context) (utils.Matrix, error) {
	ea, err := e.a.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	p := e.p
	return ea.Copy().Apply(func(x float64) float64 { return powVal(x, p) }), nil
}

func (e sine) eval(c *Context) (utils.Matrix, error) {
	ea, err := e.a.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	return ea.Copy().Apply(math.Sin), nil
}

func (e cosine) eval(c *Context) (utils.Matrix, error) {
	ea, err := e.a.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	return ea.Copy().Apply(math.Cos), nil
}

func (e laplacian) eval(c *Context) (utils.Matrix, error) {
	ea, err := e.a.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	return c.mp.Lap(c.fieldOf(ea)), nil
}

// fieldOf broadcasts a scalar to a constant field; fields pass through.
func (c *Context) fieldOf(a utils.Matrix) utils.Matrix {
	if !a.IsScalar() {
		return a
	}
	f := utils.NewMatrix(c.mp.Nr, c.mp.Nt)
	return f.AddScalar(a.At(0, 0))
}

func evalBinary(c *Context, a, b Expr, f func(x, y float64) float64) (utils.Matrix, error) {
	ea, err := a.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	eb, err := b.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	return combine(ea, eb, f), nil
}

// combine applies f elementwise with scalar broadcasting.
func combine(a, b utils.Matrix, f func(x, y float64) float64) utils.Matrix {
	switch {
	case a.IsScalar() && b.IsScalar():
		return utils.NewMatrix(1, 1, []float64{f(a.At(0, 0), b.At(0, 0))})
	case a.IsScalar():
		x := a.At(0, 0)
		return b.Copy().Apply(func(y float64) float64 { return f(x, y) })
	case b.IsScalar():
		y := b.At(0, 0)
		return a.Copy().Apply(func(x float64) float64 { return f(x, y) })
	default:
		return a.Copy().Apply2(f, b)
	}
}

// powVal implements the real-power policy: a non-integer power operates on
// the absolute value of the base, so the result stays real. Callers that
// need sign sensitivity express it in the tree.
func powVal(x, p float64) float64 {
	if p == math.Trunc(p) {
		return math.Pow(x, p)
	}
	return math.Pow(math.Abs(x), p)
}

// powDeriv is d(powVal)/dx.
func powDeriv(x, p float64) float64 {
	if p == 0 {
		return 0 // not 0*Pow(x, -1), which is NaN at x = 0
	}
	if p == math.Trunc(p) {
		return p * math.Pow(x, p-1)
	}
	if x == 0 {
		if p >= 1 {
			return 0
		}
		return math.Inf(1)
	}
	s := 1.
	if x < 0 {
		s = -1
	}
	return p * s * math.Pow(math.Abs(x), p-1)
}
