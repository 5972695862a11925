// Package symbolic builds residual expressions over named field variables
// on a spectral grid, and produces their exact Jacobian contributions by
// structural differentiation of the expression tree.
package symbolic

import (
	"errors"
	"fmt"

	"github.com/astrosolve/spectral/mapping"
	"github.com/astrosolve/spectral/utils"
)

var (
	ErrUnbound    = errors.New("symbolic: no grid bound")
	ErrUnknownVar = errors.New("symbolic: unknown variable")
	ErrRedeclared = errors.New("symbolic: variable already registered")
	ErrNoValue    = errors.New("symbolic: variable has no value set")
	ErrShape      = errors.New("symbolic: value shape mismatch")
	ErrNonFinite  = errors.New("symbolic: expression evaluated to a non-finite value")
)

// Context holds the grid binding and the current numeric values of the
// registered variables. Expressions are templates: they carry no values of
// their own, and evaluation and differentiation are pure functions of the
// bindings stored here.
type Context struct {
	mp   *mapping.Mapping
	vars map[string]*variable
}

type variable struct {
	name  string
	value utils.Matrix
	set   bool
}

func NewContext() *Context {
	return &Context{vars: make(map[string]*variable)}
}

// SetMap binds the context to a grid. Must precede variable registration.
func (c *Context) SetMap(mp *mapping.Mapping) { c.mp = mp }

// Regvar registers a named variable and returns its expression handle.
func (c *Context) Regvar(name string) (Expr, error) {
	if c.mp == nil {
		return nil, ErrUnbound
	}
	if _, ok := c.vars[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrRedeclared, name)
	}
	c.vars[name] = &variable{name: name}
	return varRef{name}, nil
}

func (c *Context) MustRegvar(name string) Expr {
	e, err := c.Regvar(name)
	if err != nil {
		panic(err)
	}
	return e
}

// SetValue stores the current numeric value of a registered variable. The
// value must be 1x1 (scalar unknown) or Nr x Nt (field unknown).
func (c *Context) SetValue(name string, v utils.Matrix) error {
	vr, ok := c.vars[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVar, name)
	}
	nr, nc := v.Dims()
	if !(nr == 1 && nc == 1) && !(nr == c.mp.Nr && nc == c.mp.Nt) {
		return fmt.Errorf("%w: %q given %dx%d, want 1x1 or %dx%d",
			ErrShape, name, nr, nc, c.mp.Nr, c.mp.Nt)
	}
	if vr.set {
		if pr, pc := vr.value.Dims(); pr != nr || pc != nc {
			return fmt.Errorf("%w: %q changed from %dx%d to %dx%d",
				ErrShape, name, pr, pc, nr, nc)
		}
	}
	vr.value = v
	vr.set = true
	return nil
}

// R is the radial coordinate field.
func (c *Context) R() Expr { return coordRef{coordRad} }

// Theta is the angular coordinate field.
func (c *Context) Theta() Expr { return coordRef{coordTheta} }

// Eval computes the numeric value of an expression from the current
// bindings. The result is freshly allocated and safe to mutate.
func (c *Context) Eval(e Expr) (utils.Matrix, error) {
	if c.mp == nil {
		return utils.Matrix{}, ErrUnbound
	}
	v, err := e.eval(c)
	if err != nil {
		return utils.Matrix{}, err
	}
	if !v.IsFinite() {
		return utils.Matrix{}, ErrNonFinite
	}
	return v.Copy(), nil
}

// Jacobian is the exact derivative of an expression with respect to one
// registered variable, as a dense linear operator: rows follow the
// expression's flattened shape, columns the variable's unknowns.
type Jacobian struct {
	M utils.Matrix
}

// Diff differentiates an expression with respect to a registered variable
// by structural recursion over the tree. A variable absent from the
// expression yields the zero operator, not an error.
func (c *Context) Diff(e Expr, wrt string) (J Jacobian, err error) {
	if c.mp == nil {
		err = ErrUnbound
		return
	}
	vr, ok := c.vars[wrt]
	if !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownVar, wrt)
		return
	}
	if !vr.set {
		err = fmt.Errorf("%w: %q", ErrNoValue, wrt)
		return
	}
	w := &diffCtx{wrt: wrt, wcols: 1, n: c.mp.N()}
	if !vr.value.IsScalar() {
		w.wcols = w.n
	}
	j, err := e.diff(c, w)
	if err != nil {
		return
	}
	// Rows follow the expression's value shape: derivatives of a
	// field-valued expression always span the grid.
	ev, err := e.eval(c)
	if err != nil {
		return
	}
	if !ev.IsScalar() {
		j = promote(j, w.n)
	}
	J = Jacobian{M: j.m}
	return
}
