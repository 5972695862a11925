// Package polytrope solves the self-gravitating rotating polytrope
// equilibrium: lap(Phi) = (1 - Lambda*(Phi-Phi0) + omega^2 r^2 sin^2(th)/2)^n
// with a regular center and exterior vacuum matching at the surface. The
// scalar closures pin Phi0 = Phi at the center and Lambda to the inverse
// potential drop, so the surface falls at r = 1.
package polytrope

import (
	"fmt"

	"github.com/astrosolve/spectral/mapping"
	"github.com/astrosolve/spectral/solver"
	"github.com/astrosolve/spectral/symbolic"
	"github.com/astrosolve/spectral/utils"
)

type Polytrope struct {
	Index                       float64 // polytropic index n
	Omega                       float64 // rotation rate
	Nr, Nt                      int     // Nr is points per domain
	NDomains                    int
	Tol                         float64
	MaxIter                     int
	RelaxThreshold, RelaxFactor float64
	Verbose                     bool
}

func New(index, omega float64, nr, nt int) *Polytrope {
	nw := solver.NewNewton()
	return &Polytrope{
		Index:          index,
		Omega:          omega,
		Nr:             nr,
		Nt:             nt,
		NDomains:       1,
		Tol:            nw.Tol,
		MaxIter:        nw.MaxIter,
		RelaxThreshold: nw.RelaxThreshold,
		RelaxFactor:    nw.RelaxFactor,
	}
}

type Solution struct {
	Phi          utils.Matrix // Nr x Nt potential
	Phi0, Lambda float64
	Map          *mapping.Mapping
	Iterations   int
	FinalError   float64

	// Boundary-condition residuals at convergence: dPhi/dr at the center
	// and dPhi/dr + Phi at the surface.
	BCBottom, BCTop float64
}

func (p *Polytrope) Solve() (*Solution, error) {
	nd := p.NDomains
	if nd < 1 {
		nd = 1
	}
	npts := make([]int, nd)
	for d := range npts {
		npts[d] = p.Nr
	}
	mp := mapping.New()
	mp.SetNDomains(nd)
	mp.SetNpts(npts...)
	mp.SetNt(p.Nt)
	if err := mp.Init(); err != nil {
		return nil, err
	}

	S := symbolic.NewContext()
	S.SetMap(mp)
	symPhi, err := S.Regvar("Phi")
	if err != nil {
		return nil, err
	}
	symLambda, err := S.Regvar("Lambda")
	if err != nil {
		return nil, err
	}
	symPhi0, err := S.Regvar("Phi0")
	if err != nil {
		return nil, err
	}

	// h = 1 - Lambda*(Phi - Phi0) + omega^2 r^2 sin^2(th) / 2
	h := symbolic.Sub(symbolic.Num(1), symbolic.Mul(symLambda, symbolic.Sub(symPhi, symPhi0)))
	if p.Omega != 0 {
		rs := symbolic.Mul(S.R(), symbolic.Sin(S.Theta()))
		h = symbolic.Add(h, symbolic.Mul(symbolic.Num(0.5*p.Omega*p.Omega), symbolic.Mul(rs, rs)))
	}
	// The sqrt(h*h) composition takes |h|: the density must not go
	// negative under the non-integer power near the surface.
	eq := symbolic.Sub(symbolic.Lap(symPhi), symbolic.Pow(symbolic.Sqrt(symbolic.Mul(h, h)), p.Index))

	// Initial guesses.
	Phi := mp.Rad.Copy().ElMul(mp.Rad)
	Lambda := 1.
	Phi0 := 0.

	op := solver.New()
	if err := op.Init(nd, 3, "full"); err != nil {
		return nil, err
	}
	for _, name := range []string{"Phi", "Lambda", "Phi0"} {
		if err := op.Regvar(name); err != nil {
			return nil, err
		}
	}
	if err := op.SetNr(mp.Npts); err != nil {
		return nil, err
	}
	if err := op.SetNt(p.Nt); err != nil {
		return nil, err
	}

	nw := solver.NewNewton()
	nw.Tol = p.Tol
	nw.MaxIter = p.MaxIter
	nw.RelaxThreshold = p.RelaxThreshold
	nw.RelaxFactor = p.RelaxFactor
	nw.Verbose = p.Verbose

	// The field equation is assembled multiplied through by r^2: the
	// angular part of the Laplacian carries 1/r^2, which otherwise lets
	// the rows next to the center dominate the global system and ruins
	// its conditioning. The center row itself is replaced by a boundary
	// condition and never sees the zero scale.
	rsq := mp.Rad.Copy().ElMul(mp.Rad)

	step := func(it int) (errNorm float64, err error) {
		if err = S.SetValue("Phi", Phi); err != nil {
			return
		}
		if err = S.SetValue("Lambda", utils.NewMatrix(1, 1, []float64{Lambda})); err != nil {
			return
		}
		if err = S.SetValue("Phi0", utils.NewMatrix(1, 1, []float64{Phi0})); err != nil {
			return
		}
		if p.Verbose {
			fmt.Printf("iter #%d:\n", it)
			fmt.Printf("   phi: %e - %e\n", Phi.At(0, 0), Phi.At(-1, 0))
			fmt.Printf("  phi0: %e\n", Phi0)
			fmt.Printf("lambda: %e\n", Lambda)
		}

		op.Reset()

		// Jacobian of the Phi equation with respect to each unknown.
		for _, wrt := range []string{"Phi", "Lambda", "Phi0"} {
			var J symbolic.Jacobian
			if J, err = S.Diff(eq, wrt); err != nil {
				return
			}
			if err = op.AddMatrix("Phi", wrt, J.M.ScaleRows(rsq.RawMatrix().Data)); err != nil {
				return
			}
		}

		// Center: dPhi/dr = 0. Surface: dPhi/dr + Phi = 0.
		ones := utils.Ones(1, p.Nt)
		if err = op.BCBot2AddL(0, "Phi", "Phi", ones, mp.DBlock(0).Row(0)); err != nil {
			return
		}
		if err = op.BCTop1AddL(nd-1, "Phi", "Phi", ones, mp.DBlock(nd-1).Row(-1)); err != nil {
			return
		}
		if err = op.BCTop1AddD(nd-1, "Phi", "Phi", ones); err != nil {
			return
		}

		// Interfaces match Phi and dPhi/dr between neighboring domains.
		for d := 1; d < nd; d++ {
			if err = op.BCBot2AddD(d, "Phi", "Phi", ones); err != nil {
				return
			}
			if err = op.BCBot1AddD(d, "Phi", "Phi", ones.Copy().Scale(-1)); err != nil {
				return
			}
			if err = op.BCTop1AddL(d-1, "Phi", "Phi", ones, mp.DBlock(d-1).Row(-1)); err != nil {
				return
			}
			if err = op.BCTop2AddL(d-1, "Phi", "Phi", ones.Copy().Scale(-1), mp.DBlock(d).Row(0)); err != nil {
				return
			}
		}

		var res utils.Matrix
		if res, err = S.Eval(eq); err != nil {
			return
		}
		rhs := res.ElMul(rsq).Scale(-1)
		dPhiDr := mp.D.Mul(Phi)
		rhs.SetRow(0, dPhiDr.Row(0).Scale(-1))
		rhs.SetRow(-1, dPhiDr.Row(-1).Add(Phi.Row(-1)).Scale(-1))
		for d := 1; d < nd; d++ {
			rb, _ := mp.DomainRows(d)
			rhs.SetRow(rb, Phi.Row(rb).Subtract(Phi.Row(rb-1)).Scale(-1))
			rhs.SetRow(rb-1, dPhiDr.Row(rb-1).Subtract(dPhiDr.Row(rb)).Scale(-1))
		}
		if err = op.SetRHS("Phi", rhs); err != nil {
			return
		}

		// Phi0 closure: Phi(0) - Phi0 = 0, registered at the center so it
		// reads the central value of Phi.
		if err = op.BCBot2AddD(0, "Phi0", "Phi", ones); err != nil {
			return
		}
		if err = op.BCBot2AddD(0, "Phi0", "Phi0", ones.Copy().Scale(-1)); err != nil {
			return
		}
		if err = op.SetRHS("Phi0", utils.Ones(1, p.Nt).Scale(-(Phi.At(0, 0) - Phi0))); err != nil {
			return
		}

		// Lambda closure: Lambda*(Phi(1)-Phi0) = 1, linearized as
		// Lambda*(dPhi(1)-dPhi0) + dLambda*(Phi(1)-Phi0) = -(Lambda*(Phi(1)-Phi0) - 1),
		// registered at the surface so it reads Phi at r = 1.
		if err = op.BCTop1AddD(nd-1, "Lambda", "Phi", ones.Copy().Scale(Lambda)); err != nil {
			return
		}
		if err = op.BCTop1AddD(nd-1, "Lambda", "Phi0", ones.Copy().Scale(-Lambda)); err != nil {
			return
		}
		if err = op.BCTop1AddD(nd-1, "Lambda", "Lambda", ones.Copy().Scale(Phi.At(-1, 0)-Phi0)); err != nil {
			return
		}
		if err = op.SetRHS("Lambda", utils.Ones(1, p.Nt).Scale(-(Lambda*(Phi.At(-1, 0)-Phi0) - 1))); err != nil {
			return
		}

		if err = op.Solve(); err != nil {
			return
		}

		dPhi, _ := op.GetVar("Phi")
		errNorm = dPhi.MaxAbs()
		relax := nw.Relax(errNorm)
		Phi.Add(dPhi.Scale(relax))
		dLambda, _ := op.GetVar("Lambda")
		Lambda += relax * dLambda.At(0, 0)
		dPhi0, _ := op.GetVar("Phi0")
		Phi0 += relax * dPhi0.At(0, 0)
		return
	}

	res, err := nw.Run(step)
	if err != nil {
		return nil, err
	}

	dPhiDr := mp.D.Mul(Phi)
	return &Solution{
		Phi:        Phi,
		Phi0:       Phi0,
		Lambda:     Lambda,
		Map:        mp,
		Iterations: res.Iterations,
		FinalError: res.FinalError,
		BCBottom:   dPhiDr.At(0, 0),
		BCTop:      dPhiDr.At(-1, 0) + Phi.At(-1, 0),
	}, nil
}

// Residual evaluates the converged equation residual over the grid, for
// reporting.
func (sol *Solution) Residual(p *Polytrope) (utils.Matrix, error) {
	S := symbolic.NewContext()
	S.SetMap(sol.Map)
	symPhi := S.MustRegvar("Phi")
	symLambda := S.MustRegvar("Lambda")
	symPhi0 := S.MustRegvar("Phi0")
	h := symbolic.Sub(symbolic.Num(1), symbolic.Mul(symLambda, symbolic.Sub(symPhi, symPhi0)))
	if p.Omega != 0 {
		rs := symbolic.Mul(S.R(), symbolic.Sin(S.Theta()))
		h = symbolic.Add(h, symbolic.Mul(symbolic.Num(0.5*p.Omega*p.Omega), symbolic.Mul(rs, rs)))
	}
	eq := symbolic.Sub(symbolic.Lap(symPhi), symbolic.Pow(symbolic.Sqrt(symbolic.Mul(h, h)), p.Index))
	if err := S.SetValue("Phi", sol.Phi); err != nil {
		return utils.Matrix{}, err
	}
	if err := S.SetValue("Lambda", utils.NewMatrix(1, 1, []float64{sol.Lambda})); err != nil {
		return utils.Matrix{}, err
	}
	if err := S.SetValue("Phi0", utils.NewMatrix(1, 1, []float64{sol.Phi0})); err != nil {
		return utils.Matrix{}, err
	}
	return S.Eval(eq)
}
