package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/astrosolve/spectral/utils"
)

// Solve assembles and solves the global system. Bulk Jacobian rows at
// boundary positions are dropped and replaced by the registered boundary
// contributions before the factorization.
func (s *Solver) Solve() (err error) {
	if !s.initDone {
		return ErrNotInitialized
	}
	if !s.nrSet {
		return fmt.Errorf("%w: SetNr not called", ErrAssembly)
	}
	if len(s.names) != s.nv {
		return fmt.Errorf("%w: %d of %d variables registered", ErrAssembly, len(s.names), s.nv)
	}
	if len(s.blocks) == 0 && len(s.bcs) == 0 {
		return ErrEmptySystem
	}

	var (
		nField    = s.nr * s.nt
		rows      = make(map[string]int, s.nv)
		rowOffset = make(map[string]int, s.nv)
		total     int
	)
	for _, name := range s.names {
		if r, ok := s.blockRows[name]; ok {
			rows[name] = r
		} else {
			rows[name] = 1 // closure equation declared through boundary entries
		}
		rowOffset[name] = total
		total += rows[name]
	}
	// Unknown sizes equal their own equation's row count; column offsets
	// therefore coincide with row offsets and the system is square.
	size, colOffset := rows, rowOffset

	for eq, row := range s.blocks {
		for wrt, J := range row {
			if _, nc := J.Dims(); nc != size[wrt] {
				return fmt.Errorf("%w: block (%q,%q) has %d columns, variable %q has %d unknowns",
					ErrAssembly, eq, wrt, nc, wrt, size[wrt])
			}
		}
	}
	for _, name := range s.names {
		if _, ok := s.rhs[name]; !ok {
			return fmt.Errorf("%w: no right hand side for %q", ErrAssembly, name)
		}
	}

	A := utils.NewMatrix(total, total)
	b := make([]float64, total)

	// Bulk Jacobian blocks.
	for eq, row := range s.blocks {
		ro := rowOffset[eq]
		for wrt, J := range row {
			co := colOffset[wrt]
			nrJ, ncJ := J.Dims()
			for i := 0; i < nrJ; i++ {
				for j := 0; j < ncJ; j++ {
					if v := J.At(i, j); v != 0 {
						A.Set(ro+i, co+j, A.At(ro+i, co+j)+v)
					}
				}
			}
		}
	}

	// Drop the bulk rows at boundary positions.
	for eq, marked := range s.bcRows {
		ro := rowOffset[eq]
		for gr := range marked {
			if rows[eq] == nField {
				for j := 0; j < s.nt; j++ {
					zeroRow(A, ro+gr*s.nt+j)
				}
			} else {
				zeroRow(A, ro)
			}
		}
	}

	// Boundary contributions, additive.
	for _, e := range s.bcs {
		if err = s.applyBC(A, e, rows, rowOffset, colOffset, size); err != nil {
			return
		}
	}

	// Right hand sides.
	for _, name := range s.names {
		r := s.rhs[name]
		nrR, ncR := r.Dims()
		ro := rowOffset[name]
		if rows[name] == nField {
			if nrR != s.nr || ncR != s.nt {
				return fmt.Errorf("%w: rhs for %q is %dx%d, want %dx%d",
					ErrAssembly, name, nrR, ncR, s.nr, s.nt)
			}
			copy(b[ro:ro+nField], r.RawMatrix().Data)
		} else {
			if nrR != 1 || (ncR != 1 && ncR != s.nt) {
				return fmt.Errorf("%w: rhs for %q is %dx%d, want 1x1 or 1x%d",
					ErrAssembly, name, nrR, ncR, s.nt)
			}
			b[ro] = r.Sum()
		}
	}

	if !A.IsFinite() {
		return ErrNonFinite
	}
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}

	// Equilibrate: scale every row to unit maximum. Equation rows can
	// differ by many orders of magnitude (angular operator rows next to
	// the center), which otherwise wrecks the conditioning of the
	// factorization.
	for i := 0; i < total; i++ {
		var rowMax float64
		for j := 0; j < total; j++ {
			if v := math.Abs(A.At(i, j)); v > rowMax {
				rowMax = v
			}
		}
		if rowMax > 0 {
			inv := 1 / rowMax
			for j := 0; j < total; j++ {
				if v := A.At(i, j); v != 0 {
					A.Set(i, j, v*inv)
				}
			}
			b[i] *= inv
		}
	}

	var lu mat.LU
	lu.Factorize(A.M)
	x := mat.NewVecDense(total, nil)
	if err = lu.SolveVecTo(x, false, mat.NewVecDense(total, b)); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}

	s.sol = make(map[string]utils.Matrix, s.nv)
	xd := x.RawVector().Data
	for _, name := range s.names {
		ro := rowOffset[name]
		if rows[name] == nField {
			seg := make([]float64, nField)
			copy(seg, xd[ro:ro+nField])
			s.sol[name] = utils.NewMatrix(s.nr, s.nt, seg)
		} else {
			s.sol[name] = utils.NewMatrix(1, 1, []float64{xd[ro]})
		}
	}
	return nil
}

func (s *Solver) applyBC(A utils.Matrix, e bcEntry, rows, rowOffset, colOffset, size map[string]int) error {
	var (
		nField   = s.nr * s.nt
		ro       = rowOffset[e.eq]
		co       = colOffset[e.wrt]
		eqField  = rows[e.eq] == nField
		wrtField = size[e.wrt] == nField
		target   = s.targetRow(e)
		src      = s.sourceRow(e)
		srcDom   = s.sourceDomain(e)
	)
	if e.kind == bcDeriv && wrtField {
		if lr, lc := e.l.Dims(); lr != 1 || lc != s.nrd[srcDom] {
			return fmt.Errorf("%w: operator row is %dx%d, domain %d has %d points",
				ErrAssembly, lr, lc, srcDom, s.nrd[srcDom])
		}
	}
	for j := 0; j < s.nt; j++ {
		wj := e.w.At(0, j)
		sysRow := ro
		if eqField {
			sysRow = ro + target*s.nt + j
		}
		switch {
		case e.kind == bcValue && wrtField:
			col := co + src*s.nt + j
			A.Set(sysRow, col, A.At(sysRow, col)+wj)
		case e.kind == bcValue:
			A.Set(sysRow, co, A.At(sysRow, co)+wj)
		case wrtField: // bcDeriv
			st := s.domStart(srcDom)
			for k := 0; k < s.nrd[srcDom]; k++ {
				col := co + (st+k)*s.nt + j
				A.Set(sysRow, col, A.At(sysRow, col)+wj*e.l.At(0, k))
			}
		default: // bcDeriv against a scalar unknown
			A.Set(sysRow, co, A.At(sysRow, co)+wj*e.l.At(0, 0))
		}
	}
	return nil
}

func zeroRow(A utils.Matrix, i int) {
	_, nc := A.Dims()
	for j := 0; j < nc; j++ {
		A.Set(i, j, 0)
	}
}
