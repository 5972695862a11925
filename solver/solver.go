// Package solver assembles the global linear system of one Newton
// iteration from per-variable Jacobian blocks, boundary rows and right
// hand sides, and solves it for the correction vectors.
package solver

import (
	"errors"
	"fmt"

	"github.com/astrosolve/spectral/utils"
)

var (
	ErrNotInitialized = errors.New("solver: not initialized")
	ErrUnknownVar     = errors.New("solver: unknown variable")
	ErrRedeclared     = errors.New("solver: variable already registered")
	ErrEmptySystem    = errors.New("solver: no contributions registered")
	ErrAssembly       = errors.New("solver: inconsistent assembly")
	ErrNonFinite      = errors.New("solver: non-finite entry in assembled system")
	ErrSingular       = errors.New("solver: assembled system is singular")
	ErrNotSolved      = errors.New("solver: no solution available")
)

type bcSide uint8

const (
	bot1 bcSide = iota // bottom row of domain d, values from domain d-1
	bot2               // bottom row of domain d, values from domain d
	top1               // top row of domain d, values from domain d
	top2               // top row of domain d, values from domain d+1
)

type bcKind uint8

const (
	bcValue bcKind = iota // weight multiplies the variable value
	bcDeriv               // weight multiplies an operator row applied to the variable
)

type bcEntry struct {
	side    bcSide
	kind    bcKind
	domain  int
	eq, wrt string
	w       utils.Matrix // 1 x nt per-theta weights
	l       utils.Matrix // 1 x npts[src] operator row, bcDeriv only
}

// Solver accumulates the contributions of one Newton iteration between
// Reset and Solve. Field equations occupy nr*nt rows; equations declared
// only through boundary entries are scalar closures with a single row.
// Each unknown's size equals its own equation's row count, which keeps the
// assembled system square by construction.
type Solver struct {
	nd, nv int
	nt     int
	names  []string
	nrd    []int // radial rows per domain
	nr     int

	initDone bool
	nrSet    bool

	blocks    map[string]map[string]utils.Matrix
	blockRows map[string]int
	bcs       []bcEntry
	bcRows    map[string]map[int]struct{}
	rhs       map[string]utils.Matrix
	sol       map[string]utils.Matrix
}

func New() *Solver {
	return &Solver{nt: 1}
}

// Init fixes the domain and variable counts. The only supported mode is
// "full" (dense assembly of the complete system).
func (s *Solver) Init(nDomains, nVars int, mode string) error {
	if nDomains < 1 || nVars < 1 {
		return fmt.Errorf("%w: %d domains, %d variables", ErrAssembly, nDomains, nVars)
	}
	if mode != "full" {
		return fmt.Errorf("%w: unsupported mode %q", ErrAssembly, mode)
	}
	s.nd, s.nv = nDomains, nVars
	s.initDone = true
	s.Reset()
	return nil
}

// Regvar declares a named unknown. Names must match the symbolic
// registrations used to produce Jacobian contributions.
func (s *Solver) Regvar(name string) error {
	if !s.initDone {
		return ErrNotInitialized
	}
	for _, n := range s.names {
		if n == name {
			return fmt.Errorf("%w: %q", ErrRedeclared, name)
		}
	}
	if len(s.names) == s.nv {
		return fmt.Errorf("%w: more than %d variables", ErrAssembly, s.nv)
	}
	s.names = append(s.names, name)
	return nil
}

// SetNr fixes the per-domain radial row allocation.
func (s *Solver) SetNr(counts []int) error {
	if !s.initDone {
		return ErrNotInitialized
	}
	if len(counts) != s.nd {
		return fmt.Errorf("%w: %d row counts for %d domains", ErrAssembly, len(counts), s.nd)
	}
	s.nrd = make([]int, s.nd)
	s.nr = 0
	for d, n := range counts {
		if n < 1 {
			return fmt.Errorf("%w: domain %d has %d rows", ErrAssembly, d, n)
		}
		s.nrd[d] = n
		s.nr += n
	}
	s.nrSet = true
	return nil
}

// SetNt fixes the angular point count of field unknowns. Defaults to 1.
func (s *Solver) SetNt(nt int) error {
	if nt < 1 {
		return fmt.Errorf("%w: nt = %d", ErrAssembly, nt)
	}
	s.nt = nt
	return nil
}

// Reset discards every contribution, right hand side and previous
// solution. It must be called at the start of each Newton iteration.
func (s *Solver) Reset() {
	s.blocks = make(map[string]map[string]utils.Matrix)
	s.blockRows = make(map[string]int)
	s.bcs = nil
	s.bcRows = make(map[string]map[int]struct{})
	s.rhs = make(map[string]utils.Matrix)
	s.sol = nil
}

func (s *Solver) checkVar(name string) error {
	for _, n := range s.names {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownVar, name)
}

// AddMatrix accumulates a bulk Jacobian block for equation eq with respect
// to variable wrt. Blocks for the same pair add together.
func (s *Solver) AddMatrix(eq, wrt string, J utils.Matrix) error {
	if !s.initDone {
		return ErrNotInitialized
	}
	if err := s.checkVar(eq); err != nil {
		return err
	}
	if err := s.checkVar(wrt); err != nil {
		return err
	}
	nrJ, _ := J.Dims()
	if rows, ok := s.blockRows[eq]; ok && rows != nrJ {
		return fmt.Errorf("%w: equation %q given %d rows, already has %d", ErrAssembly, eq, nrJ, rows)
	}
	s.blockRows[eq] = nrJ
	row, ok := s.blocks[eq]
	if !ok {
		row = make(map[string]utils.Matrix)
		s.blocks[eq] = row
	}
	if prev, ok := row[wrt]; ok {
		pr, pc := prev.Dims()
		jr, jc := J.Dims()
		if pr != jr || pc != jc {
			return fmt.Errorf("%w: block (%q,%q) is %dx%d, previous was %dx%d", ErrAssembly, eq, wrt, jr, jc, pr, pc)
		}
		prev.Add(J)
	} else {
		row[wrt] = J.Copy()
	}
	return nil
}

// Boundary-condition registration. The D forms are value-based: the 1 x nt
// weight multiplies the variable's boundary value directly. The L forms are
// derivative-based: the weight multiplies the operator row l applied to the
// variable over the source domain. Entries targeting the same row
// accumulate; any entry marks its row as a boundary row, which drops the
// bulk Jacobian rows there at assembly.

func (s *Solver) BCBot2AddD(d int, eq, wrt string, w utils.Matrix) error {
	return s.addBC(bot2, bcValue, d, eq, wrt, w, utils.Matrix{})
}

func (s *Solver) BCBot2AddL(d int, eq, wrt string, w, l utils.Matrix) error {
	return s.addBC(bot2, bcDeriv, d, eq, wrt, w, l)
}

func (s *Solver) BCBot1AddD(d int, eq, wrt string, w utils.Matrix) error {
	return s.addBC(bot1, bcValue, d, eq, wrt, w, utils.Matrix{})
}

func (s *Solver) BCBot1AddL(d int, eq, wrt string, w, l utils.Matrix) error {
	return s.addBC(bot1, bcDeriv, d, eq, wrt, w, l)
}

func (s *Solver) BCTop1AddD(d int, eq, wrt string, w utils.Matrix) error {
	return s.addBC(top1, bcValue, d, eq, wrt, w, utils.Matrix{})
}

func (s *Solver) BCTop1AddL(d int, eq, wrt string, w, l utils.Matrix) error {
	return s.addBC(top1, bcDeriv, d, eq, wrt, w, l)
}

func (s *Solver) BCTop2AddD(d int, eq, wrt string, w utils.Matrix) error {
	return s.addBC(top2, bcValue, d, eq, wrt, w, utils.Matrix{})
}

func (s *Solver) BCTop2AddL(d int, eq, wrt string, w, l utils.Matrix) error {
	return s.addBC(top2, bcDeriv, d, eq, wrt, w, l)
}

func (s *Solver) addBC(side bcSide, kind bcKind, d int, eq, wrt string, w, l utils.Matrix) error {
	if !s.initDone {
		return ErrNotInitialized
	}
	if !s.nrSet {
		return fmt.Errorf("%w: SetNr must precede boundary registration", ErrAssembly)
	}
	if err := s.checkVar(eq); err != nil {
		return err
	}
	if err := s.checkVar(wrt); err != nil {
		return err
	}
	if d < 0 || d >= s.nd {
		return fmt.Errorf("%w: domain %d of %d", ErrAssembly, d, s.nd)
	}
	if side == bot1 && d == 0 {
		return fmt.Errorf("%w: bot1 has no domain below domain 0", ErrAssembly)
	}
	if side == top2 && d == s.nd-1 {
		return fmt.Errorf("%w: top2 has no domain above domain %d", ErrAssembly, d)
	}
	if wr, wc := w.Dims(); wr != 1 || wc != s.nt {
		return fmt.Errorf("%w: weight is %dx%d, want 1x%d", ErrAssembly, wr, wc, s.nt)
	}
	e := bcEntry{side: side, kind: kind, domain: d, eq: eq, wrt: wrt, w: w.Copy()}
	if kind == bcDeriv {
		e.l = l.Copy()
	}
	s.bcs = append(s.bcs, e)
	if s.bcRows[eq] == nil {
		s.bcRows[eq] = make(map[int]struct{})
	}
	s.bcRows[eq][s.targetRow(e)] = struct{}{}
	return nil
}

func (s *Solver) domStart(d int) (off int) {
	for i := 0; i < d; i++ {
		off += s.nrd[i]
	}
	return
}

// targetRow is the global radial row whose equation the entry overrides.
func (s *Solver) targetRow(e bcEntry) int {
	switch e.side {
	case bot1, bot2:
		return s.domStart(e.domain)
	default:
		return s.domStart(e.domain) + s.nrd[e.domain] - 1
	}
}

// sourceRow and sourceDomain locate the variable values the entry reads.
func (s *Solver) sourceRow(e bcEntry) int {
	switch e.side {
	case bot2:
		return s.domStart(e.domain)
	case bot1:
		return s.domStart(e.domain) - 1
	case top1:
		return s.domStart(e.domain) + s.nrd[e.domain] - 1
	default: // top2
		return s.domStart(e.domain) + s.nrd[e.domain]
	}
}

func (s *Solver) sourceDomain(e bcEntry) int {
	switch e.side {
	case bot1:
		return e.domain - 1
	case top2:
		return e.domain + 1
	default:
		return e.domain
	}
}

// SetRHS stores the right-hand-side vector for an equation. Field
// equations take an nr x nt matrix; scalar closure equations take 1x1 or
// 1 x nt (summed over theta, matching the accumulation of their boundary
// weights).
func (s *Solver) SetRHS(eq string, rhs utils.Matrix) error {
	if !s.initDone {
		return ErrNotInitialized
	}
	if err := s.checkVar(eq); err != nil {
		return err
	}
	s.rhs[eq] = rhs.Copy()
	return nil
}

// GetVar returns the correction vector for an unknown after a successful
// Solve, reshaped to the unknown's nr x nt (or 1x1) form.
func (s *Solver) GetVar(name string) (utils.Matrix, error) {
	if err := s.checkVar(name); err != nil {
		return utils.Matrix{}, err
	}
	if s.sol == nil {
		return utils.Matrix{}, ErrNotSolved
	}
	return s.sol[name], nil
}
