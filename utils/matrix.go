package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

// Matrix is the field container used throughout the library. Fields sampled
// on the collocation grid, differentiation operators and Jacobian blocks are
// all held in this type. Row and column indices may be negative, indexing
// from the end: -1 is the last row/column.
type Matrix struct {
	M *mat.Dense
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{m}
	return
}

func Ones(nr, nc int) (R Matrix) {
	R = NewMatrix(nr, nc)
	data := R.RawMatrix().Data
	for i := range data {
		data[i] = 1
	}
	return
}

func Eye(n int) (R Matrix) {
	R = NewMatrix(n, n)
	for i := 0; i < n; i++ {
		R.M.Set(i, i, 1)
	}
	return
}

// Kron forms the Kronecker product of A (m x n) and B (p x q) as an
// (mp x nq) matrix. With row-major flattening of an (m x p) field, the
// product applies A on the first (radial) index and B on the second.
func Kron(A, B Matrix) (R Matrix) {
	var (
		ma, na = A.Dims()
		pb, qb = B.Dims()
	)
	R = NewMatrix(ma*pb, na*qb)
	dataR := R.RawMatrix().Data
	ncR := na * qb
	for i := 0; i < ma; i++ {
		for j := 0; j < na; j++ {
			aij := A.M.At(i, j)
			if aij == 0 {
				continue
			}
			for r := 0; r < pb; r++ {
				for s := 0; s < qb; s++ {
					dataR[(i*pb+r)*ncR+j*qb+s] = aij * B.M.At(r, s)
				}
			}
		}
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }

func (m Matrix) At(i, j int) float64 {
	var (
		nr, nc = m.Dims()
	)
	return m.M.At(lim(i, nr), lim(j, nc))
}

func (m Matrix) IsScalar() bool {
	nr, nc := m.Dims()
	return nr == 1 && nc == 1
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		data   = m.RawMatrix().Data
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, data)
	R = NewMatrix(nr, nc, dataR)
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			R.M.Set(j, i, m.M.At(i, j))
		}
	}
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.Dims()
		_, ncA = A.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return
}

func (m Matrix) Reshape(nr, nc int) (R Matrix) { // Does not change receiver
	var (
		nrM, ncM = m.Dims()
	)
	if nr*nc != nrM*ncM {
		panic(fmt.Errorf("reshape from %dx%d to %dx%d changes element count", nrM, ncM, nr, nc))
	}
	dataR := make([]float64, nr*nc)
	copy(dataR, m.RawMatrix().Data)
	R = NewMatrix(nr, nc, dataR)
	return
}

// Chainable methods below change the receiver's data in place.

func (m Matrix) Set(i, j int, val float64) Matrix {
	var (
		nr, nc = m.Dims()
	)
	m.M.Set(lim(i, nr), lim(j, nc), val)
	return m
}

func (m Matrix) Add(A Matrix) Matrix {
	var (
		dataM = m.RawMatrix().Data
		dataA = A.RawMatrix().Data
	)
	m.checkSameDims(A, "Add")
	for i, val := range dataA {
		dataM[i] += val
	}
	return m
}

func (m Matrix) Subtract(A Matrix) Matrix {
	var (
		dataM = m.RawMatrix().Data
		dataA = A.RawMatrix().Data
	)
	m.checkSameDims(A, "Subtract")
	for i, val := range dataA {
		dataM[i] -= val
	}
	return m
}

func (m Matrix) Scale(a float64) Matrix {
	var (
		data = m.RawMatrix().Data
	)
	for i := range data {
		data[i] *= a
	}
	return m
}

func (m Matrix) AddScalar(a float64) Matrix {
	var (
		data = m.RawMatrix().Data
	)
	for i := range data {
		data[i] += a
	}
	return m
}

func (m Matrix) Apply(f func(float64) float64) Matrix {
	var (
		data = m.RawMatrix().Data
	)
	for i, val := range data {
		data[i] = f(val)
	}
	return m
}

func (m Matrix) Apply2(f func(float64, float64) float64, A Matrix) Matrix {
	var (
		dataM = m.RawMatrix().Data
		dataA = A.RawMatrix().Data
	)
	m.checkSameDims(A, "Apply2")
	for i, val := range dataM {
		dataM[i] = f(val, dataA[i])
	}
	return m
}

func (m Matrix) ElMul(A Matrix) Matrix {
	var (
		dataM = m.RawMatrix().Data
		dataA = A.RawMatrix().Data
	)
	m.checkSameDims(A, "ElMul")
	for i, val := range dataA {
		dataM[i] *= val
	}
	return m
}

func (m Matrix) ElDiv(A Matrix) Matrix {
	var (
		dataM = m.RawMatrix().Data
		dataA = A.RawMatrix().Data
	)
	m.checkSameDims(A, "ElDiv")
	for i, val := range dataA {
		dataM[i] /= val
	}
	return m
}

func (m Matrix) POW(p int) Matrix {
	var (
		data = m.RawMatrix().Data
	)
	for i, val := range data {
		data[i] = POW(val, p)
	}
	return m
}

// ScaleRows multiplies row i by s[i].
func (m Matrix) ScaleRows(s []float64) Matrix {
	var (
		nr, nc = m.Dims()
		data   = m.RawMatrix().Data
	)
	if len(s) != nr {
		panic(fmt.Errorf("ScaleRows: %d factors for %d rows", len(s), nr))
	}
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			data[i*nc+j] *= s[i]
		}
	}
	return m
}

// Row returns a copy of row i as a 1 x nc matrix. Negative i indexes from
// the end, so Row(-1) is the last row.
func (m Matrix) Row(i int) (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	i = lim(i, nr)
	dataR := make([]float64, nc)
	copy(dataR, m.M.RawRowView(i))
	R = NewMatrix(1, nc, dataR)
	return
}

// Col returns a copy of column j as an nr x 1 matrix.
func (m Matrix) Col(j int) (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	j = lim(j, nc)
	R = NewMatrix(nr, 1)
	for i := 0; i < nr; i++ {
		R.M.Set(i, 0, m.M.At(i, j))
	}
	return
}

// SetRow assigns a 1 x nc matrix into row i. Negative i indexes from the end.
func (m Matrix) SetRow(i int, A Matrix) Matrix {
	var (
		nr, nc   = m.Dims()
		nrA, ncA = A.Dims()
	)
	if nrA != 1 || ncA != nc {
		panic(fmt.Errorf("SetRow: row is %dx%d, target has %d columns", nrA, ncA, nc))
	}
	m.M.SetRow(lim(i, nr), A.RawMatrix().Data)
	return m
}

func (m Matrix) Slice(I, K, J, L int) (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	if I < 0 || J < 0 || K > nr || L > nc || I >= K || J >= L {
		panic(fmt.Errorf("slice bounds [%d:%d,%d:%d] out of range for %dx%d matrix", I, K, J, L, nr, nc))
	}
	R = NewMatrix(K-I, L-J)
	for i := I; i < K; i++ {
		for j := J; j < L; j++ {
			R.M.Set(i-I, j-J, m.M.At(i, j))
		}
	}
	return
}

func (m Matrix) Min() (min float64) {
	var (
		data = m.RawMatrix().Data
	)
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

func (m Matrix) Max() (max float64) {
	var (
		data = m.RawMatrix().Data
	)
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}

func (m Matrix) MaxAbs() (max float64) {
	var (
		data = m.RawMatrix().Data
	)
	for _, val := range data {
		if math.Abs(val) > max {
			max = math.Abs(val)
		}
	}
	return
}

func (m Matrix) Sum() (sum float64) {
	var (
		data = m.RawMatrix().Data
	)
	for _, val := range data {
		sum += val
	}
	return
}

func (m Matrix) IsFinite() bool {
	var (
		data = m.RawMatrix().Data
	)
	for _, val := range data {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return false
		}
	}
	return true
}

func (m Matrix) Inverse() (R Matrix, err error) {
	var (
		nr, nc = m.Dims()
	)
	R = m.Copy()
	iPiv := make([]int, nr)
	if ok := lapack64.Getrf(R.RawMatrix(), iPiv); !ok {
		err = fmt.Errorf("unable to invert, matrix is singular")
		return
	}
	work := make([]float64, nr*nc)
	if ok := lapack64.Getri(R.RawMatrix(), iPiv, work, nr*nc); !ok {
		err = fmt.Errorf("unable to invert, matrix is singular")
	}
	return
}

func (m Matrix) checkSameDims(A Matrix, op string) {
	var (
		nr, nc   = m.Dims()
		nrA, ncA = A.Dims()
	)
	if nr != nrA || nc != ncA {
		panic(fmt.Errorf("%s: dimension mismatch %dx%d vs %dx%d", op, nr, nc, nrA, ncA))
	}
}

func lim(i, imax int) int {
	if i < 0 {
		return imax + i // Support indexing from end, -1 is imax-1
	}
	return i
}
