package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Vector wraps a gonum VecDense with the chainable methods used by the
// node and quadrature constructors.
type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) (R Vector) {
	var v *mat.VecDense
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			err := fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v", n, len(dataO[0]))
			panic(err)
		}
		v = mat.NewVecDense(n, dataO[0])
	} else {
		v = mat.NewVecDense(n, make([]float64, n))
	}
	R = Vector{v}
	return
}

func (v Vector) Len() int                  { return v.V.Len() }
func (v Vector) RawVector() blas64.Vector  { return v.V.RawVector() }
func (v Vector) AtVec(i int) float64       { return v.V.AtVec(lim(i, v.Len())) }
func (v Vector) SetVec(i int, val float64) { v.V.SetVec(lim(i, v.Len()), val) }

func (v Vector) Copy() (R Vector) {
	var (
		data  = v.RawVector().Data
		dataR = make([]float64, v.Len())
	)
	copy(dataR, data)
	R = NewVector(v.Len(), dataR)
	return
}

// Set fills the vector with a constant value.
func (v Vector) Set(val float64) Vector {
	var (
		data = v.RawVector().Data
	)
	for i := range data {
		data[i] = val
	}
	return v
}

func (v Vector) Scale(a float64) Vector {
	var (
		data = v.RawVector().Data
	)
	for i := range data {
		data[i] *= a
	}
	return v
}

func (v Vector) AddScalar(a float64) Vector {
	var (
		data = v.RawVector().Data
	)
	for i := range data {
		data[i] += a
	}
	return v
}

func (v Vector) Apply(f func(float64) float64) Vector {
	var (
		data = v.RawVector().Data
	)
	for i, val := range data {
		data[i] = f(val)
	}
	return v
}

func (v Vector) POW(p int) Vector {
	var (
		data = v.RawVector().Data
	)
	for i, val := range data {
		data[i] = POW(val, p)
	}
	return v
}

func (v Vector) Add(a Vector) Vector {
	var (
		data  = v.RawVector().Data
		dataA = a.RawVector().Data
	)
	for i := range data {
		data[i] += dataA[i]
	}
	return v
}

func (v Vector) Subtract(a Vector) Vector {
	var (
		data  = v.RawVector().Data
		dataA = a.RawVector().Data
	)
	for i := range data {
		data[i] -= dataA[i]
	}
	return v
}

// Mul multiplies elementwise in place.
func (v Vector) Mul(a Vector) Vector {
	var (
		data  = v.RawVector().Data
		dataA = a.RawVector().Data
	)
	for i := range data {
		data[i] *= dataA[i]
	}
	return v
}

func (v Vector) Min() (min float64) {
	var (
		data = v.RawVector().Data
	)
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	var (
		data = v.RawVector().Data
	)
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}

// AsRow copies the vector into a 1 x n matrix.
func (v Vector) AsRow() (R Matrix) {
	var (
		n     = v.Len()
		dataR = make([]float64, n)
	)
	copy(dataR, v.RawVector().Data)
	R = NewMatrix(1, n, dataR)
	return
}

// AsCol copies the vector into an n x 1 matrix.
func (v Vector) AsCol() (R Matrix) {
	var (
		n     = v.Len()
		dataR = make([]float64, n)
	)
	copy(dataR, v.RawVector().Data)
	R = NewMatrix(n, 1, dataR)
	return
}

// AsDiag places the vector on the diagonal of an n x n matrix.
func (v Vector) AsDiag() (R Matrix) {
	var (
		n = v.Len()
	)
	R = NewMatrix(n, n)
	for i := 0; i < n; i++ {
		R.M.Set(i, i, v.V.AtVec(i))
	}
	return
}
