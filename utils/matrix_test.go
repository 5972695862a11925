package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	// Transpose
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		mNr, mNc := M.Dims()
		A := M.Transpose()
		aNr, aNc := A.Dims()
		assert.Equal(t, aNc, mNr)
		assert.Equal(t, aNr, mNc)
		assert.Equal(t, A.RawMatrix().Data, []float64{1, 4, 2, 5, 3, 6})
	}
	// Negative indexing reads from the end
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		assert.Equal(t, 6., M.At(-1, -1))
		assert.Equal(t, 4., M.At(-1, 0))
		assert.Equal(t, 3., M.At(0, -1))
		M.Set(-1, -1, 10)
		assert.Equal(t, 10., M.At(1, 2))
	}
	// Row / Col / SetRow
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		assert.Equal(t, M.Row(-1), NewMatrix(1, 3, []float64{4, 5, 6}))
		assert.Equal(t, M.Col(1), NewMatrix(2, 1, []float64{2, 5}))
		// Row copies, mutating it leaves M alone
		R := M.Row(0)
		R.Scale(100)
		assert.Equal(t, 1., M.At(0, 0))
		M.SetRow(-1, NewMatrix(1, 3, []float64{7, 8, 9}))
		assert.Equal(t, 9., M.At(1, 2))
	}
	// Chainable in-place arithmetic
	{
		M := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		M.Scale(2).AddScalar(1)
		assert.Equal(t, M, NewMatrix(2, 2, []float64{3, 5, 7, 9}))
		M.Subtract(Ones(2, 2)).ElMul(NewMatrix(2, 2, []float64{1, 0, 0, 1}))
		assert.Equal(t, M, NewMatrix(2, 2, []float64{2, 0, 0, 8}))
		assert.True(t, near(M.Sum(), 10))
		assert.True(t, near(M.Max(), 8))
		assert.True(t, near(M.Min(), 0))
		D := NewMatrix(2, 2, []float64{8, 4, 2, 1}).ElDiv(NewMatrix(2, 2, []float64{2, 4, 1, 1}))
		assert.Equal(t, D, NewMatrix(2, 2, []float64{4, 1, 2, 1}))
	}
	// Copy does not alias
	{
		M := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		A := M.Copy().Scale(10)
		assert.Equal(t, 1., M.At(0, 0))
		assert.Equal(t, 10., A.At(0, 0))
	}
	// Mul and Reshape
	{
		A := NewMatrix(2, 3, []float64{
			1, 0, 1,
			0, 1, 0,
		})
		x := NewMatrix(3, 1, []float64{1, 2, 3})
		assert.Equal(t, A.Mul(x), NewMatrix(2, 1, []float64{4, 2}))
		assert.Equal(t, x.Reshape(1, 3), NewMatrix(1, 3, []float64{1, 2, 3}))
	}
	// Kron applies the left factor on rows, right on columns
	{
		A := NewMatrix(2, 2, []float64{
			0, 1,
			1, 0,
		})
		K := Kron(A, Eye(2))
		assert.Equal(t, K, NewMatrix(4, 4, []float64{
			0, 0, 1, 0,
			0, 0, 0, 1,
			1, 0, 0, 0,
			0, 1, 0, 0,
		}))
		// Flattened 2x2 field [a b; c d] with rows swapped is [c d; a b]
		f := NewMatrix(4, 1, []float64{1, 2, 3, 4})
		assert.Equal(t, K.Mul(f), NewMatrix(4, 1, []float64{3, 4, 1, 2}))
	}
	// ScaleRows
	{
		M := Ones(3, 2).ScaleRows([]float64{1, 2, 3})
		assert.Equal(t, M, NewMatrix(3, 2, []float64{1, 1, 2, 2, 3, 3}))
	}
	// Inverse
	{
		A := NewMatrix(2, 2, []float64{
			4, 7,
			2, 6,
		})
		Ainv, err := A.Inverse()
		assert.NoError(t, err)
		AAinv := A.Mul(Ainv)
		assert.InDeltaSlice(t, Eye(2).RawMatrix().Data, AAinv.RawMatrix().Data, 1.e-12)
		_, err = NewMatrix(2, 2, []float64{1, 2, 2, 4}).Inverse()
		assert.Error(t, err)
	}
	// IsFinite
	{
		M := Ones(2, 2)
		assert.True(t, M.IsFinite())
		M.Set(0, 1, math.NaN())
		assert.False(t, M.IsFinite())
		M.Set(0, 1, math.Inf(1))
		assert.False(t, M.IsFinite())
	}
}

func TestVector(t *testing.T) {
	{
		v := NewVector(3, []float64{1, 2, 3})
		assert.Equal(t, 3, v.Len())
		assert.Equal(t, 3., v.AtVec(-1))
		v.Scale(2).AddScalar(1)
		assert.Equal(t, v, NewVector(3, []float64{3, 5, 7}))
		assert.True(t, near(v.Min(), 3))
		assert.True(t, near(v.Max(), 7))
	}
	// AsRow / AsCol / AsDiag
	{
		v := NewVector(2, []float64{2, 3})
		assert.Equal(t, v.AsRow(), NewMatrix(1, 2, []float64{2, 3}))
		assert.Equal(t, v.AsCol(), NewMatrix(2, 1, []float64{2, 3}))
		assert.Equal(t, v.AsDiag(), NewMatrix(2, 2, []float64{2, 0, 0, 3}))
	}
	// Elementwise ops
	{
		v := NewVector(2, []float64{1, 2}).Mul(NewVector(2, []float64{3, 4}))
		assert.Equal(t, v, NewVector(2, []float64{3, 8}))
		v.Add(NewVector(2, []float64{1, 1})).Subtract(NewVector(2, []float64{0, 9}))
		assert.Equal(t, v, NewVector(2, []float64{4, 0}))
	}
}

func TestPOW(t *testing.T) {
	assert.Equal(t, 8., POW(2, 3))
	assert.Equal(t, 1., POW(5, 0))
	assert.True(t, near(POW(2, -2), 0.25))
	assert.Equal(t, NewMatrix(1, 3, []float64{1, 2, 3}).POW(2), NewMatrix(1, 3, []float64{1, 4, 9}))
}

func near(a, b float64) (l bool) {
	if math.Abs(a-b) <= 1.e-08*math.Max(math.Abs(a), 1) {
		l = true
	}
	return
}
