package linalg

import "gonum.org/v1/gonum/mat"

// VechLen returns n(n+1)/2, the length of the half-vectorization of an n×n
// symmetric matrix.
func VechLen(n int) int { return n * (n + 1) / 2 }

// Vech stacks the lower triangle of a (row-major: (0,0), (1,0), (1,1), ...).
func Vech(a mat.Symmetric) []float64 {
	n := a.SymmetricDim()
	out := make([]float64, 0, VechLen(n))
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			out = append(out, a.At(i, j))
		}
	}

	return out
}

// Unvech is the inverse of Vech. len(v) must equal VechLen(n).
func Unvech(v []float64, n int) (*mat.SymDense, error) {
	if len(v) != VechLen(n) {
		return nil, linalgErrorf(opUnvech, ErrDimensionMismatch)
	}
	out := mat.NewSymDense(n, nil)
	k := 0
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			out.SetSym(i, j, v[k])
			k++
		}
	}

	return out, nil
}
