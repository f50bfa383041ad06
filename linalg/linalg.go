// Package linalg wraps the dense and triangular primitives this module
// needs behind Vector-friendly helpers: Cholesky factorization,
// triangular and Cholesky-based solves, and symmetric
// eigendecomposition. gonum does the numerical work.
package linalg

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/ham"
)

// Numerical failure modes surfaced to callers. Neither is retried
// anywhere; ill-conditioned inputs are not specially guarded.
var (
	// ErrNotPositiveDefinite indicates a Cholesky factorization of a
	// matrix that is not positive definite.
	ErrNotPositiveDefinite = errors.New("linalg: matrix not positive definite")

	// ErrEigenFailed indicates a symmetric eigendecomposition that did
	// not converge.
	ErrEigenFailed = errors.New("linalg: symmetric eigendecomposition failed")
)

// CholeskyLower factorizes m = L Lᵀ and returns the lower-triangular
// factor L, or ErrNotPositiveDefinite.
func CholeskyLower(m mat.Symmetric) (*mat.TriDense, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(m); !ok {
		return nil, ErrNotPositiveDefinite
	}
	l := mat.NewTriDense(m.SymmetricDim(), mat.Lower, nil)
	ch.LTo(l)
	return l, nil
}

// SolveTriVec solves L x = b, or Lᵀ x = b when trans is set, for a
// lower-triangular L.
func SolveTriVec(l *mat.TriDense, trans bool, b ham.Vector) ham.Vector {
	n := len(b)
	dst := mat.NewDense(n, 1, nil)
	// Condition warnings are discarded: near-singular factors surface
	// as non-finite values downstream.
	_ = l.SolveTo(dst, trans, mat.NewVecDense(n, b))
	out := make(ham.Vector, n)
	for i := 0; i < n; i++ {
		out[i] = dst.At(i, 0)
	}
	return out
}

// SolveCholVec solves (L Lᵀ) x = b given the lower Cholesky factor L,
// via two triangular solves.
func SolveCholVec(l *mat.TriDense, b ham.Vector) ham.Vector {
	return SolveTriVec(l, true, SolveTriVec(l, false, b))
}

// SolveCholMat solves (L Lᵀ) X = B column-wise given the lower
// Cholesky factor L.
func SolveCholMat(l *mat.TriDense, b mat.Matrix) *mat.Dense {
	r, c := b.Dims()
	y := mat.NewDense(r, c, nil)
	_ = l.SolveTo(y, false, b)
	x := mat.NewDense(r, c, nil)
	_ = l.SolveTo(x, true, y)
	return x
}

// LogDetTri returns the sum of log diagonal entries of a triangular
// factor, i.e. log det L.
func LogDetTri(l *mat.TriDense) float64 {
	n, _ := l.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Log(l.At(i, i))
	}
	return sum
}

// EigSym returns the eigenvalues of m in ascending order together with
// the matrix whose columns are the matching orthonormal eigenvectors.
func EigSym(m mat.Symmetric) ([]float64, *mat.Dense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return nil, nil, ErrEigenFailed
	}
	vals := eig.Values(nil)
	n := m.SymmetricDim()
	vecs := mat.NewDense(n, n, nil)
	eig.VectorsTo(vecs)
	return vals, vecs, nil
}

// MulVec returns a · x as a Vector.
func MulVec(a mat.Matrix, x ham.Vector) ham.Vector {
	r, _ := a.Dims()
	dst := mat.NewVecDense(r, nil)
	dst.MulVec(a, mat.NewVecDense(len(x), x))
	return vecData(dst)
}

// MulVecTrans returns aᵀ · x as a Vector.
func MulVecTrans(a mat.Matrix, x ham.Vector) ham.Vector {
	_, c := a.Dims()
	dst := mat.NewVecDense(c, nil)
	dst.MulVec(a.T(), mat.NewVecDense(len(x), x))
	return vecData(dst)
}

// Outer returns x yᵀ.
func Outer(x, y ham.Vector) *mat.Dense {
	m := mat.NewDense(len(x), len(y), nil)
	m.Outer(1, mat.NewVecDense(len(x), x), mat.NewVecDense(len(y), y))
	return m
}

// SymFromMatrix copies a (numerically) symmetric matrix into a
// SymDense, averaging the off-diagonal pairs.
func SymFromMatrix(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, m.At(i, i))
		for j := i + 1; j < n; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return sym
}

// TriFromMatrix copies the lower triangle of m into a TriDense.
func TriFromMatrix(m mat.Matrix) *mat.TriDense {
	n, _ := m.Dims()
	tri := mat.NewTriDense(n, mat.Lower, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			tri.SetTri(i, j, m.At(i, j))
		}
	}
	return tri
}

// Identity returns the n×n identity.
func Identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func vecData(v *mat.VecDense) ham.Vector {
	n := v.Len()
	out := make(ham.Vector, n)
	for i := 0; i < n; i++ {
		out[i] = v.AtVec(i)
	}
	return out
}
