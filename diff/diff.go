// Package diff defines the derivative function types consumed by the
// system constructors and the differentiation collaborator interface
// that fills in any derivative the caller does not supply explicitly.
//
// Every derivative-producing system operation accepts an optional
// explicit override; if omitted, a Differentiator must be available or
// construction fails with a configuration error naming the missing
// derivative. Resolution happens once at construction time, never
// lazily per call.
package diff

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/ham"
)

// Func is a scalar field, e.g. a potential energy.
type Func func(x ham.Vector) float64

// VectorFunc is a vector field, e.g. a constraint or generator.
type VectorFunc func(x ham.Vector) ham.Vector

// MatrixFunc is a matrix field, e.g. a position-dependent metric or
// its Cholesky factor.
type MatrixFunc func(x ham.Vector) mat.Matrix

// GradFunc returns the gradient of a scalar field together with its
// value, so both can populate the cache from one call.
type GradFunc func(x ham.Vector) (grad ham.Vector, value float64)

// JacobianFunc returns the Jacobian of a vector field together with
// its value.
type JacobianFunc func(x ham.Vector) (jac *mat.Dense, value ham.Vector)

// HessianFunc returns the Hessian, gradient and value of a scalar
// field from one call.
type HessianFunc func(x ham.Vector) (hess *mat.SymDense, grad ham.Vector, value float64)

// VJPFunc returns a pullback that contracts a cotangent matrix against
// the derivative of a matrix field, together with the field's value:
// pull(M)[k] = Σ_ij M[i,j] ∂F[i,j]/∂x_k.
type VJPFunc func(x ham.Vector) (pull func(cot mat.Matrix) ham.Vector, value mat.Matrix)

// MTPFunc is the matrix-Tressian-product operator of a scalar field:
// mtp(M)[k] = Σ_ij M[i,j] ∂H[i,j]/∂x_k for Hessian H, returned along
// with the Hessian, gradient and value so all four share one cache
// population.
type MTPFunc func(x ham.Vector) (mtp func(cot mat.Matrix) ham.Vector, hess *mat.SymDense, grad ham.Vector, value float64)

// MHPFunc is the matrix-Hessian-product operator of a vector field:
// mhp(M)[k] = Σ_ij M[i,j] ∂J[i,j]/∂x_k for Jacobian J, returned with
// the Jacobian and value.
type MHPFunc func(x ham.Vector) (mhp func(cot mat.Matrix) ham.Vector, jac *mat.Dense, value ham.Vector)

// Differentiator turns plain functions into their derivative
// operators. It is the external collaborator slot of the module; the
// finite-difference Numeric implementation ships here, an AD engine
// can be plugged in from outside.
type Differentiator interface {
	GradAndValue(f Func) GradFunc
	JacobianAndValue(f VectorFunc) JacobianFunc
	HessianGradAndValue(f Func) HessianFunc
	MTPHessianGradAndValue(f Func) MTPFunc
	MHPJacobianAndValue(f VectorFunc) MHPFunc
	VJP(f MatrixFunc) VJPFunc
}
