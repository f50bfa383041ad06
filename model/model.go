// Package model provides example target distributions with analytic
// derivatives: negative log-densities usable as the potential energy
// of any system variant, plus their gradients and Hessians for the
// variants that need them.
package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/ham"
	"github.com/hmclab/hamgeo/linalg"
)

// Target is a negative log-density with its analytic gradient. The
// gradient functions return the value too, so systems can populate
// both cache entries from one call.
type Target interface {
	PotEnergy(x ham.Vector) float64
	GradPotEnergy(x ham.Vector) (ham.Vector, float64)
}

// HessianTarget is implemented by targets that also carry an analytic
// Hessian, as the SoftAbs system variant requires.
type HessianTarget interface {
	Target
	HessPotEnergy(x ham.Vector) (*mat.SymDense, ham.Vector, float64)
}

// StandardGaussian is the unit-covariance Gaussian target.
type StandardGaussian struct{}

func (StandardGaussian) PotEnergy(x ham.Vector) float64 {
	return 0.5 * x.Dot(x)
}

func (g StandardGaussian) GradPotEnergy(x ham.Vector) (ham.Vector, float64) {
	return x.Clone(), g.PotEnergy(x)
}

// HessPotEnergy is the identity for any position.
func (StandardGaussian) HessPotEnergy(x ham.Vector) (*mat.SymDense, ham.Vector, float64) {
	n := len(x)
	hess := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		hess.SetSym(i, i, 1)
	}
	return hess, x.Clone(), 0.5 * x.Dot(x)
}

// Gaussian is a zero-mean Gaussian target with dense covariance.
type Gaussian struct {
	prec *mat.Dense
}

// NewGaussian builds the target from its covariance matrix, failing if
// the covariance is not positive definite.
func NewGaussian(cov *mat.SymDense) (*Gaussian, error) {
	l, err := linalg.CholeskyLower(cov)
	if err != nil {
		return nil, err
	}
	n := cov.SymmetricDim()
	return &Gaussian{prec: linalg.SolveCholMat(l, linalg.Identity(n))}, nil
}

// Precision returns Σ⁻¹.
func (g *Gaussian) Precision() *mat.Dense { return g.prec }

func (g *Gaussian) PotEnergy(x ham.Vector) float64 {
	return 0.5 * x.Dot(linalg.MulVec(g.prec, x))
}

func (g *Gaussian) GradPotEnergy(x ham.Vector) (ham.Vector, float64) {
	grad := linalg.MulVec(g.prec, x)
	return grad, 0.5 * x.Dot(grad)
}

func (g *Gaussian) HessPotEnergy(x ham.Vector) (*mat.SymDense, ham.Vector, float64) {
	grad := linalg.MulVec(g.prec, x)
	return linalg.SymFromMatrix(g.prec), grad, 0.5 * x.Dot(grad)
}

// Rosenbrock is the 2-dimensional Rosenbrock density
// pot(x) = (a − x₁)² + b(x₂ − x₁²)², the standard banana-shaped
// stress test for position-dependent metrics.
type Rosenbrock struct {
	A, B float64
}

func NewRosenbrock() *Rosenbrock {
	return &Rosenbrock{A: 1.0, B: 100.0}
}

func (r *Rosenbrock) PotEnergy(x ham.Vector) float64 {
	d := x[1] - x[0]*x[0]
	return (r.A-x[0])*(r.A-x[0]) + r.B*d*d
}

func (r *Rosenbrock) GradPotEnergy(x ham.Vector) (ham.Vector, float64) {
	d := x[1] - x[0]*x[0]
	grad := ham.Vector{
		-2*(r.A-x[0]) - 4*r.B*x[0]*d,
		2 * r.B * d,
	}
	return grad, (r.A-x[0])*(r.A-x[0]) + r.B*d*d
}

func (r *Rosenbrock) HessPotEnergy(x ham.Vector) (*mat.SymDense, ham.Vector, float64) {
	hess := mat.NewSymDense(2, nil)
	hess.SetSym(0, 0, 2-4*r.B*x[1]+12*r.B*x[0]*x[0])
	hess.SetSym(0, 1, -4*r.B*x[0])
	hess.SetSym(1, 1, 2*r.B)
	grad, val := r.GradPotEnergy(x)
	return hess, grad, val
}

// DoubleWell is a product of bistable wells,
// pot(x) = Σ a(x_i² − b)², with modes at ±√b per coordinate.
type DoubleWell struct {
	A, B float64
}

func NewDoubleWell() *DoubleWell {
	return &DoubleWell{A: 1.0, B: 1.0}
}

func (d *DoubleWell) PotEnergy(x ham.Vector) float64 {
	sum := 0.0
	for _, xi := range x {
		w := xi*xi - d.B
		sum += d.A * w * w
	}
	return sum
}

func (d *DoubleWell) GradPotEnergy(x ham.Vector) (ham.Vector, float64) {
	grad := make(ham.Vector, len(x))
	sum := 0.0
	for i, xi := range x {
		w := xi*xi - d.B
		sum += d.A * w * w
		grad[i] = 4 * d.A * xi * w
	}
	return grad, sum
}

// HessPotEnergy is diagonal: 4a(3x_i² − b).
func (d *DoubleWell) HessPotEnergy(x ham.Vector) (*mat.SymDense, ham.Vector, float64) {
	n := len(x)
	hess := mat.NewSymDense(n, nil)
	for i, xi := range x {
		hess.SetSym(i, i, 4*d.A*(3*xi*xi-d.B))
	}
	grad, val := d.GradPotEnergy(x)
	return hess, grad, val
}
