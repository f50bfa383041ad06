package system

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
	"github.com/hmclab/hamgeo/linalg"
)

// Metric is the fixed, position-independent momentum-covariance
// capability of a Euclidean system. Implementations are immutable and
// dimension compatibility with the state is a precondition.
type Metric interface {
	KinEnergy(mom ham.Vector) float64
	GradKinEnergy(mom ham.Vector) ham.Vector
	SampleMomentum(n int, rng ham.NormalSource) ham.Vector
	MultMetricVec(rhs ham.Vector) ham.Vector
	MultInvMetricVec(rhs ham.Vector) ham.Vector
	MultMetric(rhs mat.Matrix) *mat.Dense
	MultInvMetric(rhs mat.Matrix) *mat.Dense
}

// IdentityMetric is the isotropic metric: kinetic energy ½‖mom‖² and
// standard-normal momentum draws.
type IdentityMetric struct{}

func (IdentityMetric) KinEnergy(mom ham.Vector) float64 {
	return 0.5 * mom.Dot(mom)
}

func (IdentityMetric) GradKinEnergy(mom ham.Vector) ham.Vector {
	return mom.Clone()
}

func (IdentityMetric) SampleMomentum(n int, rng ham.NormalSource) ham.Vector {
	return ham.DrawNormal(n, rng)
}

func (IdentityMetric) MultMetricVec(rhs ham.Vector) ham.Vector    { return rhs.Clone() }
func (IdentityMetric) MultInvMetricVec(rhs ham.Vector) ham.Vector { return rhs.Clone() }

func (IdentityMetric) MultMetric(rhs mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(rhs)
}

func (IdentityMetric) MultInvMetric(rhs mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(rhs)
}

// DiagonalMetric is a diagonal momentum covariance.
type DiagonalMetric struct {
	diag ham.Vector
}

func NewDiagonalMetric(diag ham.Vector) *DiagonalMetric {
	return &DiagonalMetric{diag: diag.Clone()}
}

// NewDiagonalMetricFromMatrix extracts the diagonal of a full matrix
// input, warning that the off-diagonal entries are discarded.
func NewDiagonalMetricFromMatrix(m mat.Matrix) *DiagonalMetric {
	slog.Warn("off-diagonal metric entries discarded for diagonal metric")
	n, _ := m.Dims()
	diag := make(ham.Vector, n)
	for i := range diag {
		diag[i] = m.At(i, i)
	}
	return &DiagonalMetric{diag: diag}
}

func (d *DiagonalMetric) Diagonal() ham.Vector { return d.diag.Clone() }

func (d *DiagonalMetric) KinEnergy(mom ham.Vector) float64 {
	sum := 0.0
	for i := range mom {
		sum += mom[i] * mom[i] / d.diag[i]
	}
	return 0.5 * sum
}

func (d *DiagonalMetric) GradKinEnergy(mom ham.Vector) ham.Vector {
	out := make(ham.Vector, len(mom))
	for i := range mom {
		out[i] = mom[i] / d.diag[i]
	}
	return out
}

func (d *DiagonalMetric) SampleMomentum(n int, rng ham.NormalSource) ham.Vector {
	mom := ham.DrawNormal(n, rng)
	for i := range mom {
		mom[i] *= math.Sqrt(d.diag[i])
	}
	return mom
}

func (d *DiagonalMetric) MultMetricVec(rhs ham.Vector) ham.Vector {
	out := make(ham.Vector, len(rhs))
	for i := range rhs {
		out[i] = rhs[i] * d.diag[i]
	}
	return out
}

func (d *DiagonalMetric) MultInvMetricVec(rhs ham.Vector) ham.Vector {
	out := make(ham.Vector, len(rhs))
	for i := range rhs {
		out[i] = rhs[i] / d.diag[i]
	}
	return out
}

func (d *DiagonalMetric) MultMetric(rhs mat.Matrix) *mat.Dense {
	return d.scaleRows(rhs, false)
}

func (d *DiagonalMetric) MultInvMetric(rhs mat.Matrix) *mat.Dense {
	return d.scaleRows(rhs, true)
}

func (d *DiagonalMetric) scaleRows(rhs mat.Matrix, inverse bool) *mat.Dense {
	r, c := rhs.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		scale := d.diag[i]
		if inverse {
			scale = 1 / scale
		}
		for j := 0; j < c; j++ {
			out.Set(i, j, rhs.At(i, j)*scale)
		}
	}
	return out
}

// DenseMetric is a dense momentum covariance, factorized once at
// construction.
type DenseMetric struct {
	sym  *mat.SymDense
	chol mat.Cholesky
	l    *mat.TriDense
}

func NewDenseMetric(metric *mat.SymDense) (*DenseMetric, error) {
	m := &DenseMetric{sym: metric}
	if ok := m.chol.Factorize(metric); !ok {
		return nil, linalg.ErrNotPositiveDefinite
	}
	m.l = mat.NewTriDense(metric.SymmetricDim(), mat.Lower, nil)
	m.chol.LTo(m.l)
	return m, nil
}

// CholFactor returns the lower Cholesky factor L with metric = L Lᵀ.
func (d *DenseMetric) CholFactor() *mat.TriDense { return d.l }

func (d *DenseMetric) KinEnergy(mom ham.Vector) float64 {
	return 0.5 * mom.Dot(d.GradKinEnergy(mom))
}

func (d *DenseMetric) GradKinEnergy(mom ham.Vector) ham.Vector {
	return d.MultInvMetricVec(mom)
}

func (d *DenseMetric) SampleMomentum(n int, rng ham.NormalSource) ham.Vector {
	return linalg.MulVec(d.l, ham.DrawNormal(n, rng))
}

func (d *DenseMetric) MultMetricVec(rhs ham.Vector) ham.Vector {
	return linalg.MulVec(d.sym, rhs)
}

func (d *DenseMetric) MultInvMetricVec(rhs ham.Vector) ham.Vector {
	n := len(rhs)
	dst := mat.NewVecDense(n, nil)
	_ = d.chol.SolveVecTo(dst, mat.NewVecDense(n, rhs))
	out := make(ham.Vector, n)
	for i := 0; i < n; i++ {
		out[i] = dst.AtVec(i)
	}
	return out
}

func (d *DenseMetric) MultMetric(rhs mat.Matrix) *mat.Dense {
	r, c := rhs.Dims()
	out := mat.NewDense(r, c, nil)
	out.Mul(d.sym, rhs)
	return out
}

func (d *DenseMetric) MultInvMetric(rhs mat.Matrix) *mat.Dense {
	r, c := rhs.Dims()
	out := mat.NewDense(r, c, nil)
	_ = d.chol.SolveTo(out, rhs)
	return out
}

// EuclideanSystem is a separable Hamiltonian system H = pot(pos) +
// kin(mom) with a fixed metric capability.
type EuclideanSystem struct {
	potential
	metric Metric
}

// EuclideanOptions carries the optional overrides for Euclidean system
// construction. A nil Differentiator with a nil GradPotEnergy is a
// configuration error.
type EuclideanOptions struct {
	GradPotEnergy  diff.GradFunc
	Differentiator diff.Differentiator
}

// NewEuclidean builds a separable system over an arbitrary metric
// capability.
func NewEuclidean(pot diff.Func, metric Metric, opts *EuclideanOptions) (*EuclideanSystem, error) {
	if opts == nil {
		opts = &EuclideanOptions{}
	}
	p, err := newPotential(pot, opts.GradPotEnergy, opts.Differentiator)
	if err != nil {
		return nil, err
	}
	return &EuclideanSystem{potential: p, metric: metric}, nil
}

// NewIsotropicEuclidean builds the identity-metric system.
func NewIsotropicEuclidean(pot diff.Func, opts *EuclideanOptions) (*EuclideanSystem, error) {
	return NewEuclidean(pot, IdentityMetric{}, opts)
}

// NewDiagonalEuclidean builds the diagonal-metric system.
func NewDiagonalEuclidean(pot diff.Func, diag ham.Vector, opts *EuclideanOptions) (*EuclideanSystem, error) {
	return NewEuclidean(pot, NewDiagonalMetric(diag), opts)
}

// NewDenseEuclidean builds the dense-metric system, failing if the
// metric is not positive definite.
func NewDenseEuclidean(pot diff.Func, metric *mat.SymDense, opts *EuclideanOptions) (*EuclideanSystem, error) {
	m, err := NewDenseMetric(metric)
	if err != nil {
		return nil, err
	}
	return NewEuclidean(pot, m, opts)
}

func (sys *EuclideanSystem) Metric() Metric { return sys.metric }

func (sys *EuclideanSystem) KinEnergy(s *ham.State) (float64, error) {
	return ham.Cached(s, ham.FieldMom, keyKinEnergy, func() (float64, error) {
		return sys.metric.KinEnergy(s.Mom()), nil
	})
}

func (sys *EuclideanSystem) GradKinEnergy(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldMom, keyGradKinEnergy, func() (ham.Vector, error) {
		return sys.metric.GradKinEnergy(s.Mom()), nil
	})
}

func (sys *EuclideanSystem) H(s *ham.State) (float64, error) {
	pot, err := sys.PotEnergy(s)
	if err != nil {
		return 0, err
	}
	kin, err := sys.KinEnergy(s)
	if err != nil {
		return 0, err
	}
	return pot + kin, nil
}

func (sys *EuclideanSystem) DhDPos(s *ham.State) (ham.Vector, error) {
	return sys.GradPotEnergy(s)
}

func (sys *EuclideanSystem) DhDMom(s *ham.State) (ham.Vector, error) {
	return sys.GradKinEnergy(s)
}

func (sys *EuclideanSystem) SampleMomentum(s *ham.State, rng ham.NormalSource) (ham.Vector, error) {
	return sys.metric.SampleMomentum(s.NDim(), rng), nil
}
