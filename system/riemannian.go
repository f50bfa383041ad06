package system

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
	"github.com/hmclab/hamgeo/linalg"
)

// geometry is the position-dependent metric capability of a
// non-separable system. All quantities are cached in the state; the
// position-gradients are linear functionals of the metric's derivative
// supplied through a VJP or MTP operator.
type geometry interface {
	SqrtMetric(s *ham.State) (mat.Matrix, error)
	LogDetSqrtMetric(s *ham.State) (float64, error)
	GradLogDetSqrtMetric(s *ham.State) (ham.Vector, error)
	InvMetricMom(s *ham.State) (ham.Vector, error)
	GradMomInvMetricMom(s *ham.State) (ham.Vector, error)
}

// RiemannianSystem is a non-separable Hamiltonian system
// H = H1 + H2 with H1 = pot + log det sqrt metric and
// H2 = ½ mom · metric⁻¹ mom, over a position-dependent metric.
type RiemannianSystem struct {
	potential
	geom geometry
}

// H1 is the position-dependent term of the Hamiltonian.
func (sys *RiemannianSystem) H1(s *ham.State) (float64, error) {
	pot, err := sys.PotEnergy(s)
	if err != nil {
		return 0, err
	}
	logDet, err := sys.geom.LogDetSqrtMetric(s)
	if err != nil {
		return 0, err
	}
	return pot + logDet, nil
}

// H2 is the quadratic momentum term.
func (sys *RiemannianSystem) H2(s *ham.State) (float64, error) {
	imm, err := sys.geom.InvMetricMom(s)
	if err != nil {
		return 0, err
	}
	return 0.5 * s.Mom().Dot(imm), nil
}

func (sys *RiemannianSystem) H(s *ham.State) (float64, error) {
	h1, err := sys.H1(s)
	if err != nil {
		return 0, err
	}
	h2, err := sys.H2(s)
	if err != nil {
		return 0, err
	}
	return h1 + h2, nil
}

func (sys *RiemannianSystem) DhDPos(s *ham.State) (ham.Vector, error) {
	gradPot, err := sys.GradPotEnergy(s)
	if err != nil {
		return nil, err
	}
	gradLogDet, err := sys.geom.GradLogDetSqrtMetric(s)
	if err != nil {
		return nil, err
	}
	gradQuad, err := sys.geom.GradMomInvMetricMom(s)
	if err != nil {
		return nil, err
	}
	out := make(ham.Vector, len(gradPot))
	for i := range out {
		out[i] = gradPot[i] + gradLogDet[i] + 0.5*gradQuad[i]
	}
	return out, nil
}

func (sys *RiemannianSystem) DhDMom(s *ham.State) (ham.Vector, error) {
	return sys.geom.InvMetricMom(s)
}

// SqrtMetric exposes the square-root factor used for momentum
// sampling.
func (sys *RiemannianSystem) SqrtMetric(s *ham.State) (mat.Matrix, error) {
	return sys.geom.SqrtMetric(s)
}

// LogDetSqrtMetric exposes the metric's half log-determinant.
func (sys *RiemannianSystem) LogDetSqrtMetric(s *ham.State) (float64, error) {
	return sys.geom.LogDetSqrtMetric(s)
}

func (sys *RiemannianSystem) SampleMomentum(s *ham.State, rng ham.NormalSource) (ham.Vector, error) {
	sqrt, err := sys.geom.SqrtMetric(s)
	if err != nil {
		return nil, err
	}
	return linalg.MulVec(sqrt, ham.DrawNormal(s.NDim(), rng)), nil
}

// cholGeometry implements the quantities every Cholesky-factored
// geometry derives the same way: half log-determinant from the factor
// diagonal, inverse-metric-momentum via two triangular solves, and the
// factor itself as the sampling square root.
type cholGeometry struct {
	chol func(s *ham.State) (*mat.TriDense, error)
}

func (g *cholGeometry) SqrtMetric(s *ham.State) (mat.Matrix, error) {
	return g.chol(s)
}

func (g *cholGeometry) LogDetSqrtMetric(s *ham.State) (float64, error) {
	return ham.Cached(s, ham.FieldPos, keyLogDetSqrtMetric, func() (float64, error) {
		l, err := g.chol(s)
		if err != nil {
			return 0, err
		}
		return linalg.LogDetTri(l), nil
	})
}

func (g *cholGeometry) InvMetricMom(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos|ham.FieldMom, keyInvMetricMom, func() (ham.Vector, error) {
		l, err := g.chol(s)
		if err != nil {
			return nil, err
		}
		return linalg.SolveCholVec(l, s.Mom()), nil
	})
}

// denseGeometry derives everything from a user metric function and the
// VJP of that function.
type denseGeometry struct {
	cholGeometry
	metricFn diff.MatrixFunc
	vjpFn    diff.VJPFunc
}

func newDenseGeometry(metric diff.MatrixFunc, vjp diff.VJPFunc) *denseGeometry {
	g := &denseGeometry{metricFn: metric, vjpFn: vjp}
	g.cholGeometry.chol = g.cholMetric
	return g
}

func (g *denseGeometry) metric(s *ham.State) (*mat.SymDense, error) {
	return ham.Cached(s, ham.FieldPos, keyMetric, func() (*mat.SymDense, error) {
		return linalg.SymFromMatrix(g.metricFn(s.Pos())), nil
	})
}

func (g *denseGeometry) cholMetric(s *ham.State) (*mat.TriDense, error) {
	return ham.Cached(s, ham.FieldPos, keyCholMetric, func() (*mat.TriDense, error) {
		m, err := g.metric(s)
		if err != nil {
			return nil, err
		}
		l, err := linalg.CholeskyLower(m)
		if err != nil {
			return nil, fmt.Errorf("system: metric factorization: %w", err)
		}
		return l, nil
	})
}

func (g *denseGeometry) invMetric(s *ham.State) (*mat.Dense, error) {
	return ham.Cached(s, ham.FieldPos, keyInvMetric, func() (*mat.Dense, error) {
		l, err := g.chol(s)
		if err != nil {
			return nil, err
		}
		return linalg.SolveCholMat(l, linalg.Identity(s.NDim())), nil
	})
}

func (g *denseGeometry) vjp(s *ham.State) (func(mat.Matrix) ham.Vector, error) {
	v, err := ham.CachedMulti(s, ham.FieldPos,
		[]string{keyVJPMetric, keyMetric},
		func() ([]any, error) {
			pull, value := g.vjpFn(s.Pos())
			return []any{pull, linalg.SymFromMatrix(value)}, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(func(mat.Matrix) ham.Vector), nil
}

func (g *denseGeometry) GradLogDetSqrtMetric(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos, keyGradLogDetSqrtMetric, func() (ham.Vector, error) {
		inv, err := g.invMetric(s)
		if err != nil {
			return nil, err
		}
		pull, err := g.vjp(s)
		if err != nil {
			return nil, err
		}
		return pull(inv).Scale(0.5), nil
	})
}

func (g *denseGeometry) GradMomInvMetricMom(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos|ham.FieldMom, keyGradMomInvMetricMom, func() (ham.Vector, error) {
		imm, err := g.InvMetricMom(s)
		if err != nil {
			return nil, err
		}
		pull, err := g.vjp(s)
		if err != nil {
			return nil, err
		}
		return pull(linalg.Outer(imm, imm)).Scale(-1), nil
	})
}

// factoredGeometry works from a user-supplied Cholesky factor function
// of the metric and its VJP.
type factoredGeometry struct {
	cholGeometry
	cholFn diff.MatrixFunc
	vjpFn  diff.VJPFunc
}

func newFactoredGeometry(cholMetric diff.MatrixFunc, vjp diff.VJPFunc) *factoredGeometry {
	g := &factoredGeometry{cholFn: cholMetric, vjpFn: vjp}
	g.cholGeometry.chol = g.cholMetric
	return g
}

func (g *factoredGeometry) cholMetric(s *ham.State) (*mat.TriDense, error) {
	return ham.Cached(s, ham.FieldPos, keyCholMetric, func() (*mat.TriDense, error) {
		return linalg.TriFromMatrix(g.cholFn(s.Pos())), nil
	})
}

func (g *factoredGeometry) invCholMetric(s *ham.State) (*mat.Dense, error) {
	return ham.Cached(s, ham.FieldPos, keyInvCholMetric, func() (*mat.Dense, error) {
		l, err := g.chol(s)
		if err != nil {
			return nil, err
		}
		n := s.NDim()
		inv := mat.NewDense(n, n, nil)
		_ = l.SolveTo(inv, false, linalg.Identity(n))
		return inv, nil
	})
}

func (g *factoredGeometry) vjp(s *ham.State) (func(mat.Matrix) ham.Vector, error) {
	v, err := ham.CachedMulti(s, ham.FieldPos,
		[]string{keyVJPCholMetric, keyCholMetric},
		func() ([]any, error) {
			pull, value := g.vjpFn(s.Pos())
			return []any{pull, linalg.TriFromMatrix(value)}, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(func(mat.Matrix) ham.Vector), nil
}

func (g *factoredGeometry) GradLogDetSqrtMetric(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos, keyGradLogDetSqrtMetric, func() (ham.Vector, error) {
		inv, err := g.invCholMetric(s)
		if err != nil {
			return nil, err
		}
		pull, err := g.vjp(s)
		if err != nil {
			return nil, err
		}
		return pull(inv.T()), nil
	})
}

func (g *factoredGeometry) GradMomInvMetricMom(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos|ham.FieldMom, keyGradMomInvMetricMom, func() (ham.Vector, error) {
		l, err := g.chol(s)
		if err != nil {
			return nil, err
		}
		invCholMom := linalg.SolveTriVec(l, false, s.Mom())
		imm, err := g.InvMetricMom(s)
		if err != nil {
			return nil, err
		}
		pull, err := g.vjp(s)
		if err != nil {
			return nil, err
		}
		return pull(linalg.Outer(imm, invCholMom)).Scale(-2), nil
	})
}

// RiemannianOptions carries the optional overrides shared by the
// Cholesky-based Riemannian constructors.
type RiemannianOptions struct {
	GradPotEnergy  diff.GradFunc
	VJPMetric      diff.VJPFunc
	Differentiator diff.Differentiator
}

// NewDenseRiemannian builds a system whose metric is a dense matrix
// function of position, factorized per position.
func NewDenseRiemannian(pot diff.Func, metric diff.MatrixFunc, opts *RiemannianOptions) (*RiemannianSystem, error) {
	if opts == nil {
		opts = &RiemannianOptions{}
	}
	p, err := newPotential(pot, opts.GradPotEnergy, opts.Differentiator)
	if err != nil {
		return nil, err
	}
	vjp, err := resolveVJP(opts.VJPMetric, metric, opts.Differentiator, "VJP of metric")
	if err != nil {
		return nil, err
	}
	return &RiemannianSystem{potential: p, geom: newDenseGeometry(metric, vjp)}, nil
}

// NewFactoredRiemannian builds a system whose metric is specified
// directly through its lower Cholesky factor as a function of
// position.
func NewFactoredRiemannian(pot diff.Func, cholMetric diff.MatrixFunc, opts *RiemannianOptions) (*RiemannianSystem, error) {
	if opts == nil {
		opts = &RiemannianOptions{}
	}
	p, err := newPotential(pot, opts.GradPotEnergy, opts.Differentiator)
	if err != nil {
		return nil, err
	}
	vjp, err := resolveVJP(opts.VJPMetric, cholMetric, opts.Differentiator, "VJP of Cholesky factor of metric")
	if err != nil {
		return nil, err
	}
	return &RiemannianSystem{potential: p, geom: newFactoredGeometry(cholMetric, vjp)}, nil
}
