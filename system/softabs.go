package system

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
	"github.com/hmclab/hamgeo/linalg"
)

// softAbsZeroTol bounds the region around zero where the softabs
// transform and its derivative switch to their analytic limits.
const softAbsZeroTol = 1e-8

// SoftAbs maps an eigenvalue λ to λ/tanh(λ·coeff): close to |λ| away
// from zero, bounded and positive near zero, so the regularized metric
// is positive definite even for an indefinite Hessian.
func SoftAbs(x, coeff float64) float64 {
	if math.Abs(x*coeff) < softAbsZeroTol {
		return 1 / coeff
	}
	return x / math.Tanh(x*coeff)
}

// GradSoftAbs is the derivative of SoftAbs in λ. It stays finite as
// λ → 0, where its limit is zero.
func GradSoftAbs(x, coeff float64) float64 {
	u := x * coeff
	if math.Abs(u) < softAbsZeroTol {
		return 0
	}
	sinh := math.Sinh(u)
	return 1/math.Tanh(u) - u/(sinh*sinh)
}

// eigDecomp bundles the quantities one symmetric eigendecomposition of
// the potential Hessian yields: the regularized metric eigenvalues,
// the raw Hessian eigenvalues, and the orthonormal eigenvector basis.
// They are cached together on position as one multi-valued entry in
// spirit: a single struct under one key.
type eigDecomp struct {
	metricEigval ham.Vector
	hessEigval   ham.Vector
	eigvec       *mat.Dense
}

// softAbsGeometry builds the metric by eigen-regularizing the Hessian
// of the potential energy. Both position-gradients are linear
// functionals of the potential's third-derivative tensor, reached
// through the MTP operator.
type softAbsGeometry struct {
	coeff  float64
	hessFn diff.HessianFunc
	mtpFn  diff.MTPFunc
}

func (g *softAbsGeometry) hess(s *ham.State) (*mat.SymDense, error) {
	v, err := ham.CachedMulti(s, ham.FieldPos,
		[]string{keyHessPotEnergy, keyGradPotEnergy, keyPotEnergy},
		func() ([]any, error) {
			hess, grad, val := g.hessFn(s.Pos())
			return []any{hess, grad, val}, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(*mat.SymDense), nil
}

func (g *softAbsGeometry) mtp(s *ham.State) (func(mat.Matrix) ham.Vector, error) {
	v, err := ham.CachedMulti(s, ham.FieldPos,
		[]string{keyMTPPotEnergy, keyHessPotEnergy, keyGradPotEnergy, keyPotEnergy},
		func() ([]any, error) {
			mtp, hess, grad, val := g.mtpFn(s.Pos())
			return []any{mtp, hess, grad, val}, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(func(mat.Matrix) ham.Vector), nil
}

func (g *softAbsGeometry) eigMetric(s *ham.State) (eigDecomp, error) {
	return ham.Cached(s, ham.FieldPos, keyEigMetric, func() (eigDecomp, error) {
		hess, err := g.hess(s)
		if err != nil {
			return eigDecomp{}, err
		}
		hessEigval, eigvec, err := linalg.EigSym(hess)
		if err != nil {
			return eigDecomp{}, err
		}
		metricEigval := make(ham.Vector, len(hessEigval))
		for i, ev := range hessEigval {
			metricEigval[i] = SoftAbs(ev, g.coeff)
		}
		return eigDecomp{
			metricEigval: metricEigval,
			hessEigval:   ham.Vector(hessEigval),
			eigvec:       eigvec,
		}, nil
	})
}

// SqrtMetric is the eigenvector basis with columns scaled by the
// square roots of the regularized eigenvalues.
func (g *softAbsGeometry) SqrtMetric(s *ham.State) (mat.Matrix, error) {
	return ham.Cached(s, ham.FieldPos, keySqrtMetric, func() (mat.Matrix, error) {
		eig, err := g.eigMetric(s)
		if err != nil {
			return nil, err
		}
		n := s.NDim()
		sqrt := mat.NewDense(n, n, nil)
		for j := 0; j < n; j++ {
			scale := math.Sqrt(eig.metricEigval[j])
			for i := 0; i < n; i++ {
				sqrt.Set(i, j, eig.eigvec.At(i, j)*scale)
			}
		}
		return sqrt, nil
	})
}

func (g *softAbsGeometry) LogDetSqrtMetric(s *ham.State) (float64, error) {
	return ham.Cached(s, ham.FieldPos, keyLogDetSqrtMetric, func() (float64, error) {
		eig, err := g.eigMetric(s)
		if err != nil {
			return 0, err
		}
		sum := 0.0
		for _, ev := range eig.metricEigval {
			sum += math.Log(ev)
		}
		return 0.5 * sum, nil
	})
}

func (g *softAbsGeometry) GradLogDetSqrtMetric(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos, keyGradLogDetSqrtMetric, func() (ham.Vector, error) {
		eig, err := g.eigMetric(s)
		if err != nil {
			return nil, err
		}
		mtp, err := g.mtp(s)
		if err != nil {
			return nil, err
		}
		// eigvec · diag(grad_softabs(λ)/softabs(λ)) · eigvecᵀ fed
		// through the third-derivative contraction.
		n := s.NDim()
		scaled := mat.NewDense(n, n, nil)
		for j := 0; j < n; j++ {
			scale := GradSoftAbs(eig.hessEigval[j], g.coeff) / eig.metricEigval[j]
			for i := 0; i < n; i++ {
				scaled.Set(i, j, eig.eigvec.At(i, j)*scale)
			}
		}
		sandwich := mat.NewDense(n, n, nil)
		sandwich.Mul(scaled, eig.eigvec.T())
		return mtp(sandwich).Scale(0.5), nil
	})
}

func (g *softAbsGeometry) InvMetricMom(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos|ham.FieldMom, keyInvMetricMom, func() (ham.Vector, error) {
		eig, err := g.eigMetric(s)
		if err != nil {
			return nil, err
		}
		rotated := linalg.MulVecTrans(eig.eigvec, s.Mom())
		for i := range rotated {
			rotated[i] /= eig.metricEigval[i]
		}
		return linalg.MulVec(eig.eigvec, rotated), nil
	})
}

func (g *softAbsGeometry) GradMomInvMetricMom(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos|ham.FieldMom, keyGradMomInvMetricMom, func() (ham.Vector, error) {
		eig, err := g.eigMetric(s)
		if err != nil {
			return nil, err
		}
		mtp, err := g.mtp(s)
		if err != nil {
			return nil, err
		}
		n := s.NDim()

		// Divided-difference matrix of the softabs transform: raw
		// Hessian eigenvalues in the denominator, diagonal filled from
		// the limit grad_softabs(λ_i).
		j := mat.NewDense(n, n, nil)
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				if a == b {
					j.Set(a, a, GradSoftAbs(eig.hessEigval[a], g.coeff))
					continue
				}
				num := eig.metricEigval[a] - eig.metricEigval[b]
				den := eig.hessEigval[a] - eig.hessEigval[b]
				j.Set(a, b, num/den)
			}
		}

		eigvecMom := linalg.MulVecTrans(eig.eigvec, s.Mom())
		for i := range eigvecMom {
			eigvecMom[i] /= eig.metricEigval[i]
		}
		inner := linalg.Outer(eigvecMom, eigvecMom)
		inner.MulElem(inner, j)

		tmp := mat.NewDense(n, n, nil)
		tmp.Mul(eig.eigvec, inner)
		sandwich := mat.NewDense(n, n, nil)
		sandwich.Mul(tmp, eig.eigvec.T())
		return mtp(sandwich).Scale(-1), nil
	})
}

// SoftAbsOptions carries the optional overrides for SoftAbs system
// construction.
type SoftAbsOptions struct {
	GradPotEnergy  diff.GradFunc
	HessPotEnergy  diff.HessianFunc
	MTPPotEnergy   diff.MTPFunc
	Differentiator diff.Differentiator
}

// NewSoftAbsRiemannian builds the eigen-regularized Riemannian system.
// coeff is the softabs regularization coefficient; larger values push
// softabs(λ) toward |λ|.
func NewSoftAbsRiemannian(pot diff.Func, coeff float64, opts *SoftAbsOptions) (*RiemannianSystem, error) {
	if opts == nil {
		opts = &SoftAbsOptions{}
	}
	p, err := newPotential(pot, opts.GradPotEnergy, opts.Differentiator)
	if err != nil {
		return nil, err
	}
	hessFn, err := resolveHessian(opts.HessPotEnergy, pot, opts.Differentiator, "Hessian of potential energy")
	if err != nil {
		return nil, err
	}
	mtpFn, err := resolveMTP(opts.MTPPotEnergy, pot, opts.Differentiator, "MTP of potential energy")
	if err != nil {
		return nil, err
	}
	geom := &softAbsGeometry{coeff: coeff, hessFn: hessFn, mtpFn: mtpFn}
	return &RiemannianSystem{potential: p, geom: geom}, nil
}
