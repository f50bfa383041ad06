package diff

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/ham"
)

const (
	defaultGradStep = 1e-6
	defaultHessStep = 1e-4
)

// Numeric is a central finite-difference Differentiator. It is exact
// enough for moderate dimensions and the default collaborator when no
// AD engine is plugged in; callers with analytic derivatives should
// pass them explicitly instead.
type Numeric struct {
	// GradStep is the step for first derivatives; HessStep the larger
	// step for second and third derivatives. Zero means default.
	GradStep float64
	HessStep float64
}

func NewNumeric() *Numeric {
	return &Numeric{GradStep: defaultGradStep, HessStep: defaultHessStep}
}

func (d *Numeric) gradStep() float64 {
	if d.GradStep > 0 {
		return d.GradStep
	}
	return defaultGradStep
}

func (d *Numeric) hessStep() float64 {
	if d.HessStep > 0 {
		return d.HessStep
	}
	return defaultHessStep
}

func (d *Numeric) grad(f Func, x ham.Vector) ham.Vector {
	h := d.gradStep()
	g := make(ham.Vector, len(x))
	p := x.Clone()
	for i := range x {
		p[i] = x[i] + h
		fp := f(p)
		p[i] = x[i] - h
		fm := f(p)
		p[i] = x[i]
		g[i] = (fp - fm) / (2 * h)
	}
	return g
}

func (d *Numeric) jacobian(f VectorFunc, x ham.Vector) *mat.Dense {
	h := d.gradStep()
	p := x.Clone()
	var jac *mat.Dense
	for j := range x {
		p[j] = x[j] + h
		fp := f(p)
		p[j] = x[j] - h
		fm := f(p)
		p[j] = x[j]
		if jac == nil {
			jac = mat.NewDense(len(fp), len(x), nil)
		}
		for i := range fp {
			jac.Set(i, j, (fp[i]-fm[i])/(2*h))
		}
	}
	return jac
}

func (d *Numeric) hessian(f Func, x ham.Vector) *mat.SymDense {
	// Central differences of the numeric gradient, symmetrized.
	h := d.hessStep()
	n := len(x)
	raw := mat.NewDense(n, n, nil)
	p := x.Clone()
	for j := 0; j < n; j++ {
		p[j] = x[j] + h
		gp := d.grad(f, p)
		p[j] = x[j] - h
		gm := d.grad(f, p)
		p[j] = x[j]
		for i := 0; i < n; i++ {
			raw.Set(i, j, (gp[i]-gm[i])/(2*h))
		}
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, raw.At(i, i))
		for j := i + 1; j < n; j++ {
			sym.SetSym(i, j, 0.5*(raw.At(i, j)+raw.At(j, i)))
		}
	}
	return sym
}

// GradAndValue returns a combined gradient-and-value operator for f.
func (d *Numeric) GradAndValue(f Func) GradFunc {
	return func(x ham.Vector) (ham.Vector, float64) {
		return d.grad(f, x), f(x)
	}
}

// JacobianAndValue returns a combined Jacobian-and-value operator.
func (d *Numeric) JacobianAndValue(f VectorFunc) JacobianFunc {
	return func(x ham.Vector) (*mat.Dense, ham.Vector) {
		return d.jacobian(f, x), f(x)
	}
}

// HessianGradAndValue returns a combined Hessian, gradient and value
// operator.
func (d *Numeric) HessianGradAndValue(f Func) HessianFunc {
	return func(x ham.Vector) (*mat.SymDense, ham.Vector, float64) {
		return d.hessian(f, x), d.grad(f, x), f(x)
	}
}

// MTPHessianGradAndValue returns the matrix-Tressian-product operator
// of f along with its Hessian, gradient and value. The product is
// formed by differencing ⟨H(x), M⟩ coordinate-wise, so each pullback
// call costs two Hessian evaluations per dimension.
func (d *Numeric) MTPHessianGradAndValue(f Func) MTPFunc {
	return func(x ham.Vector) (func(mat.Matrix) ham.Vector, *mat.SymDense, ham.Vector, float64) {
		h := d.hessStep()
		mtp := func(cot mat.Matrix) ham.Vector {
			out := make(ham.Vector, len(x))
			p := x.Clone()
			for k := range x {
				p[k] = x[k] + h
				ip := frobInner(d.hessian(f, p), cot)
				p[k] = x[k] - h
				im := frobInner(d.hessian(f, p), cot)
				p[k] = x[k]
				out[k] = (ip - im) / (2 * h)
			}
			return out
		}
		return mtp, d.hessian(f, x), d.grad(f, x), f(x)
	}
}

// MHPJacobianAndValue returns the matrix-Hessian-product operator of a
// vector field along with its Jacobian and value.
func (d *Numeric) MHPJacobianAndValue(f VectorFunc) MHPFunc {
	return func(x ham.Vector) (func(mat.Matrix) ham.Vector, *mat.Dense, ham.Vector) {
		h := d.hessStep()
		mhp := func(cot mat.Matrix) ham.Vector {
			out := make(ham.Vector, len(x))
			p := x.Clone()
			for k := range x {
				p[k] = x[k] + h
				ip := frobInner(d.jacobian(f, p), cot)
				p[k] = x[k] - h
				im := frobInner(d.jacobian(f, p), cot)
				p[k] = x[k]
				out[k] = (ip - im) / (2 * h)
			}
			return out
		}
		return mhp, d.jacobian(f, x), f(x)
	}
}

// VJP returns the vector-Jacobian-product operator of a matrix field:
// the pullback contracts a cotangent matrix against the field's
// derivative one coordinate at a time.
func (d *Numeric) VJP(f MatrixFunc) VJPFunc {
	return func(x ham.Vector) (func(mat.Matrix) ham.Vector, mat.Matrix) {
		h := d.gradStep()
		pull := func(cot mat.Matrix) ham.Vector {
			out := make(ham.Vector, len(x))
			p := x.Clone()
			for k := range x {
				p[k] = x[k] + h
				ip := frobInner(f(p), cot)
				p[k] = x[k] - h
				im := frobInner(f(p), cot)
				p[k] = x[k]
				out[k] = (ip - im) / (2 * h)
			}
			return out
		}
		return pull, f(x)
	}
}

func frobInner(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum += a.At(i, j) * b.At(i, j)
		}
	}
	return sum
}
