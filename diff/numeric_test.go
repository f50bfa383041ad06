package diff

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/ham"
)

func cubic(x ham.Vector) float64 {
	return x[0]*x[0]*x[0] + 2*x[0]*x[1] + x[1]*x[1]
}

func cubicGrad(x ham.Vector) ham.Vector {
	return ham.Vector{3*x[0]*x[0] + 2*x[1], 2*x[0] + 2*x[1]}
}

func TestNumericGradAndValue(t *testing.T) {
	d := NewNumeric()
	gradFn := d.GradAndValue(cubic)

	x := ham.Vector{1.2, -0.7}
	grad, val := gradFn(x)
	want := cubicGrad(x)
	for i := range want {
		if math.Abs(grad[i]-want[i]) > 1e-6 {
			t.Errorf("grad[%d] = %f, want %f", i, grad[i], want[i])
		}
	}
	if math.Abs(val-cubic(x)) > 1e-12 {
		t.Errorf("value = %f, want %f", val, cubic(x))
	}
}

func TestNumericJacobianAndValue(t *testing.T) {
	d := NewNumeric()
	f := func(x ham.Vector) ham.Vector {
		return ham.Vector{x[0] * x[1], x[0] + 3*x[1], x[1] * x[1]}
	}
	jacFn := d.JacobianAndValue(f)

	x := ham.Vector{2.0, -1.5}
	jac, val := jacFn(x)
	want := [][]float64{
		{x[1], x[0]},
		{1, 3},
		{0, 2 * x[1]},
	}
	for i := range want {
		for j := range want[i] {
			if math.Abs(jac.At(i, j)-want[i][j]) > 1e-6 {
				t.Errorf("jac[%d,%d] = %f, want %f", i, j, jac.At(i, j), want[i][j])
			}
		}
	}
	fx := f(x)
	for i := range fx {
		if val[i] != fx[i] {
			t.Errorf("value[%d] = %f, want %f", i, val[i], fx[i])
		}
	}
}

func TestNumericHessianGradAndValue(t *testing.T) {
	d := NewNumeric()
	hessFn := d.HessianGradAndValue(cubic)

	x := ham.Vector{0.8, 0.3}
	hess, grad, val := hessFn(x)

	want := [][]float64{{6 * x[0], 2}, {2, 2}}
	for i := range want {
		for j := range want[i] {
			if math.Abs(hess.At(i, j)-want[i][j]) > 1e-5 {
				t.Errorf("hess[%d,%d] = %f, want %f", i, j, hess.At(i, j), want[i][j])
			}
		}
	}
	wantGrad := cubicGrad(x)
	for i := range wantGrad {
		if math.Abs(grad[i]-wantGrad[i]) > 1e-6 {
			t.Errorf("grad[%d] = %f, want %f", i, grad[i], wantGrad[i])
		}
	}
	if math.Abs(val-cubic(x)) > 1e-12 {
		t.Errorf("value = %f, want %f", val, cubic(x))
	}
}

func TestNumericMTP(t *testing.T) {
	d := NewNumeric()
	mtpFn := d.MTPHessianGradAndValue(cubic)

	x := ham.Vector{0.5, -0.2}
	mtp, _, _, _ := mtpFn(x)

	// Only H[0,0] = 6x₀ depends on position, so
	// mtp(M) = [6·M[0,0], 0].
	cot := mat.NewDense(2, 2, []float64{1.5, 2, 2, 3})
	got := mtp(cot)
	if math.Abs(got[0]-9) > 1e-3 {
		t.Errorf("mtp[0] = %f, want 9", got[0])
	}
	if math.Abs(got[1]) > 1e-3 {
		t.Errorf("mtp[1] = %f, want 0", got[1])
	}
}

func TestNumericMHP(t *testing.T) {
	d := NewNumeric()
	f := func(x ham.Vector) ham.Vector {
		return ham.Vector{x[0] * x[0], x[0] * x[1]}
	}
	mhpFn := d.MHPJacobianAndValue(f)

	x := ham.Vector{1.1, 0.4}
	mhp, jac, val := mhpFn(x)

	// J = [[2x₀, 0], [x₁, x₀]], so for cotangent M:
	// mhp(M)[0] = 2M[0,0] + M[1,1], mhp(M)[1] = M[1,0].
	cot := mat.NewDense(2, 2, []float64{1, 0, 2, 3})
	got := mhp(cot)
	if math.Abs(got[0]-5) > 1e-5 {
		t.Errorf("mhp[0] = %f, want 5", got[0])
	}
	if math.Abs(got[1]-2) > 1e-5 {
		t.Errorf("mhp[1] = %f, want 2", got[1])
	}
	if math.Abs(jac.At(0, 0)-2*x[0]) > 1e-6 {
		t.Errorf("jac[0,0] = %f, want %f", jac.At(0, 0), 2*x[0])
	}
	if val[1] != x[0]*x[1] {
		t.Errorf("value[1] = %f, want %f", val[1], x[0]*x[1])
	}
}

func TestNumericVJP(t *testing.T) {
	d := NewNumeric()
	f := func(x ham.Vector) mat.Matrix {
		return mat.NewDense(2, 2, []float64{x[0] * x[0], 0, 0, x[1]})
	}
	vjpFn := d.VJP(f)

	x := ham.Vector{1.5, 2.5}
	pull, value := vjpFn(x)

	cot := mat.NewDense(2, 2, []float64{2, 1, 1, 3})
	got := pull(cot)
	// d⟨f, M⟩/dx = [2x₀·M[0,0], M[1,1]].
	if math.Abs(got[0]-6) > 1e-6 {
		t.Errorf("vjp[0] = %f, want 6", got[0])
	}
	if math.Abs(got[1]-3) > 1e-6 {
		t.Errorf("vjp[1] = %f, want 3", got[1])
	}
	if value.At(0, 0) != x[0]*x[0] {
		t.Errorf("value[0,0] = %f, want %f", value.At(0, 0), x[0]*x[0])
	}
}
