package system

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
)

// testMetric is a simple position-dependent metric with an analytic
// pullback: M(x) = [[2+x₀², 0.5], [0.5, 2+x₁²]].
func testMetric(x ham.Vector) mat.Matrix {
	return mat.NewSymDense(2, []float64{
		2 + x[0]*x[0], 0.5,
		0.5, 2 + x[1]*x[1],
	})
}

func testMetricVJP(x ham.Vector) (func(cot mat.Matrix) ham.Vector, mat.Matrix) {
	pull := func(cot mat.Matrix) ham.Vector {
		return ham.Vector{2 * x[0] * cot.At(0, 0), 2 * x[1] * cot.At(1, 1)}
	}
	return pull, testMetric(x)
}

// testCholMetric is a lower-triangular factor field with analytic
// pullback: L(x) = [[1+x₀², 0], [0.3, 1+x₁²]].
func testCholMetric(x ham.Vector) mat.Matrix {
	return mat.NewTriDense(2, mat.Lower, []float64{
		1 + x[0]*x[0], 0,
		0.3, 1 + x[1]*x[1],
	})
}

func testCholMetricVJP(x ham.Vector) (func(cot mat.Matrix) ham.Vector, mat.Matrix) {
	pull := func(cot mat.Matrix) ham.Vector {
		return ham.Vector{2 * x[0] * cot.At(0, 0), 2 * x[1] * cot.At(1, 1)}
	}
	return pull, testCholMetric(x)
}

func TestDenseRiemannianGradients(t *testing.T) {
	sys, err := NewDenseRiemannian(quadPot, testMetric, &RiemannianOptions{
		GradPotEnergy: quadGrad,
		VJPMetric:     testMetricVJP,
	})
	if err != nil {
		t.Fatal(err)
	}

	checkGradsAgainstH(t, sys, ham.Vector{0.8, -0.4}, ham.Vector{0.3, -0.7}, 1e-5)
	checkGradsAgainstH(t, sys, ham.Vector{-1.2, 0.9}, ham.Vector{1.1, 0.2}, 1e-5)
}

func TestDenseRiemannianNumericVJP(t *testing.T) {
	sys, err := NewDenseRiemannian(quadPot, testMetric, &RiemannianOptions{
		GradPotEnergy:  quadGrad,
		Differentiator: diff.NewNumeric(),
	})
	if err != nil {
		t.Fatal(err)
	}

	checkGradsAgainstH(t, sys, ham.Vector{0.8, -0.4}, ham.Vector{0.3, -0.7}, 1e-3)
}

func TestDenseRiemannianLogDetSqrtMetric(t *testing.T) {
	sys, err := NewDenseRiemannian(quadPot, testMetric, &RiemannianOptions{
		GradPotEnergy: quadGrad,
		VJPMetric:     testMetricVJP,
	})
	if err != nil {
		t.Fatal(err)
	}

	// At the origin the metric is [[2, 0.5], [0.5, 2]] with det 3.75.
	s := ham.NewState(ham.Vector{0, 0}, ham.Vector{0, 0})
	logDet, err := sys.LogDetSqrtMetric(s)
	if err != nil {
		t.Fatal(err)
	}
	want := 0.5 * math.Log(3.75)
	if math.Abs(logDet-want) > 1e-12 {
		t.Errorf("log det sqrt metric = %f, want %f", logDet, want)
	}

	h1, err := sys.H1(s)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(h1-want) > 1e-12 {
		t.Errorf("h1 = %f, want %f (zero potential at origin)", h1, want)
	}

	h2, err := sys.H2(s)
	if err != nil {
		t.Fatal(err)
	}
	if h2 != 0 {
		t.Errorf("h2 = %f, want 0 for zero momentum", h2)
	}
}

func TestDenseRiemannianSqrtMetricFactorization(t *testing.T) {
	sys, err := NewDenseRiemannian(quadPot, testMetric, &RiemannianOptions{
		GradPotEnergy: quadGrad,
		VJPMetric:     testMetricVJP,
	})
	if err != nil {
		t.Fatal(err)
	}

	pos := ham.Vector{0.7, -1.1}
	s := ham.NewState(pos, ham.Vector{0, 0})
	sqrt, err := sys.SqrtMetric(s)
	if err != nil {
		t.Fatal(err)
	}

	var prod mat.Dense
	prod.Mul(sqrt, sqrt.T())
	m := testMetric(pos)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(prod.At(i, j)-m.At(i, j)) > 1e-12 {
				t.Errorf("sqrt·sqrtᵀ[%d,%d] = %f, want %f", i, j, prod.At(i, j), m.At(i, j))
			}
		}
	}
}

func TestFactoredRiemannianGradients(t *testing.T) {
	sys, err := NewFactoredRiemannian(quadPot, testCholMetric, &RiemannianOptions{
		GradPotEnergy: quadGrad,
		VJPMetric:     testCholMetricVJP,
	})
	if err != nil {
		t.Fatal(err)
	}

	checkGradsAgainstH(t, sys, ham.Vector{0.8, -0.4}, ham.Vector{0.3, -0.7}, 1e-5)
	checkGradsAgainstH(t, sys, ham.Vector{-0.5, 1.3}, ham.Vector{-0.9, 0.6}, 1e-5)
}

func TestFactoredMatchesDenseHamiltonian(t *testing.T) {
	// The dense system over L Lᵀ and the factored system over L define
	// the same Hamiltonian.
	metricFromChol := func(x ham.Vector) mat.Matrix {
		l := testCholMetric(x)
		var prod mat.Dense
		prod.Mul(l, l.T())
		return &prod
	}

	dense, err := NewDenseRiemannian(quadPot, metricFromChol, &RiemannianOptions{
		GradPotEnergy:  quadGrad,
		Differentiator: diff.NewNumeric(),
	})
	if err != nil {
		t.Fatal(err)
	}
	factored, err := NewFactoredRiemannian(quadPot, testCholMetric, &RiemannianOptions{
		GradPotEnergy: quadGrad,
		VJPMetric:     testCholMetricVJP,
	})
	if err != nil {
		t.Fatal(err)
	}

	pos := ham.Vector{0.4, -0.8}
	mom := ham.Vector{1.2, 0.5}

	hDense, err := dense.H(ham.NewState(pos.Clone(), mom.Clone()))
	if err != nil {
		t.Fatal(err)
	}
	hFact, err := factored.H(ham.NewState(pos.Clone(), mom.Clone()))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(hDense-hFact) > 1e-10 {
		t.Errorf("dense h = %f, factored h = %f", hDense, hFact)
	}
}

func TestRiemannianMetricNotPositiveDefinite(t *testing.T) {
	indefinite := func(x ham.Vector) mat.Matrix {
		return mat.NewSymDense(2, []float64{1, 2, 2, 1})
	}
	sys, err := NewDenseRiemannian(quadPot, indefinite, &RiemannianOptions{
		GradPotEnergy:  quadGrad,
		Differentiator: diff.NewNumeric(),
	})
	if err != nil {
		t.Fatal(err)
	}

	s := ham.NewState(ham.Vector{1, 1}, ham.Vector{0.5, 0.5})
	if _, err := sys.H(s); err == nil {
		t.Fatal("expected factorization error for indefinite metric")
	}
}
