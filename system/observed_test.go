package system

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
	"github.com/hmclab/hamgeo/linalg"
)

// normSqGenerator maps the input to its squared norm, an observed
// scalar summary with analytic Jacobian and Hessian contractions.
func normSqGenerator(x ham.Vector) ham.Vector {
	return ham.Vector{x.Dot(x)}
}

func normSqJacob(x ham.Vector) (*mat.Dense, ham.Vector) {
	jac := mat.NewDense(1, len(x), nil)
	for i := range x {
		jac.Set(0, i, 2*x[i])
	}
	return jac, normSqGenerator(x)
}

func normSqMHP(x ham.Vector) (func(cot mat.Matrix) ham.Vector, *mat.Dense, ham.Vector) {
	jac, val := normSqJacob(x)
	mhp := func(cot mat.Matrix) ham.Vector {
		out := make(ham.Vector, len(x))
		for k := range out {
			out[k] = 2 * cot.At(0, k)
		}
		return out
	}
	return mhp, jac, val
}

func newNormSqSystem(t *testing.T, obs ham.Vector) *ObservedGeneratorSystem {
	t.Helper()
	base, err := NewIsotropicEuclidean(quadPot, &EuclideanOptions{GradPotEnergy: quadGrad})
	if err != nil {
		t.Fatal(err)
	}
	sys, err := NewObservedGenerator(base, normSqGenerator, obs, &ObservedGeneratorOptions{
		JacobGenerator: normSqJacob,
		MHPGenerator:   normSqMHP,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sys
}

func TestObservedConstrIsGeneratorMinusObservation(t *testing.T) {
	sys := newNormSqSystem(t, ham.Vector{1})

	pos := ham.Vector{0.6, 0.8}
	s := ham.NewState(pos, ham.Vector{0, 0})

	gen, err := sys.Generator(s)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(gen[0]-1) > 1e-12 {
		t.Errorf("generator = %g, want 1", gen[0])
	}

	c, err := sys.Constr(s)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(c[0]) > 1e-12 {
		t.Errorf("constraint = %g, want 0 when generator matches observation", c[0])
	}

	off := ham.NewState(ham.Vector{2, 0}, ham.Vector{0, 0})
	c, err = sys.Constr(off)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(c[0]-3) > 1e-12 {
		t.Errorf("constraint = %g, want 3", c[0])
	}
}

func TestObservedLogDetSqrtGram(t *testing.T) {
	sys := newNormSqSystem(t, ham.Vector{1})

	pos := ham.Vector{0.6, 0.8}
	s := ham.NewState(pos.Clone(), ham.Vector{0, 0})

	// Gram = J·Jᵀ = 4‖x‖², so the correction is ½ log(4‖x‖²).
	logDet, err := sys.LogDetSqrtGram(s)
	if err != nil {
		t.Fatal(err)
	}
	want := 0.5 * math.Log(4*pos.Dot(pos))
	if math.Abs(logDet-want) > 1e-12 {
		t.Errorf("log det sqrt gram = %g, want %g", logDet, want)
	}

	grad, err := sys.GradLogDetSqrtGram(s)
	if err != nil {
		t.Fatal(err)
	}
	nsq := pos.Dot(pos)
	for k := range pos {
		want := pos[k] / nsq
		if math.Abs(grad[k]-want) > 1e-12 {
			t.Errorf("grad log det sqrt gram[%d] = %g, want %g", k, grad[k], want)
		}
	}
}

func TestObservedHamiltonianIncludesCorrection(t *testing.T) {
	sys := newNormSqSystem(t, ham.Vector{1})

	pos := ham.Vector{0.6, 0.8}
	mom := ham.Vector{0.5, -0.5}
	s := ham.NewState(pos.Clone(), mom.Clone())

	h, err := sys.H(s)
	if err != nil {
		t.Fatal(err)
	}
	want := 0.5*pos.Dot(pos) + 0.5*math.Log(4*pos.Dot(pos)) + 0.5*mom.Dot(mom)
	if math.Abs(h-want) > 1e-12 {
		t.Errorf("h = %g, want %g", h, want)
	}

	dhdp, err := sys.DhDPos(s)
	if err != nil {
		t.Fatal(err)
	}
	nsq := pos.Dot(pos)
	for k := range pos {
		want := pos[k] + pos[k]/nsq
		if math.Abs(dhdp[k]-want) > 1e-12 {
			t.Errorf("dh/dpos[%d] = %g, want %g", k, dhdp[k], want)
		}
	}
}

func TestObservedGradientsMatchFiniteDifferences(t *testing.T) {
	sys := newNormSqSystem(t, ham.Vector{1})
	checkGradsAgainstH(t, sys, ham.Vector{0.6, 0.8}, ham.Vector{0.3, -0.7}, 1e-5)
	checkGradsAgainstH(t, sys, ham.Vector{-1.2, 0.5}, ham.Vector{0.9, 0.1}, 1e-5)
}

func TestObservedNumericDerivatives(t *testing.T) {
	base, err := NewIsotropicEuclidean(quadPot, &EuclideanOptions{GradPotEnergy: quadGrad})
	if err != nil {
		t.Fatal(err)
	}
	sys, err := NewObservedGenerator(base, normSqGenerator, ham.Vector{1}, &ObservedGeneratorOptions{
		Differentiator: diff.NewNumeric(),
	})
	if err != nil {
		t.Fatal(err)
	}

	pos := ham.Vector{0.6, 0.8}
	s := ham.NewState(pos.Clone(), ham.Vector{0, 0})
	grad, err := sys.GradLogDetSqrtGram(s)
	if err != nil {
		t.Fatal(err)
	}
	nsq := pos.Dot(pos)
	for k := range pos {
		want := pos[k] / nsq
		if math.Abs(grad[k]-want) > 1e-3 {
			t.Errorf("grad log det sqrt gram[%d] = %g, want %g", k, grad[k], want)
		}
	}
}

func TestObservedSampleMomentumTangent(t *testing.T) {
	sys := newNormSqSystem(t, ham.Vector{1})
	pos := ham.Vector{0.6, 0.8}
	s := ham.NewState(pos, ham.Vector{0, 0})
	rng := testRNG()

	for i := 0; i < 20; i++ {
		mom, err := sys.SampleMomentum(s, rng)
		if err != nil {
			t.Fatal(err)
		}
		jac, err := sys.JacobGenerator(s)
		if err != nil {
			t.Fatal(err)
		}
		residual := linalg.MulVec(jac, sys.Metric().MultInvMetricVec(mom))
		if math.Abs(residual[0]) > 1e-10 {
			t.Errorf("sampled momentum not tangent: J·mom = %g", residual[0])
		}
	}
}

func TestObservedMissingDifferentiator(t *testing.T) {
	base, err := NewIsotropicEuclidean(quadPot, &EuclideanOptions{GradPotEnergy: quadGrad})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewObservedGenerator(base, normSqGenerator, ham.Vector{1}, nil); err == nil {
		t.Fatal("expected configuration error without Jacobian or differentiator")
	}
}
