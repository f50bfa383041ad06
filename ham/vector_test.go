package ham

import (
	"math"
	"testing"
)

func TestVectorOps(t *testing.T) {
	v := Vector{3, 4}

	if got := v.Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("norm: expected 5, got %f", got)
	}
	if got := v.Dot(Vector{1, 2}); math.Abs(got-11) > 1e-12 {
		t.Errorf("dot: expected 11, got %f", got)
	}

	sum := v.Add(Vector{1, -1})
	if sum[0] != 4 || sum[1] != 3 {
		t.Errorf("add: got %v", sum)
	}
	diff := v.Sub(Vector{1, 1})
	if diff[0] != 2 || diff[1] != 3 {
		t.Errorf("sub: got %v", diff)
	}
	scaled := v.Scale(2)
	if scaled[0] != 6 || scaled[1] != 8 {
		t.Errorf("scale: got %v", scaled)
	}

	c := v.Clone()
	c[0] = 0
	if v[0] != 3 {
		t.Error("clone should not alias")
	}
}

func TestVectorIsValid(t *testing.T) {
	if !(Vector{1, 2}).IsValid() {
		t.Error("finite vector reported invalid")
	}
	if (Vector{1, math.NaN()}).IsValid() {
		t.Error("NaN vector reported valid")
	}
	if (Vector{math.Inf(1)}).IsValid() {
		t.Error("Inf vector reported valid")
	}
}

func TestDrawNormalUsesInjectedSource(t *testing.T) {
	src := &fixedSource{values: []float64{0.5, -1.5, 2.0}}
	v := DrawNormal(3, src)
	if v[0] != 0.5 || v[1] != -1.5 || v[2] != 2.0 {
		t.Errorf("expected draws in order, got %v", v)
	}
}

type fixedSource struct {
	values []float64
	i      int
}

func (f *fixedSource) NormFloat64() float64 {
	v := f.values[f.i%len(f.values)]
	f.i++
	return v
}
