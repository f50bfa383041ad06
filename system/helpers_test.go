package system

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/hmclab/hamgeo/ham"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(42, 43))
}

// checkGradsAgainstH compares DhDPos and DhDMom with central finite
// differences of H at the state's current point.
func checkGradsAgainstH(t *testing.T, sys ham.System, pos, mom ham.Vector, tol float64) {
	t.Helper()
	s := ham.NewState(pos.Clone(), mom.Clone())

	dhdp, err := sys.DhDPos(s)
	if err != nil {
		t.Fatal(err)
	}
	dhdm, err := sys.DhDMom(s)
	if err != nil {
		t.Fatal(err)
	}

	const step = 1e-6
	hAt := func(p, m ham.Vector) float64 {
		t.Helper()
		fresh := ham.NewState(p, m)
		h, err := sys.H(fresh)
		if err != nil {
			t.Fatal(err)
		}
		return h
	}

	for i := range pos {
		pp, pm := pos.Clone(), pos.Clone()
		pp[i] += step
		pm[i] -= step
		fd := (hAt(pp, mom.Clone()) - hAt(pm, mom.Clone())) / (2 * step)
		if math.Abs(fd-dhdp[i]) > tol {
			t.Errorf("dh/dpos[%d] = %g, finite difference %g", i, dhdp[i], fd)
		}
	}
	for i := range mom {
		mp, mm := mom.Clone(), mom.Clone()
		mp[i] += step
		mm[i] -= step
		fd := (hAt(pos.Clone(), mp) - hAt(pos.Clone(), mm)) / (2 * step)
		if math.Abs(fd-dhdm[i]) > tol {
			t.Errorf("dh/dmom[%d] = %g, finite difference %g", i, dhdm[i], fd)
		}
	}
}

// quadPot is the standard Gaussian potential with its analytic
// gradient, shared across variant tests.
func quadPot(x ham.Vector) float64 {
	return 0.5 * x.Dot(x)
}

func quadGrad(x ham.Vector) (ham.Vector, float64) {
	return x.Clone(), 0.5 * x.Dot(x)
}
