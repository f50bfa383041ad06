package ham

// System is the capability set an outer sampler drives: total energy,
// its partial derivatives, and momentum resampling. All methods are
// pure functions of (System, State) with memoization living in the
// State.
type System interface {
	H(s *State) (float64, error)
	DhDPos(s *State) (Vector, error)
	DhDMom(s *State) (Vector, error)
	SampleMomentum(s *State, rng NormalSource) (Vector, error)
}

// EnergyEvaluable is the potential-energy capability shared by every
// system variant.
type EnergyEvaluable interface {
	PotEnergy(s *State) (float64, error)
	GradPotEnergy(s *State) (Vector, error)
}

// NormalSource supplies standard-normal variates. *math/rand/v2.Rand
// satisfies it; no process-wide generator is ever consulted.
type NormalSource interface {
	NormFloat64() float64
}

// DrawNormal draws an n-dimensional standard-normal vector from rng.
func DrawNormal(n int, rng NormalSource) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	return v
}
