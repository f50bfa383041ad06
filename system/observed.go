package system

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
	"github.com/hmclab/hamgeo/linalg"
)

// generatorConstraint is the implicit constraint capability of an
// observed-generator system: constr = generator(pos) − observedOutput,
// jacob_constr = jacob_generator. Generator quantities are cached
// under their own keys so the constraint view never recomputes them.
type generatorConstraint struct {
	generatorFn diff.VectorFunc
	jacobFn     diff.JacobianFunc
	obsOutput   ham.Vector
}

func (c *generatorConstraint) generator(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos, keyGenerator, func() (ham.Vector, error) {
		return c.generatorFn(s.Pos()), nil
	})
}

func (c *generatorConstraint) jacobGenerator(s *ham.State) (*mat.Dense, error) {
	v, err := ham.CachedMulti(s, ham.FieldPos,
		[]string{keyJacobGenerator, keyGenerator},
		func() ([]any, error) {
			jac, val := c.jacobFn(s.Pos())
			return []any{jac, val}, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(*mat.Dense), nil
}

func (c *generatorConstraint) Constr(s *ham.State) (ham.Vector, error) {
	gen, err := c.generator(s)
	if err != nil {
		return nil, err
	}
	return gen.Sub(c.obsOutput), nil
}

func (c *generatorConstraint) JacobConstr(s *ham.State) (*mat.Dense, error) {
	return c.jacobGenerator(s)
}

// ObservedGeneratorSystem specializes a constrained system to the
// manifold where a forward generator reproduces a fixed observed
// output. The Hamiltonian gains the log-density correction
// log det sqrt Gram from the generator's Jacobian Gram matrix.
type ObservedGeneratorSystem struct {
	*ConstrainedSystem
	gen   *generatorConstraint
	mhpFn diff.MHPFunc
}

// ObservedGeneratorOptions carries the optional derivative overrides
// for observed-generator construction.
type ObservedGeneratorOptions struct {
	JacobGenerator diff.JacobianFunc
	MHPGenerator   diff.MHPFunc
	Differentiator diff.Differentiator
}

// NewObservedGenerator wraps a Euclidean-metric system (whose
// potential is the negative log input density) with the implicit
// constraint generator(pos) = obsOutput.
func NewObservedGenerator(base *EuclideanSystem, generator diff.VectorFunc, obsOutput ham.Vector, opts *ObservedGeneratorOptions) (*ObservedGeneratorSystem, error) {
	if opts == nil {
		opts = &ObservedGeneratorOptions{}
	}
	jacobFn, err := resolveJacobian(opts.JacobGenerator, generator, opts.Differentiator, "Jacobian of generator")
	if err != nil {
		return nil, err
	}
	mhpFn, err := resolveMHP(opts.MHPGenerator, generator, opts.Differentiator, "MHP of generator")
	if err != nil {
		return nil, err
	}
	gen := &generatorConstraint{
		generatorFn: generator,
		jacobFn:     jacobFn,
		obsOutput:   obsOutput.Clone(),
	}
	return &ObservedGeneratorSystem{
		ConstrainedSystem: &ConstrainedSystem{EuclideanSystem: base, constraint: gen},
		gen:               gen,
		mhpFn:             mhpFn,
	}, nil
}

// Generator returns the forward generator output at the state's
// position.
func (o *ObservedGeneratorSystem) Generator(s *ham.State) (ham.Vector, error) {
	return o.gen.generator(s)
}

// JacobGenerator returns the generator Jacobian at the state's
// position.
func (o *ObservedGeneratorSystem) JacobGenerator(s *ham.State) (*mat.Dense, error) {
	return o.gen.jacobGenerator(s)
}

func (o *ObservedGeneratorSystem) mhpGenerator(s *ham.State) (func(mat.Matrix) ham.Vector, error) {
	v, err := ham.CachedMulti(s, ham.FieldPos,
		[]string{keyMHPGenerator, keyJacobGenerator, keyGenerator},
		func() ([]any, error) {
			mhp, jac, val := o.mhpFn(s.Pos())
			return []any{mhp, jac, val}, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(func(mat.Matrix) ham.Vector), nil
}

// LogDetSqrtGram is half the log-determinant of the generator's Gram
// matrix, the log-density correction added to the Hamiltonian.
func (o *ObservedGeneratorSystem) LogDetSqrtGram(s *ham.State) (float64, error) {
	return ham.Cached(s, ham.FieldPos, keyLogDetSqrtGram, func() (float64, error) {
		cholGram, err := o.CholGram(s)
		if err != nil {
			return 0, err
		}
		return linalg.LogDetTri(cholGram), nil
	})
}

// GradLogDetSqrtGram is the position-gradient of LogDetSqrtGram,
// obtained by feeding Gram⁻¹ · jacob_generator through the generator's
// MHP operator.
func (o *ObservedGeneratorSystem) GradLogDetSqrtGram(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos, keyGradLogDetSqrtGram, func() (ham.Vector, error) {
		jac, err := o.gen.jacobGenerator(s)
		if err != nil {
			return nil, err
		}
		cholGram, err := o.CholGram(s)
		if err != nil {
			return nil, err
		}
		mhp, err := o.mhpGenerator(s)
		if err != nil {
			return nil, err
		}
		return mhp(linalg.SolveCholMat(cholGram, jac)), nil
	})
}

func (o *ObservedGeneratorSystem) H(s *ham.State) (float64, error) {
	pot, err := o.PotEnergy(s)
	if err != nil {
		return 0, err
	}
	logDet, err := o.LogDetSqrtGram(s)
	if err != nil {
		return 0, err
	}
	kin, err := o.KinEnergy(s)
	if err != nil {
		return 0, err
	}
	return pot + logDet + kin, nil
}

func (o *ObservedGeneratorSystem) DhDPos(s *ham.State) (ham.Vector, error) {
	gradPot, err := o.GradPotEnergy(s)
	if err != nil {
		return nil, err
	}
	gradLogDet, err := o.GradLogDetSqrtGram(s)
	if err != nil {
		return nil, err
	}
	return gradPot.Add(gradLogDet), nil
}
