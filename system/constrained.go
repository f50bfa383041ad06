package system

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
	"github.com/hmclab/hamgeo/linalg"
)

// ConstraintCapable is the equality-constraint capability: a function
// that vanishes on the constraint manifold and its Jacobian, both
// cached on position.
type ConstraintCapable interface {
	Constr(s *ham.State) (ham.Vector, error)
	JacobConstr(s *ham.State) (*mat.Dense, error)
}

// explicitConstraint wraps user-supplied constraint and Jacobian
// functions.
type explicitConstraint struct {
	constrFn diff.VectorFunc
	jacobFn  diff.JacobianFunc
}

func (c *explicitConstraint) Constr(s *ham.State) (ham.Vector, error) {
	return ham.Cached(s, ham.FieldPos, keyConstr, func() (ham.Vector, error) {
		return c.constrFn(s.Pos()), nil
	})
}

func (c *explicitConstraint) JacobConstr(s *ham.State) (*mat.Dense, error) {
	v, err := ham.CachedMulti(s, ham.FieldPos,
		[]string{keyJacobConstr, keyConstr},
		func() ([]any, error) {
			jac, val := c.jacobFn(s.Pos())
			return []any{jac, val}, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(*mat.Dense), nil
}

// ConstrainedSystem wraps a Euclidean-metric system with an equality
// constraint, projecting sampled momenta onto the constraint tangent
// space through a Cholesky-factored Gram matrix.
type ConstrainedSystem struct {
	*EuclideanSystem
	constraint ConstraintCapable
}

// ConstrainedOptions carries the optional constraint-Jacobian override.
type ConstrainedOptions struct {
	JacobConstr    diff.JacobianFunc
	Differentiator diff.Differentiator
}

// NewConstrained wraps any Euclidean-metric system with constr, which
// must vanish on the constraint manifold.
func NewConstrained(base *EuclideanSystem, constr diff.VectorFunc, opts *ConstrainedOptions) (*ConstrainedSystem, error) {
	if opts == nil {
		opts = &ConstrainedOptions{}
	}
	jacobFn, err := resolveJacobian(opts.JacobConstr, constr, opts.Differentiator, "Jacobian of constraint")
	if err != nil {
		return nil, err
	}
	return &ConstrainedSystem{
		EuclideanSystem: base,
		constraint:      &explicitConstraint{constrFn: constr, jacobFn: jacobFn},
	}, nil
}

func (c *ConstrainedSystem) Constr(s *ham.State) (ham.Vector, error) {
	return c.constraint.Constr(s)
}

func (c *ConstrainedSystem) JacobConstr(s *ham.State) (*mat.Dense, error) {
	return c.constraint.JacobConstr(s)
}

// invMetricJacobConstrT is metric⁻¹ · Jᵀ, cached on position.
func (c *ConstrainedSystem) invMetricJacobConstrT(s *ham.State) (*mat.Dense, error) {
	return ham.Cached(s, ham.FieldPos, keyInvMetricJacobT, func() (*mat.Dense, error) {
		jac, err := c.constraint.JacobConstr(s)
		if err != nil {
			return nil, err
		}
		return c.metric.MultInvMetric(jac.T()), nil
	})
}

// CholGram returns the lower Cholesky factor of the Gram matrix
// J · metric⁻¹ · Jᵀ. A rank-deficient constraint Jacobian makes the
// Gram matrix non-positive-definite and surfaces here as a
// linear-algebra error.
func (c *ConstrainedSystem) CholGram(s *ham.State) (*mat.TriDense, error) {
	return ham.Cached(s, ham.FieldPos, keyCholGram, func() (*mat.TriDense, error) {
		jac, err := c.constraint.JacobConstr(s)
		if err != nil {
			return nil, err
		}
		imjt, err := c.invMetricJacobConstrT(s)
		if err != nil {
			return nil, err
		}
		r, _ := jac.Dims()
		gram := mat.NewDense(r, r, nil)
		gram.Mul(jac, imjt)
		l, err := linalg.CholeskyLower(linalg.SymFromMatrix(gram))
		if err != nil {
			return nil, fmt.Errorf("system: constraint Gram matrix: %w", err)
		}
		return l, nil
	})
}

// ProjectOntoTangentSpace removes, in place, the component of mom
// normal to the constraint manifold at the state's position:
// mom -= Jᵀ · Gram⁻¹ · J · metric⁻¹ · mom. After projection
// JacobConstr(s) · mom vanishes up to numerical tolerance, and a
// second application is a no-op.
func (c *ConstrainedSystem) ProjectOntoTangentSpace(mom ham.Vector, s *ham.State) error {
	jac, err := c.constraint.JacobConstr(s)
	if err != nil {
		return err
	}
	cholGram, err := c.CholGram(s)
	if err != nil {
		return err
	}
	normal := linalg.MulVec(jac, c.metric.MultInvMetricVec(mom))
	corr := linalg.MulVecTrans(jac, linalg.SolveCholVec(cholGram, normal))
	for i := range mom {
		mom[i] -= corr[i]
	}
	return nil
}

// SolveDhDMomForMom recovers the momentum matching a position
// velocity, for constrained integrators driving this system.
func (c *ConstrainedSystem) SolveDhDMomForMom(dposDt ham.Vector) ham.Vector {
	return c.metric.MultMetricVec(dposDt)
}

// SampleMomentum draws from the unconstrained marginal and projects
// onto the tangent space.
func (c *ConstrainedSystem) SampleMomentum(s *ham.State, rng ham.NormalSource) (ham.Vector, error) {
	mom, err := c.EuclideanSystem.SampleMomentum(s, rng)
	if err != nil {
		return nil, err
	}
	if err := c.ProjectOntoTangentSpace(mom, s); err != nil {
		return nil, err
	}
	return mom, nil
}
