// Package system implements the Hamiltonian system variants driven by
// an outer MCMC sampler.
//
// Variants compose capabilities instead of inheriting them: a
// [Metric] value fixes the momentum covariance of a Euclidean system,
// a geometry value fixes the position-dependent metric of a Riemannian
// system, and a [ConstraintCapable] value restricts a Euclidean system
// to a sub-manifold. Which operations a concrete system supports is a
// compile-time property of its type, not a runtime failure.
//
//   - [EuclideanSystem]: separable, fixed isotropic/diagonal/dense
//     metric.
//   - [RiemannianSystem]: non-separable, position-dependent metric
//     given densely, through its Cholesky factor, or by SoftAbs
//     eigen-regularization of the potential's Hessian.
//   - [ConstrainedSystem]: Euclidean system restricted to the zero set
//     of a constraint function, with tangent-space momentum
//     projection.
//   - [ObservedGeneratorSystem]: constrained system whose manifold is
//     defined implicitly by generator(pos) = observed output, with the
//     Gram-determinant density correction.
//
// Optional user-supplied derivatives resolve at construction time
// against the configured [diff.Differentiator]; a missing derivative
// is a [ConfigError], never a per-call failure. Dimension agreement
// between position, momentum and metric is a documented precondition
// and is not validated at runtime.
package system
