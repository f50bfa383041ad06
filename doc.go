// Package hamgeo provides the mathematical core for gradient-based
// Markov-chain Monte-Carlo samplers: Hamiltonian system abstractions
// that evaluate a total energy H(pos, mom) and its partial derivatives
// under several geometric assumptions about the sampled space.
//
// The packages layer bottom-up:
//
//   - [github.com/hmclab/hamgeo/ham]: state vectors, the per-state
//     memoization cache, and the System interface driven by an outer
//     sampler.
//   - [github.com/hmclab/hamgeo/diff]: derivative function types and
//     the differentiation collaborator interface, with a
//     finite-difference implementation.
//   - [github.com/hmclab/hamgeo/linalg]: Cholesky, triangular-solve and
//     symmetric-eigendecomposition helpers over gonum.
//   - [github.com/hmclab/hamgeo/system]: the Hamiltonian system
//     variants (Euclidean, Riemannian, SoftAbs, constrained,
//     observed-generator).
//   - [github.com/hmclab/hamgeo/model]: example target distributions
//     with analytic derivatives.
//
// Integration, acceptance rules and chain orchestration live in the
// caller; this module is a pure function library evaluated repeatedly
// by an external scheduler.
package hamgeo
