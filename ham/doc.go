// Package ham provides the core types shared by every Hamiltonian
// system variant: dense vectors, the chain state with its
// generation-stamped memoization cache, and the interfaces an outer
// sampler drives.
//
// # Caching model
//
// Derived quantities (energies, gradients, factorizations) are cached
// in the State keyed by quantity name and tagged with the set of state
// fields they were computed from. Reassigning position or momentum
// bumps that field's generation stamp; stale entries are recomputed
// lazily on next access, never purged eagerly. A multi-valued
// computation (one differentiation call yielding value and gradient
// together) populates several entries atomically.
//
// # Thread safety
//
// States are not safe for concurrent mutation: each logical sampling
// chain owns its own State. Systems are immutable after construction
// and may be shared read-only across chains.
package ham
