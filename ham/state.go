package ham

// Field identifies the mutable fields of a State that cached quantities
// may depend on.
type Field uint8

const (
	FieldPos Field = 1 << iota
	FieldMom
)

type cacheEntry struct {
	value  any
	deps   Field
	posGen uint64
	momGen uint64
}

// State holds a position/momentum pair together with a memoization
// cache for quantities derived from them. Position and momentum must
// have matching length; this is a precondition, not a runtime check.
//
// A State belongs to a single sampling chain and is not safe for
// concurrent mutation. Systems hold no per-call state of their own, so
// one immutable System may serve many States.
type State struct {
	pos    Vector
	mom    Vector
	posGen uint64
	momGen uint64
	cache  map[string]cacheEntry
}

func NewState(pos, mom Vector) *State {
	return &State{pos: pos, mom: mom, cache: make(map[string]cacheEntry)}
}

func (s *State) Pos() Vector { return s.pos }
func (s *State) Mom() Vector { return s.mom }

// NDim returns the dimensionality of the position space.
func (s *State) NDim() int { return len(s.pos) }

// SetPos replaces the position and marks every position-dependent
// cache entry stale. Entries are recomputed lazily on next access.
func (s *State) SetPos(pos Vector) {
	s.pos = pos
	s.posGen++
}

// SetMom replaces the momentum and marks every momentum-dependent
// cache entry stale.
func (s *State) SetMom(mom Vector) {
	s.mom = mom
	s.momGen++
}

// Clone returns an independent State with copied vectors and an empty
// cache.
func (s *State) Clone() *State {
	return NewState(s.pos.Clone(), s.mom.Clone())
}

func (s *State) fresh(e cacheEntry) bool {
	if e.deps&FieldPos != 0 && e.posGen != s.posGen {
		return false
	}
	if e.deps&FieldMom != 0 && e.momGen != s.momGen {
		return false
	}
	return true
}

func (s *State) store(key string, deps Field, value any) {
	s.cache[key] = cacheEntry{
		value:  value,
		deps:   deps,
		posGen: s.posGen,
		momGen: s.momGen,
	}
}

// Cached returns the value stored under key if it is still fresh with
// respect to the fields in deps, otherwise invokes compute and caches
// the result stamped with the current generations. Errors from compute
// propagate without populating the cache.
func Cached[T any](s *State, deps Field, key string, compute func() (T, error)) (T, error) {
	if e, ok := s.cache[key]; ok && s.fresh(e) {
		return e.value.(T), nil
	}
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	s.store(key, deps, v)
	return v, nil
}

// CachedMulti is the multi-valued variant of Cached: one computation
// produces several named results sharing a dependency set (for example
// a combined gradient-and-value differentiation call). All entries are
// stored atomically from one compute invocation and the value for
// keys[0] is returned. Freshness is decided by keys[0]; later requests
// for the cheaper secondary quantities are served from cache.
func CachedMulti(s *State, deps Field, keys []string, compute func() ([]any, error)) (any, error) {
	if e, ok := s.cache[keys[0]]; ok && s.fresh(e) {
		return e.value, nil
	}
	values, err := compute()
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		s.store(key, deps, values[i])
	}
	return values[0], nil
}
