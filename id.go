package corelet

import "sync/atomic"

// Identifier is a process-wide, monotonically increasing value unique for
// the lifetime of the process. Zero is reserved as the invalid identifier;
// [NextIdentifier] never returns it. Object identifiers and connection
// identifiers are drawn from the same generator (spec allows either
// sharing one generator or using two independent ones; a single generator
// is simpler and just as collision-free).
type Identifier uint64

// counter is the process-wide generator. Starting at 1 keeps 0 reserved.
var counter atomic.Uint64

// NextIdentifier returns a fresh, wait-free, collision-free Identifier.
// Safe to call from any goroutine.
func NextIdentifier() Identifier {
	return Identifier(counter.Add(1))
}

// Valid reports whether id is not the reserved invalid value.
func (id Identifier) Valid() bool {
	return id != 0
}
