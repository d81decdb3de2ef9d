package corelet

// ConnectionType selects how a slot is invoked relative to the emitter's
// goroutine and the receiver's loop. See spec.md §4.5.
type ConnectionType int

const (
	// Auto resolves to Direct if the emitter is running on the receiver's
	// loop (i.e. Emit is called from inside that loop's current Run or
	// ProcessEvents), otherwise Queued. Resolved once per Emit call, not
	// once per Connect.
	Auto ConnectionType = iota
	// Direct invokes the slot synchronously, on the emitter's goroutine,
	// before Emit returns.
	Direct
	// Queued posts the slot as an Event to the receiver's loop and returns
	// immediately; the slot runs whenever that loop next drains it.
	Queued
	// BlockingQueued posts the slot to the receiver's loop and blocks the
	// emitter until it has run — except when the emitter is already the
	// receiver loop's current consumer goroutine, in which case posting
	// would deadlock (the loop can't drain the event it's waiting on), so
	// it downgrades to Direct. See spec.md §9 Design Notes.
	BlockingQueued
)

func (t ConnectionType) String() string {
	switch t {
	case Auto:
		return "Auto"
	case Direct:
		return "Direct"
	case Queued:
		return "Queued"
	case BlockingQueued:
		return "BlockingQueued"
	default:
		return "Unknown"
	}
}

// ConnectionID identifies a single live Connect call, returned so callers
// can later Disconnect it.
type ConnectionID Identifier

// Affine is implemented by any receiver that can be the target of a
// Connect call: it has a home loop and a stable identity. Base[T]
// (embedded in every corelet Object) implements it.
type Affine interface {
	Loop() *EventLoop
	ID() Identifier
}

// resolveDelivery decides, for one Emit call, the concrete mode a
// connection of the given declared ConnectionType actually dispatches
// through against target's current state. Shared by every Signal*
// arity's Emit.
func resolveDelivery(connType ConnectionType, target Affine) ConnectionType {
	loop := target.Loop()
	switch connType {
	case Direct:
		return Direct
	case Queued:
		return Queued
	case BlockingQueued:
		if loop != nil && loop.isRunningThread() {
			return Direct
		}
		return BlockingQueued
	default: // Auto
		if loop != nil && loop.isRunningThread() {
			return Direct
		}
		return Queued
	}
}
