package corelet

import "sync/atomic"

// LoopState is the lifecycle state of an EventLoop. See spec.md §4.3 for
// the full state transition table.
type LoopState int32

const (
	// Inactive: created but not started, or fully stopped and drained back
	// to rest. Start moves it to Active; queued events survive the trip.
	Inactive LoopState = iota
	// Active: a thread may be (or may become) draining the queue, via Run
	// or ProcessEvents.
	Active
	// Stopping: a stop has been requested or drained; Run is unwinding back
	// to Inactive, or has already settled there.
	Stopping
)

func (s LoopState) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Active:
		return "Active"
	case Stopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// loopState is a small lock-free state holder shared by EventLoop.
type loopState struct {
	v atomic.Int32
}

func (s *loopState) load() LoopState {
	return LoopState(s.v.Load())
}

func (s *loopState) store(v LoopState) {
	s.v.Store(int32(v))
}

func (s *loopState) compareAndSwap(from, to LoopState) bool {
	return s.v.CompareAndSwap(int32(from), int32(to))
}
