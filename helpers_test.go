package corelet

import (
	"runtime"
	"time"
)

// forceGC makes weak-pointer expiry observable promptly in tests; real
// callers rely on ordinary GC cadence instead of forcing collections.
func forceGC() {
	runtime.GC()
	runtime.GC()
}

// processUntil calls loop.ProcessEvents on the calling goroutine every tick
// until cond reports true or waitFor elapses, and reports whether cond held.
// It stays on one goroutine because ProcessEvents only accepts the goroutine
// associated with the loop; a ProcessEvents error ends the wait with false.
func processUntil(loop *EventLoop, cond func() bool, waitFor, tick time.Duration) bool {
	deadline := time.Now().Add(waitFor)
	for {
		if err := loop.ProcessEvents(); err != nil {
			return false
		}
		if cond() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(tick)
	}
}
