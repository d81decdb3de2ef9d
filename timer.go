package corelet

import (
	"sync"
	"time"
)

// sleeper abstracts the passage of time so timers can be tested without
// real waits; NewTimer installs realSleeper.
type sleeper interface {
	sleep(d time.Duration) <-chan time.Time
}

type realSleeper struct{}

func (realSleeper) sleep(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Timer fires SignalTimeout once per interval while active, either once
// (single-shot) or repeatedly. Interval expiry is detected on a private
// scheduler goroutine, but the generation check and the SignalTimeout
// Emit itself are always posted to, and run on, the timer's bound loop —
// the same thread-affinity guarantee every other event source in this
// package provides. See spec.md §6 for the full state/operation table;
// §9 Design Notes and the original implementation's delayed-start test
// both require Start to arm on the calling goroutine synchronously,
// rather than by posting a "start" event to loop — a timer whose owner
// Start()s it and immediately drops the last strong reference must still
// fire, since arming has already happened by the time Start returns.
type Timer struct {
	Base[Timer]

	// SignalTimeout fires, per its own resolved ConnectionType, every
	// time the timer's interval elapses while active.
	SignalTimeout Signal0

	mu         sync.Mutex
	interval   time.Duration
	repeating  bool
	active     bool
	generation uint64
	sleep      sleeper
	metrics    *metricsCounters
}

// NewTimer constructs a Timer bound to loop, built via Build so its
// Base[Timer] (and therefore Affine/weak-self) is valid immediately.
func NewTimer(loop *EventLoop) *Timer {
	t := Build(loop, func() *Timer {
		return &Timer{sleep: realSleeper{}}
	})
	t.metrics = loop.metrics
	return t
}

// GetActive reports whether the timer currently has an outstanding
// scheduled fire.
func (t *Timer) GetActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Start arms (or re-arms) the timer to fire SignalTimeout after interval.
// If repeating is true it keeps re-arming itself after each fire until
// Stop is called; otherwise it fires once and goes inactive. Calling
// Start while already active cancels the previous arm and starts fresh —
// a stale wakeup from the cancelled arm is a no-op, detected via the
// generation counter.
//
// Start spawns its waiting goroutine synchronously, before returning, so
// the timer is "armed" the instant Start returns regardless of whether
// the caller retains a strong reference afterward.
func (t *Timer) Start(interval time.Duration, repeating bool) {
	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.interval = interval
	t.repeating = repeating
	t.active = true
	t.mu.Unlock()

	t.metrics.recordTimerArmed()
	t.arm(gen, interval)
}

// arm spawns the goroutine that waits out interval and, if still the
// current generation, fires.
func (t *Timer) arm(gen uint64, interval time.Duration) {
	ch := t.sleep.sleep(interval)
	go func() {
		<-ch
		t.fire(gen)
	}()
}

// fire runs on the timer's own private scheduler goroutine (spawned by
// arm) when interval has elapsed. Rather than checking the generation and
// emitting SignalTimeout itself — which would run receiver slots on this
// background goroutine instead of the timer's bound loop, breaking
// thread affinity for Direct/same-loop-Auto connections — it posts a
// slot event to t.Loop() that does the check-and-emit, so SignalTimeout
// always fires on the loop's consumer goroutine, and a fire racing a
// Stop()ped or never-Active loop simply sits queued rather than running.
func (t *Timer) fire(gen uint64) {
	t.Loop().PostEvent(newSlotEvent(func() {
		t.mu.Lock()
		if gen != t.generation || !t.active {
			t.mu.Unlock()
			return
		}
		repeating := t.repeating
		interval := t.interval
		if !repeating {
			t.active = false
		}
		t.mu.Unlock()

		t.metrics.recordTimerFired()
		t.SignalTimeout.Emit()

		if repeating {
			t.mu.Lock()
			stillCurrent := gen == t.generation && t.active
			t.mu.Unlock()
			if stillCurrent {
				t.arm(gen, interval)
			}
		}
	}))
}

// Stop deactivates the timer. Any in-flight wakeup from a previously
// armed generation becomes a no-op. Safe to call on an inactive timer.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.active = false
	t.generation++
	t.mu.Unlock()
}
