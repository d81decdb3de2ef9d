package corelet

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// S7: a single-shot timer fires once after roughly its interval and goes
// inactive.
func TestTimer_SingleShot(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()

	timer := NewTimer(loop)
	w := newWidget(loop)
	Connect0(&timer.SignalTimeout, w, (*widget).bump, Queued)

	start := time.Now()
	timer.Start(50*time.Millisecond, false)
	require.True(t, timer.GetActive())

	require.True(t, processUntil(loop, func() bool {
		return w.hits.Load() == 1
	}, 2*time.Second, 5*time.Millisecond))

	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.False(t, timer.GetActive())
}

// S8: a repeating timer fires (at least) three times over roughly three
// intervals and remains active.
func TestTimer_Repeating(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()

	timer := NewTimer(loop)
	w := newWidget(loop)
	Connect0(&timer.SignalTimeout, w, (*widget).bump, Queued)

	start := time.Now()
	timer.Start(33*time.Millisecond, true)

	require.True(t, processUntil(loop, func() bool {
		return w.hits.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond))

	require.GreaterOrEqual(t, time.Since(start), 99*time.Millisecond)
	require.True(t, timer.GetActive())

	timer.Stop()
}

// Invariant 10: after one timeout of a non-repeating timer, GetActive is
// false.
func TestTimer_SingleShotDeactivates(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()

	timer := NewTimer(loop)
	timer.Start(5*time.Millisecond, false)

	require.True(t, processUntil(loop, func() bool {
		return !timer.GetActive()
	}, time.Second, time.Millisecond))
}

// Timer firing must run SignalTimeout's Direct-connected slots on the
// bound loop's consumer goroutine, not the timer's private scheduler
// goroutine — the core thread-affinity guarantee spec.md §1 calls out.
func TestTimer_DirectDeliveryRunsOnLoopConsumerGoroutine(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()
	require.NoError(t, loop.ProcessEvents()) // establish this goroutine as the consumer

	timer := NewTimer(loop)
	w := newWidget(loop)
	consumerGID := goroutineID()
	var ranOnConsumer atomic.Bool
	Connect0(&timer.SignalTimeout, w, func(*widget) {
		ranOnConsumer.Store(goroutineID() == consumerGID)
	}, Direct)

	timer.Start(10*time.Millisecond, false)

	require.True(t, processUntil(loop, func() bool {
		return ranOnConsumer.Load()
	}, time.Second, 5*time.Millisecond))
}

// A timer bound to a loop that never starts must not fire its slots: the
// posted fire event just sits queued.
func TestTimer_DoesNotFireOnInactiveLoop(t *testing.T) {
	loop := NewEventLoop()

	timer := NewTimer(loop)
	w := newWidget(loop)
	Connect0(&timer.SignalTimeout, w, (*widget).bump, Queued)

	timer.Start(5*time.Millisecond, false)
	time.Sleep(30 * time.Millisecond)

	require.Equal(t, int64(0), w.hits.Load())

	loop.Start()
	require.True(t, processUntil(loop, func() bool {
		return w.hits.Load() == 1
	}, time.Second, 5*time.Millisecond))
}

// Invariant 9 (timer immediacy): Start arms on the calling goroutine
// synchronously, so the timer still fires even if the caller's strong
// reference is dropped immediately afterward.
func TestTimer_ArmsSynchronouslyAndSurvivesDroppedReference(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()

	w := newWidget(loop)

	func() {
		timer := NewTimer(loop)
		Connect0(&timer.SignalTimeout, w, (*widget).bump, Queued)
		timer.Start(10*time.Millisecond, false)
		// timer goes out of scope here; the local variable is the test's
		// only strong reference besides the weak connection above.
	}()
	forceGC()

	require.True(t, processUntil(loop, func() bool {
		return w.hits.Load() == 1
	}, time.Second, 5*time.Millisecond))
}
