package corelet

import (
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// widget is a minimal Affine receiver used across the signal tests.
type widget struct {
	Base[widget]
	hits atomic.Int64
}

func (w *widget) bump() { w.hits.Add(1) }

func newWidget(loop *EventLoop) *widget {
	return Build(loop, func() *widget { return &widget{} })
}

// S4: same-thread Queued self-signal, building "01234" by appending then
// re-emitting until x>4.
func TestSignal_SameThreadQueuedSelfEmit(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()

	type chainer struct {
		Base[chainer]
		out  string
		self *Signal1[int]
	}
	c := Build(loop, func() *chainer {
		return &chainer{self: new(Signal1[int])}
	})
	Connect1(c.self, c, func(recv *chainer, x int) {
		if x > 4 {
			return
		}
		recv.out += strconv.Itoa(x)
		recv.self.Emit(x + 1)
	}, Queued)

	c.self.Emit(0)
	require.NoError(t, loop.ProcessEvents())
	// Each Queued re-entrant emit enqueues one more event; drain until
	// quiescent.
	for i := 0; i < 10 && loop.queue.pending != nil; i++ {
		require.NoError(t, loop.ProcessEvents())
	}

	require.Equal(t, "01234", c.out)
}

// S5: same-thread BlockingQueued self-signal downgrades to Direct, so the
// full recursive unwind completes before Emit(0) returns, producing
// "43210".
func TestSignal_SameThreadBlockingQueuedSelfEmit(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()

	type chainer struct {
		Base[chainer]
		out  string
		self *Signal1[int]
	}
	c := Build(loop, func() *chainer {
		return &chainer{self: new(Signal1[int])}
	})
	Connect1(c.self, c, func(recv *chainer, x int) {
		if x > 4 {
			return
		}
		recv.self.Emit(x + 1)
		recv.out += strconv.Itoa(x)
	}, BlockingQueued)

	require.NoError(t, loop.ProcessEvents()) // establish this goroutine as the loop's consumer
	c.self.Emit(0)

	require.Equal(t, "43210", c.out)
}

// S6: one signal, four receivers, 100 emits => 400 total invocations.
func TestSignal_FanOutFourReceiversHundredEmits(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()

	var sig Signal0
	receivers := make([]*widget, 4)
	for i := range receivers {
		w := newWidget(loop)
		Connect0(&sig, w, (*widget).bump, Direct)
		receivers[i] = w
	}

	for range 100 {
		sig.Emit()
	}

	var total int64
	for _, w := range receivers {
		total += w.hits.Load()
	}
	require.Equal(t, int64(400), total)
}

// Invariant 4: connection registry validity before/after Disconnect.
func TestSignal_ConnectionRegistryValidity(t *testing.T) {
	loop := NewEventLoop()
	w := newWidget(loop)

	var sig Signal0
	id := Connect0(&sig, w, (*widget).bump, Direct)
	require.Equal(t, 1, sig.ConnectionCount())

	require.NoError(t, sig.Disconnect(id))
	require.Equal(t, 0, sig.ConnectionCount())
	require.ErrorIs(t, sig.Disconnect(id), ErrUnknownConnection)
}

// Invariant 4 (presence-only check): ConnectionValid reports whether an id
// is still registered without probing the weak receiver reference, so it
// stays true even for a connection whose receiver has since expired, and
// only the prune performed by ConnectionCount/Emit clears it.
func TestSignal_ConnectionValidIsPresenceOnly(t *testing.T) {
	loop := NewEventLoop()

	var sig Signal0
	var id ConnectionID
	func() {
		w := newWidget(loop)
		id = Connect0(&sig, w, (*widget).bump, Direct)
	}()

	require.True(t, sig.ConnectionValid(id))

	forceGC()
	// The receiver is gone, but ConnectionValid must not probe the weak
	// reference, so it still reports the id as present.
	require.True(t, sig.ConnectionValid(id))

	sig.Emit() // prunes the expired connection as a side effect
	require.False(t, sig.ConnectionValid(id))

	require.False(t, sig.ConnectionValid(ConnectionID(NextIdentifier())))
}

// Queued delivery must pin the promoted receiver for the posted event,
// even if the caller's own last strong reference is dropped between Emit
// returning and the loop later draining the event.
func TestSignal_QueuedEmitSurvivesCallerDroppingReference(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()

	var sig Signal0
	func() {
		w := newWidget(loop)
		Connect0(&sig, w, (*widget).bump, Queued)
		sig.Emit()
		// w goes out of scope here, before the loop has drained the
		// posted event.
	}()
	forceGC()

	require.NoError(t, loop.ProcessEvents())
	require.Equal(t, 1, sig.ConnectionCount())
}

// Pruned connections are counted against the metrics of the loop each
// pruned receiver was bound to at Connect time.
func TestSignal_PrunedConnectionsRecordedInMetrics(t *testing.T) {
	loop := NewEventLoop(WithMetrics(true))

	var sig Signal0
	func() {
		w := newWidget(loop)
		Connect0(&sig, w, (*widget).bump, Direct)
	}()
	forceGC()

	sig.Emit()
	require.Equal(t, uint64(1), loop.Metrics().ConnectionsPruned)
}

// Invariant 5: dropping the last strong reference to a receiver prunes its
// connections on the next Emit.
func TestSignal_ExpiredReceiverPruned(t *testing.T) {
	loop := NewEventLoop()

	var sig Signal0
	func() {
		w := newWidget(loop)
		Connect0(&sig, w, (*widget).bump, Direct)
	}()

	// Force a GC so the weak pointer above actually clears; real process
	// usage relies on normal GC cadence, but a deterministic test needs to
	// force collection to make the expiry observable promptly.
	forceGC()

	sig.Emit() // must not panic even though the receiver is gone
	require.Equal(t, 0, sig.ConnectionCount())
}

// Invariant 6: Direct delivery runs on the emitter's goroutine.
func TestSignal_DirectRunsOnEmitterGoroutine(t *testing.T) {
	loop := NewEventLoop()
	w := newWidget(loop)

	var sig Signal0
	var ranOnEmitter bool
	callerGID := goroutineID()
	Connect0(&sig, w, func(*widget) { ranOnEmitter = goroutineID() == callerGID }, Direct)

	sig.Emit()
	require.True(t, ranOnEmitter)
}

// Invariant 7: same-thread Queued delivery runs after the current slot
// returns, not inline.
func TestSignal_SameThreadQueuedRunsAfterCurrentSlotReturns(t *testing.T) {
	loop := NewEventLoop()
	loop.Start()
	require.NoError(t, loop.ProcessEvents()) // establish consumer association

	w := newWidget(loop)
	var sig Signal0
	var notRunWhenEmitReturned bool
	Connect0(&sig, w, (*widget).bump, Queued)

	// Emit from inside a slot running on the loop itself, and confirm the
	// Queued slot hasn't run by the time Emit returns.
	loop.PostEvent(newSlotEvent(func() {
		sig.Emit()
		notRunWhenEmitReturned = w.hits.Load() == 0
	}))
	require.NoError(t, loop.ProcessEvents())
	require.True(t, notRunWhenEmitReturned)

	require.NoError(t, loop.ProcessEvents())
	require.Equal(t, int64(1), w.hits.Load())
}
