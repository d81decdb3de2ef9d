package corelet

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// EventLoop is a single-consumer FIFO that drains Events on whichever
// goroutine last entered Run or ProcessEvents. At most one goroutine may
// be in the drain path (Run or ProcessEvents) at a time; a second,
// concurrent drain attempt is a contract violation (see Run/ProcessEvents
// docs below).
//
// The zero value is not usable; construct with NewEventLoop.
type EventLoop struct {
	id    Identifier
	queue *eventQueue
	state loopState

	// drainMu serializes entry into the drain path (Run/ProcessEvents),
	// enforcing the single-consumer invariant from spec.md §3/§5.
	drainMu sync.Mutex

	// runMu/runCond back Wait(): broadcast whenever state stops being
	// Active, woken goroutines re-check the predicate themselves.
	runMu   sync.Mutex
	runCond *sync.Cond

	// runningThread is the goroutine id (see goroutineID) most recently
	// recorded by Run or ProcessEvents; 0 means "no consumer currently
	// associated". Read by Signal.Emit to resolve ConnectionType.Auto and
	// to detect BlockingQueued re-entrancy.
	runningThread atomic.Uint64

	metrics *metricsCounters
	logger  *logiface.Logger[*LogEvent]
}

// NewEventLoop constructs an EventLoop in the Inactive state.
func NewEventLoop(opts ...LoopOption) *EventLoop {
	cfg := resolveLoopOptions(opts)
	l := &EventLoop{
		id:    NextIdentifier(),
		queue: newEventQueue(),
	}
	l.runCond = sync.NewCond(&l.runMu)
	if cfg.queueCapacity > 0 {
		l.queue.pending = make([]Event, 0, cfg.queueCapacity)
	}
	l.metrics = &metricsCounters{enabled: cfg.metricsEnabled}
	l.logger = cfg.logger
	return l
}

// ID returns the loop's identifier, primarily useful for logging.
func (l *EventLoop) ID() Identifier { return l.id }

// State returns the loop's current lifecycle state.
func (l *EventLoop) State() LoopState { return l.state.load() }

// Metrics returns a point-in-time snapshot of this loop's counters. Always
// zero-valued unless the loop was constructed with WithMetrics(true).
func (l *EventLoop) Metrics() Metrics { return l.metrics.snapshot() }

// Start moves the loop Inactive→Active. A no-op in any other state
// (including repeated calls while already Active); queued events survive
// a stop/start cycle untouched.
func (l *EventLoop) Start() {
	if l.state.compareAndSwap(Inactive, Active) {
		logNotice(l.logger, l.id, "loop started")
	}
}

// Stop is non-blocking: it requests the loop leave Run once the batch in
// progress has been processed (a batch already drained by Run or
// ProcessEvents still runs to its end) and wakes anything blocked on the
// queue condition. A no-op if the loop is already Inactive;
// safe from any goroutine.
func (l *EventLoop) Stop() {
	for {
		s := l.state.load()
		if s == Inactive {
			return
		}
		if l.state.compareAndSwap(s, Stopping) {
			l.queue.wake()
			return
		}
	}
}

// Wait blocks the calling goroutine until the loop is not Active. Safe
// from any goroutine; a no-op if the loop is already not Active.
func (l *EventLoop) Wait() {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	for l.state.load() == Active {
		l.runCond.Wait()
	}
}

// PostEvent enqueues ev from any goroutine; posting order from a single
// producer is preserved as invocation order at the target loop.
func (l *EventLoop) PostEvent(ev Event) {
	l.queue.push(ev)
}

// PostStopEvent enqueues a stop event. Its only effect, on invocation, is
// to transition the loop to Stopping — it carries the same FIFO ordering
// as any other posted event relative to the poster's other posts, so
// "post A, post Stop, post B" runs A, halts, and defers B to a future
// Start.
func (l *EventLoop) PostStopEvent() {
	l.queue.push(&stopEvent{})
}

// Run is the blocking drain: meaningful only while Active, and intended
// to be called from a dedicated worker goroutine (see LaunchInThread). It
// cooperatively returns once the state becomes Stopping or a stop event is
// drained, transitioning the loop to Inactive before returning.
//
// Calling Run concurrently with another Run or ProcessEvents on the same
// loop is a contract violation (spec.md §5: "at most one thread may be in
// the drain path at a time") and panics.
func (l *EventLoop) Run() {
	if !l.drainMu.TryLock() {
		panic("corelet: concurrent Run/ProcessEvents on the same EventLoop")
	}
	defer l.drainMu.Unlock()

	if s := l.state.load(); s != Active {
		if s == Stopping {
			l.finishRun()
		}
		return
	}

	l.setRunningThread()

	stopPredicate := func() bool { return l.state.load() != Active }

	for l.state.load() == Active {
		l.queue.waitUntilNonEmpty(stopPredicate)
		batch := l.queue.drain()
		if batch != nil {
			l.processBatch(batch)
		}
	}

	l.finishRun()
}

// ProcessEvents performs a single, non-blocking drain of the currently
// pending batch on the calling goroutine. Only the goroutine currently
// associated with the loop (the one that most recently entered Run or
// ProcessEvents) may call it successfully; a call from any other goroutine
// returns ErrProcessEventsWrongThread without side effects. The first call
// on a loop with no associated goroutine establishes the association.
// Meaningful only while Active; returns ErrLoopNotActive otherwise.
func (l *EventLoop) ProcessEvents() error {
	if l.state.load() != Active {
		return ErrLoopNotActive
	}

	gid := goroutineID()
	for {
		cur := l.runningThread.Load()
		if cur == 0 {
			if l.runningThread.CompareAndSwap(0, gid) {
				break
			}
			continue
		}
		if cur != gid {
			return ErrProcessEventsWrongThread
		}
		break
	}

	if !l.drainMu.TryLock() {
		panic("corelet: concurrent Run/ProcessEvents on the same EventLoop")
	}
	defer l.drainMu.Unlock()

	batch := l.queue.drain()
	if batch != nil {
		l.processBatch(batch)
	}
	if l.state.load() != Active {
		l.finishRun()
	}
	return nil
}

// processBatch runs each event in order. If a stop event is hit, it is
// invoked (transitioning the loop to Stopping) and any events still
// remaining in the batch are pushed back to the front of the queue,
// preserving their order for a future Start — see PostStopEvent.
func (l *EventLoop) processBatch(batch []Event) {
	for i, ev := range batch {
		if _, isStop := ev.(*stopEvent); isStop {
			ev.invoke(l)
			l.metrics.recordStop()
			if rest := batch[i+1:]; len(rest) > 0 {
				l.queue.pushFront(rest)
			}
			return
		}
		ev.invoke(l)
		l.metrics.recordEvent()
	}
}

// transitionToStopping moves Active→Stopping; a no-op otherwise (in
// particular, idempotent if already Stopping or Inactive).
func (l *EventLoop) transitionToStopping() {
	if l.state.compareAndSwap(Active, Stopping) {
		l.queue.wake()
	}
}

// finishRun settles the loop back to Inactive once Run's drain loop exits,
// clearing the running-thread association and waking any Wait callers.
func (l *EventLoop) finishRun() {
	l.state.store(Inactive)
	l.clearRunningThread()
	l.runMu.Lock()
	l.runCond.Broadcast()
	l.runMu.Unlock()
	logNotice(l.logger, l.id, "loop stopped")
}

func (l *EventLoop) setRunningThread() {
	l.runningThread.Store(goroutineID())
}

func (l *EventLoop) clearRunningThread() {
	l.runningThread.Store(0)
}

// isRunningThread reports whether the calling goroutine is the one
// currently (or most recently) associated with the loop via Run or
// ProcessEvents. Used to resolve ConnectionType.Auto and to detect
// BlockingQueued re-entrancy.
func (l *EventLoop) isRunningThread() bool {
	id := l.runningThread.Load()
	return id != 0 && id == goroutineID()
}

// hasConsumer reports whether some goroutine is currently associated with
// the loop at all (regardless of which one).
func (l *EventLoop) hasConsumer() bool {
	return l.runningThread.Load() != 0
}

// LaunchInThread starts loop and spawns a dedicated goroutine that runs
// it, returning a WaitGroup that completes when Run returns. Pair with
// RemoveFromThread for a clean shutdown.
func LaunchInThread(loop *EventLoop) *sync.WaitGroup {
	loop.Start()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run()
	}()
	return &wg
}

// RemoveFromThread posts a stop event to loop, optionally waits for it to
// settle to Inactive, then joins the goroutine started by LaunchInThread.
func RemoveFromThread(loop *EventLoop, wg *sync.WaitGroup, waitDrain bool) {
	loop.PostStopEvent()
	if waitDrain {
		loop.Wait()
	}
	wg.Wait()
}

// goroutineID returns an identifier for the calling goroutine, parsed from
// the runtime's stack-dump header. It is not a stable public Go API, but
// is the same technique used to detect loop/consumer affinity in the
// teacher package's own loop implementation; it is the only portable way
// to compare "am I the same goroutine as before" without threading an
// explicit token through every call site.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
