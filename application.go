package corelet

import "sync"

// CleanupParticipant is anything Application can wait on during shutdown:
// an Affine object that owns its own per-instance "I'm done" signal.
// Application connects to that signal, not the other way around — each
// participant announces its own completion, rather than Application
// broadcasting a single shared signal that every participant would have
// to individually acknowledge. This mirrors how the original
// implementation's CleanupObject/Application pairing works: a cleanup
// participant fires its own completion signal once, and Application's
// bookkeeping is keyed off the participant's Identifier.
type CleanupParticipant interface {
	Affine
	FinishedCleanup() *Signal1[Identifier]
}

// Cleanup is an embeddable helper that gives any Object a conforming
// FinishedCleanup signal, so implementing CleanupParticipant is usually
// just "embed Cleanup and call Cleanup.FinishedCleanup().Emit(my ID)"
// once cleanup work completes.
type Cleanup struct {
	finished Signal1[Identifier]
}

// FinishedCleanup implements CleanupParticipant.
func (c *Cleanup) FinishedCleanup() *Signal1[Identifier] { return &c.finished }

// Application coordinates an orderly multi-object shutdown: Run blocks
// until every registered CleanupParticipant has announced completion (or,
// if none were registered, until StartCleanup is called), or until Quit,
// then returns the Application's result code.
// See spec.md §7.
type Application struct {
	Base[Application]

	// SignalStartCleanup is emitted once, by StartCleanup, to tell every
	// interested object it's time to begin winding down. Objects are
	// expected to connect their own shutdown logic to it and, once done,
	// emit their own CleanupParticipant.FinishedCleanup signal.
	SignalStartCleanup Signal0

	Primary *EventLoop

	mu           sync.Mutex
	pending      map[Identifier]ConnectionID
	result       int
	quitOnce     sync.Once
	done         chan struct{}
}

// NewApplication constructs an Application whose Primary loop is the one
// passed in; StartCleanup and Run both operate relative to it.
func NewApplication(primary *EventLoop) *Application {
	app := Build(primary, func() *Application {
		return &Application{
			Primary: primary,
			pending: make(map[Identifier]ConnectionID),
			done:    make(chan struct{}),
		}
	})
	return app
}

// AddCleanupRequest registers p as a participant Application must wait on
// before Run returns, connecting Application's internal bookkeeping slot
// to p's own FinishedCleanup signal (BlockingQueued, so the participant's
// announcement is fully processed before its emit call returns — matching
// the original implementation's synchronous cleanup acknowledgement).
func (a *Application) AddCleanupRequest(p CleanupParticipant) {
	a.mu.Lock()
	a.pending[p.ID()] = 0
	a.mu.Unlock()

	id := Connect1(p.FinishedCleanup(), a, (*Application).onFinishedCleanup, BlockingQueued)

	a.mu.Lock()
	a.pending[p.ID()] = id
	a.mu.Unlock()
}

func (a *Application) onFinishedCleanup(participant Identifier) {
	a.mu.Lock()
	delete(a.pending, participant)
	remaining := len(a.pending)
	a.mu.Unlock()

	if remaining == 0 {
		a.quit(a.result)
	}
}

// StartCleanup emits SignalStartCleanup, telling every connected object to
// begin its own shutdown sequence. If no participants were ever
// registered, the application quits immediately.
func (a *Application) StartCleanup() {
	a.mu.Lock()
	remaining := len(a.pending)
	a.mu.Unlock()

	a.SignalStartCleanup.Emit()

	if remaining == 0 {
		a.quit(a.result)
	}
}

// Quit requests the application stop with the given result code,
// bypassing the cleanup wait — used for abnormal/forced shutdown.
func (a *Application) Quit(result int) {
	a.quit(result)
}

func (a *Application) quit(result int) {
	a.quitOnce.Do(func() {
		a.mu.Lock()
		a.result = result
		a.mu.Unlock()
		close(a.done)
		a.Primary.Stop()
	})
}

// Run starts the Primary loop and blocks until a full cleanup cycle (or a
// forced Quit) completes, returning the recorded result code. Run is
// meant to be called from the same goroutine that otherwise would have
// called Primary.Run — Application drives the primary loop itself.
func (a *Application) Run() int {
	a.Primary.Start()
	select {
	case <-a.done:
		// quit ran before Start, so its Primary.Stop found the loop
		// Inactive and did nothing; stop the now-Active loop here.
		a.Primary.Stop()
	default:
	}
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Primary.Run()
	}()

	<-a.done
	a.Primary.Wait()
	wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// RegisterCleanupParticipant is a generic convenience wrapping
// AddCleanupRequest for any *R that embeds Cleanup and Base[R] (and so
// already satisfies CleanupParticipant through promoted methods).
func RegisterCleanupParticipant[R any, P interface {
	*R
	CleanupParticipant
}](app *Application, participant P) {
	app.AddCleanupRequest(participant)
}
