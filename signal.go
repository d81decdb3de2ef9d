package corelet

import (
	"sync"
	"weak"
)

// PtrAffine constrains a Connect* receiver type parameter R to pointer
// types whose pointee implements Affine, i.e. receivers built via
// Build[R] (which embeds Base[R]). It is the standard "pointer receiver
// implementing an interface" generics pattern: R is the struct type,
// *R the receiver's actual argument and callback type.
type PtrAffine[R any] interface {
	*R
	Affine
}

// dispatch runs call (a zero-argument closure already bound to the
// Emit-time arguments and the promoted, strongly-held receiver) according
// to connType resolved against target, per spec.md §4.5. Shared by every
// Signal* arity. Because call's closure holds the strong target rather
// than re-deriving it from a weak reference, a Queued or BlockingQueued
// post, once accepted, is guaranteed to deliver even if the caller drops
// its own last strong reference to the receiver immediately afterward.
func dispatch(connType ConnectionType, target Affine, call func()) {
	switch resolveDelivery(connType, target) {
	case Direct:
		call()
	case Queued:
		target.Loop().PostEvent(newSlotEvent(call))
	case BlockingQueued:
		loop := target.Loop()
		done := make(chan struct{})
		loop.PostEvent(newSlotEvent(func() {
			defer close(done)
			call()
		}))
		<-done
	}
}

// recordPruned attributes a pruned-connection count against loop's
// metrics, if loop is non-nil. Connections record the receiver's loop at
// Connect time (Affine.Loop() never changes after Build), so a pruned
// (receiver-expired) entry can still be attributed to its loop even
// though the receiver itself is gone by the time pruning discovers it.
func recordPruned(loop *EventLoop, n int) {
	if loop != nil {
		loop.metrics.recordPruned(n)
	}
}

// --- Signal0 ---------------------------------------------------------------

type signal0Conn struct {
	id       ConnectionID
	connType ConnectionType
	loop     *EventLoop
	promote  func() (Affine, bool)
	call     func(target Affine)
}

// Signal0 is a signal whose slots take no arguments.
type Signal0 struct {
	mu      sync.Mutex
	entries []signal0Conn
}

// Connect0 registers slot to run whenever sig is Emitted, using connType
// to choose delivery. The connection holds only a weak reference to
// receiver (via the runtime weak package), so it never extends the
// receiver's lifetime; it is pruned, without error, the first time sig
// discovers the receiver has expired.
func Connect0[R any, P PtrAffine[R]](sig *Signal0, receiver P, slot func(P), connType ConnectionType) ConnectionID {
	w := weak.Make((*R)(receiver))
	id := ConnectionID(NextIdentifier())
	c := signal0Conn{
		id:       id,
		connType: connType,
		loop:     receiver.Loop(),
		promote:  func() (Affine, bool) { return promoteAffine[R, P](w) },
		call:     func(target Affine) { slot(target.(P)) },
	}
	sig.mu.Lock()
	sig.entries = append(sig.entries, c)
	sig.mu.Unlock()
	return id
}

// Disconnect removes the connection with the given id, returning
// ErrUnknownConnection if no such live connection exists.
func (s *Signal0) Disconnect(id ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.entries {
		if c.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrUnknownConnection
}

// ConnectionValid reports whether id names a connection still present in
// sig, by id only — it does not promote or probe the weak receiver
// reference, so it answers "did I ever Connect (and not yet Disconnect)
// this id", not "is the receiver still alive" (see ConnectionCount for
// the latter). Per spec.md §4.5.
func (s *Signal0) ConnectionValid(id ConnectionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.entries {
		if c.id == id {
			return true
		}
	}
	return false
}

// ConnectionCount reports the number of currently-live connections,
// pruning expired receivers first.
func (s *Signal0) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.entries)
}

func (s *Signal0) pruneLocked() int {
	live := s.entries[:0]
	removed := 0
	for _, c := range s.entries {
		if _, ok := c.promote(); ok {
			live = append(live, c)
		} else {
			removed++
			recordPruned(c.loop, 1)
		}
	}
	s.entries = live
	return removed
}

// Emit invokes every live connection's slot, in connection order, via
// each connection's resolved delivery mode. Expired-receiver connections
// are pruned as a side effect and counted against each pruned
// connection's own bound loop (recorded at Connect time, since the
// receiver itself is already gone by the time pruning discovers it).
func (s *Signal0) Emit() {
	s.mu.Lock()
	s.pruneLocked()
	snapshot := append([]signal0Conn(nil), s.entries...)
	s.mu.Unlock()

	for _, c := range snapshot {
		target, ok := c.promote()
		if !ok {
			continue
		}
		call := c.call
		dispatch(c.connType, target, func() { call(target) })
	}
}

// --- Signal1 -----------------------------------------------------------

type signal1Conn[A any] struct {
	id       ConnectionID
	connType ConnectionType
	loop     *EventLoop
	promote  func() (Affine, bool)
	call     func(target Affine, a A)
}

// Signal1 is a signal whose slots take one argument.
type Signal1[A any] struct {
	mu      sync.Mutex
	entries []signal1Conn[A]
}

// Connect1 is Connect0's one-argument counterpart.
func Connect1[R any, P PtrAffine[R], A any](sig *Signal1[A], receiver P, slot func(P, A), connType ConnectionType) ConnectionID {
	w := weak.Make((*R)(receiver))
	id := ConnectionID(NextIdentifier())
	c := signal1Conn[A]{
		id:       id,
		connType: connType,
		loop:     receiver.Loop(),
		promote:  func() (Affine, bool) { return promoteAffine[R, P](w) },
		call:     func(target Affine, a A) { slot(target.(P), a) },
	}
	sig.mu.Lock()
	sig.entries = append(sig.entries, c)
	sig.mu.Unlock()
	return id
}

// Disconnect removes the connection with the given id.
func (s *Signal1[A]) Disconnect(id ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.entries {
		if c.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrUnknownConnection
}

// ConnectionValid reports whether id names a connection still present in
// sig, by id only — see Signal0.ConnectionValid.
func (s *Signal1[A]) ConnectionValid(id ConnectionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.entries {
		if c.id == id {
			return true
		}
	}
	return false
}

// ConnectionCount reports the number of currently-live connections,
// pruning expired receivers first.
func (s *Signal1[A]) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.entries)
}

func (s *Signal1[A]) pruneLocked() int {
	live := s.entries[:0]
	removed := 0
	for _, c := range s.entries {
		if _, ok := c.promote(); ok {
			live = append(live, c)
		} else {
			removed++
			recordPruned(c.loop, 1)
		}
	}
	s.entries = live
	return removed
}

// Emit invokes every live connection's slot with a, per its resolved
// delivery mode.
func (s *Signal1[A]) Emit(a A) {
	s.mu.Lock()
	s.pruneLocked()
	snapshot := append([]signal1Conn[A](nil), s.entries...)
	s.mu.Unlock()

	for _, c := range snapshot {
		target, ok := c.promote()
		if !ok {
			continue
		}
		call := c.call
		dispatch(c.connType, target, func() { call(target, a) })
	}
}

// --- Signal2 -------------------------------------------------------------

type signal2Conn[A, B any] struct {
	id       ConnectionID
	connType ConnectionType
	loop     *EventLoop
	promote  func() (Affine, bool)
	call     func(target Affine, a A, b B)
}

// Signal2 is a signal whose slots take two arguments.
type Signal2[A, B any] struct {
	mu      sync.Mutex
	entries []signal2Conn[A, B]
}

// Connect2 is Connect0's two-argument counterpart.
func Connect2[R any, P PtrAffine[R], A, B any](sig *Signal2[A, B], receiver P, slot func(P, A, B), connType ConnectionType) ConnectionID {
	w := weak.Make((*R)(receiver))
	id := ConnectionID(NextIdentifier())
	c := signal2Conn[A, B]{
		id:       id,
		connType: connType,
		loop:     receiver.Loop(),
		promote:  func() (Affine, bool) { return promoteAffine[R, P](w) },
		call:     func(target Affine, a A, b B) { slot(target.(P), a, b) },
	}
	sig.mu.Lock()
	sig.entries = append(sig.entries, c)
	sig.mu.Unlock()
	return id
}

// Disconnect removes the connection with the given id.
func (s *Signal2[A, B]) Disconnect(id ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.entries {
		if c.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrUnknownConnection
}

// ConnectionValid reports whether id names a connection still present in
// sig, by id only — see Signal0.ConnectionValid.
func (s *Signal2[A, B]) ConnectionValid(id ConnectionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.entries {
		if c.id == id {
			return true
		}
	}
	return false
}

func (s *Signal2[A, B]) pruneLocked() int {
	live := s.entries[:0]
	removed := 0
	for _, c := range s.entries {
		if _, ok := c.promote(); ok {
			live = append(live, c)
		} else {
			removed++
			recordPruned(c.loop, 1)
		}
	}
	s.entries = live
	return removed
}

// Emit invokes every live connection's slot with a and b, per its
// resolved delivery mode.
func (s *Signal2[A, B]) Emit(a A, b B) {
	s.mu.Lock()
	s.pruneLocked()
	snapshot := append([]signal2Conn[A, B](nil), s.entries...)
	s.mu.Unlock()

	for _, c := range snapshot {
		target, ok := c.promote()
		if !ok {
			continue
		}
		call := c.call
		dispatch(c.connType, target, func() { call(target, a, b) })
	}
}

// --- Signal3 -------------------------------------------------------------

type signal3Conn[A, B, C any] struct {
	id       ConnectionID
	connType ConnectionType
	loop     *EventLoop
	promote  func() (Affine, bool)
	call     func(target Affine, a A, b B, c C)
}

// Signal3 is a signal whose slots take three arguments.
type Signal3[A, B, C any] struct {
	mu      sync.Mutex
	entries []signal3Conn[A, B, C]
}

// Connect3 is Connect0's three-argument counterpart.
func Connect3[R any, P PtrAffine[R], A, B, C any](sig *Signal3[A, B, C], receiver P, slot func(P, A, B, C), connType ConnectionType) ConnectionID {
	w := weak.Make((*R)(receiver))
	id := ConnectionID(NextIdentifier())
	c := signal3Conn[A, B, C]{
		id:       id,
		connType: connType,
		loop:     receiver.Loop(),
		promote:  func() (Affine, bool) { return promoteAffine[R, P](w) },
		call:     func(target Affine, a A, b B, cc C) { slot(target.(P), a, b, cc) },
	}
	sig.mu.Lock()
	sig.entries = append(sig.entries, c)
	sig.mu.Unlock()
	return id
}

// Disconnect removes the connection with the given id.
func (s *Signal3[A, B, C]) Disconnect(id ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.entries {
		if c.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrUnknownConnection
}

// ConnectionValid reports whether id names a connection still present in
// sig, by id only — see Signal0.ConnectionValid.
func (s *Signal3[A, B, C]) ConnectionValid(id ConnectionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.entries {
		if c.id == id {
			return true
		}
	}
	return false
}

func (s *Signal3[A, B, C]) pruneLocked() int {
	live := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if _, ok := e.promote(); ok {
			live = append(live, e)
		} else {
			removed++
			recordPruned(e.loop, 1)
		}
	}
	s.entries = live
	return removed
}

// Emit invokes every live connection's slot with a, b and c, per its
// resolved delivery mode.
func (s *Signal3[A, B, C]) Emit(a A, b B, c C) {
	s.mu.Lock()
	s.pruneLocked()
	snapshot := append([]signal3Conn[A, B, C](nil), s.entries...)
	s.mu.Unlock()

	for _, e := range snapshot {
		target, ok := e.promote()
		if !ok {
			continue
		}
		call := e.call
		dispatch(e.connType, target, func() { call(target, a, b, c) })
	}
}

// promoteAffine promotes a weak pointer to R, cast as P, and returns it as
// an Affine for delivery-mode resolution (Loop()/ID()). Shared generic
// helper behind every arity's Connect*.
func promoteAffine[R any, P PtrAffine[R]](w weak.Pointer[R]) (Affine, bool) {
	p := w.Value()
	if p == nil {
		return nil, false
	}
	return P(p), true
}
