package corelet

import "weak"

// Initer is implemented by types that need a second-phase initialization
// hook: anything a constructor can't safely do because it runs before the
// object has a stable weak self-reference (e.g. connecting one of the
// object's own signals to one of its own slots). Build calls Init, if
// present, once construction and self-reference wiring are both complete.
type Initer interface {
	Init()
}

// selfSetter is satisfied by *Base[T] (embedded in every corelet Object)
// and is how Build reaches in and installs the self-reference without
// reflection. It is unexported: only Build may call setSelf.
type selfSetter[T any] interface {
	setSelf(weak.Pointer[T])
}

// Base is embedded (by value) in every corelet object type T, giving it
// an Identifier, a home EventLoop, and a weak self-reference installed by
// Build. Embedding Base[T] is what makes *T satisfy Affine and
// PtrAffine[T], and is therefore required for *T to be usable as a
// Connect* receiver.
//
// Two-phase construction (spec.md §4.4): the constructor passed to Build
// runs first and must not rely on Self being valid yet; Init, if T
// implements Initer, runs second, after Build has installed the weak
// self-reference, and is the right place to Connect the object's own
// signals to its own slots.
type Base[T any] struct {
	id   Identifier
	loop *EventLoop
	self weak.Pointer[T]
}

// ID implements Affine.
func (b *Base[T]) ID() Identifier { return b.id }

// Loop implements Affine.
func (b *Base[T]) Loop() *EventLoop { return b.loop }

// Self returns a strong pointer to the object itself, or nil if the last
// strong reference has already been dropped (which Self itself does not
// hold). Typically used from within a method to pass "myself" to a
// Connect* call without the caller needing the original *T.
func (b *Base[T]) Self() *T { return b.self.Value() }

func (b *Base[T]) setSelf(w weak.Pointer[T]) { b.self = w }

// initBase is called by Build to populate the fields a raw struct literal
// constructor cannot set itself (it has no Base[T] accessor before Build
// gives it one).
func (b *Base[T]) initBase(id Identifier, loop *EventLoop) {
	b.id = id
	b.loop = loop
}

// Build constructs a T via construct, wires up its Base[T] fields (a
// fresh Identifier, loop, and weak self-reference), and, if T implements
// Initer, calls Init once the self-reference is valid. It panics with
// ErrBuilderMisuse if T does not embed Base[T] (accessible via a pointer
// type assertion to selfSetter[T]) — object construction outside of
// Build leaves Base[T] zero-valued, which is never correct for a live
// object.
func Build[T any](loop *EventLoop, construct func() *T) *T {
	obj := construct()

	setter, ok := any(obj).(selfSetter[T])
	if !ok {
		panic(ErrBuilderMisuse)
	}

	base, ok := any(obj).(interface{ initBase(Identifier, *EventLoop) })
	if !ok {
		panic(ErrBuilderMisuse)
	}
	base.initBase(NextIdentifier(), loop)

	setter.setSelf(weak.Make(obj))

	if initer, ok := any(obj).(Initer); ok {
		initer.Init()
	}

	return obj
}
