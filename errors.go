package corelet

import "errors"

// Sentinel errors returned by the public API. Fatal contract violations
// (e.g. a second concurrent Run on the same loop) panic instead of
// returning an error — see EventLoop.Run and Build.
var (
	// ErrUnknownConnection is returned by Disconnect when the connection id
	// does not match any currently registered connection (never registered,
	// already disconnected, or pruned after its receiver expired).
	ErrUnknownConnection = errors.New("corelet: unknown or already-removed connection")

	// ErrProcessEventsWrongThread is returned by ProcessEvents when called
	// from a goroutine other than the one currently associated with the
	// loop (the goroutine that most recently entered Run or ProcessEvents).
	ErrProcessEventsWrongThread = errors.New("corelet: ProcessEvents called from a different goroutine than the one associated with this loop")

	// ErrLoopNotActive is returned by ProcessEvents when the loop is not in
	// the Active state.
	ErrLoopNotActive = errors.New("corelet: loop is not active")

	// ErrBuilderMisuse is the value Build panics with when given a
	// constructor whose result does not embed a corelet.Base[T] for the
	// same T. Construction outside Build is not detected.
	ErrBuilderMisuse = errors.New("corelet: constructed type does not embed corelet.Base[T]; direct construction outside Build is prohibited")

	// ErrReceiverNotAffine names a receiver that does not implement Affine
	// (i.e. does not embed corelet.Base[T]). No function in this package
	// returns it: Connect0..Connect3 constrain their receiver to PtrAffine,
	// so such a receiver is rejected at compile time.
	ErrReceiverNotAffine = errors.New("corelet: receiver does not implement Affine")
)
