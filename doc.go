// Package corelet is a small, in-process concurrency substrate: event
// loops with explicit thread affinity, a typed signal/slot mechanism for
// cross-object communication, two-phase object construction, timers, and
// a cooperative multi-object application shutdown protocol.
//
// It does not do I/O multiplexing, task scheduling policy, or networking
// — see spec.md's Non-goals. It is deliberately narrow: a kernel other
// packages build services on top of, not a framework.
package corelet
