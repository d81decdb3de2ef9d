package corelet

import "sync/atomic"

// Metrics holds low-overhead, thread-safe counters for a single EventLoop.
// Attach via WithMetrics(true); reading Metrics() on a loop created without
// it returns a zero-valued snapshot. Unlike the teacher package's
// percentile/latency tracking, this kernel has no real-time deadlines to
// profile (spec.md Non-goals), so the counters are limited to throughput
// bookkeeping useful for capacity and leak diagnosis.
type Metrics struct {
	EventsProcessed   uint64
	StopEventsDrained uint64
	ConnectionsPruned uint64
	TimersArmed       uint64
	TimersFired       uint64
}

type metricsCounters struct {
	enabled           bool
	eventsProcessed   atomic.Uint64
	stopEventsDrained atomic.Uint64
	connectionsPruned atomic.Uint64
	timersArmed       atomic.Uint64
	timersFired       atomic.Uint64
}

func (m *metricsCounters) snapshot() Metrics {
	if m == nil {
		return Metrics{}
	}
	return Metrics{
		EventsProcessed:   m.eventsProcessed.Load(),
		StopEventsDrained: m.stopEventsDrained.Load(),
		ConnectionsPruned: m.connectionsPruned.Load(),
		TimersArmed:       m.timersArmed.Load(),
		TimersFired:       m.timersFired.Load(),
	}
}

func (m *metricsCounters) recordEvent() {
	if m != nil && m.enabled {
		m.eventsProcessed.Add(1)
	}
}

func (m *metricsCounters) recordStop() {
	if m != nil && m.enabled {
		m.stopEventsDrained.Add(1)
	}
}

func (m *metricsCounters) recordPruned(n int) {
	if m != nil && m.enabled && n > 0 {
		m.connectionsPruned.Add(uint64(n))
	}
}

func (m *metricsCounters) recordTimerArmed() {
	if m != nil && m.enabled {
		m.timersArmed.Add(1)
	}
}

func (m *metricsCounters) recordTimerFired() {
	if m != nil && m.enabled {
		m.timersFired.Add(1)
	}
}
