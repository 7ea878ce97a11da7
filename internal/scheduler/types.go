package scheduler

import (
	"sync/atomic"
	"time"
)

// ScheduleEvent is a pending callback in the scheduler heap.
type ScheduleEvent struct {
	// ID orders events with equal TriggerAt by insertion and identifies
	// the event for removal.
	ID uint64
	// TriggerAt is the wall-clock time at which Fn runs. It carries no
	// monotonic reading.
	TriggerAt time.Time
	Fn        func()

	state *atomic.Int32
}

const (
	statePending int32 = iota
	stateFired
	stateStopped
)

// Handle is returned by AfterFunc and At and cancels the event.
type Handle struct {
	s     *Scheduler
	id    uint64
	at    time.Time
	state *atomic.Int32
}

// Stop cancels the event. It reports whether the event was still pending;
// stopping a fired or already stopped event is a no-op returning false.
func (h *Handle) Stop() bool {
	if !h.state.CompareAndSwap(statePending, stateStopped) {
		return false
	}
	h.s.remove(h.id)
	return true
}

// TriggerAt returns the wall-clock time the event is due.
func (h *Handle) TriggerAt() time.Time {
	return h.at
}
