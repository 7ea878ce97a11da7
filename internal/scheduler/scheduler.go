package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warpdl/warpsched/pkg/schedule"
)

const maxSleepCap = 60 * time.Second

// Scheduler runs callbacks at wall-clock deadlines on a single goroutine.
type Scheduler struct {
	ctx    context.Context
	now    func() time.Time
	wake   chan struct{}
	done   chan struct{}
	nextID atomic.Uint64

	mu   sync.Mutex
	heap scheduleHeap
}

// New creates and starts a Scheduler. The loop goroutine exits when ctx is
// cancelled; pending events are dropped.
func New(ctx context.Context) *Scheduler {
	s := &Scheduler{
		ctx:  ctx,
		now:  time.Now,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// AfterFunc schedules fn to run after d, measured on the wall clock.
// It satisfies schedule.Timers.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) schedule.Timer {
	return s.At(s.now().Add(d), fn)
}

// At schedules fn to run at t.
func (s *Scheduler) At(t time.Time, fn func()) *Handle {
	state := new(atomic.Int32)
	ev := ScheduleEvent{
		ID:        s.nextID.Add(1),
		TriggerAt: t.Round(0),
		Fn:        fn,
		state:     state,
	}
	s.mu.Lock()
	heapPush(&s.heap, ev)
	s.mu.Unlock()
	s.signal()
	return &Handle{s: s, id: ev.ID, at: ev.TriggerAt, state: state}
}

// Len returns the number of pending events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Len()
}

// Done is closed once the loop goroutine has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) remove(id uint64) {
	s.mu.Lock()
	heapRemoveByID(&s.heap, id)
	s.mu.Unlock()
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the core loop. It sleeps until the earliest deadline, capped at
// maxSleepCap, and fires every due event in order.
func (s *Scheduler) run() {
	defer close(s.done)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		s.mu.Lock()
		if s.heap.Len() == 0 {
			s.mu.Unlock()
			// No events, block until woken
			return nil
		}
		next := s.heap[0].TriggerAt
		s.mu.Unlock()
		dur := next.Sub(s.now().Round(0))
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-timerCh:
			for _, ev := range s.due() {
				if ev.state.CompareAndSwap(statePending, stateFired) {
					ev.Fn()
				}
			}
		}
		timerCh = resetTimer()
	}
}

// due pops every event whose trigger time has arrived.
func (s *Scheduler) due() []ScheduleEvent {
	now := s.now().Round(0)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScheduleEvent
	for s.heap.Len() > 0 && !s.heap[0].TriggerAt.After(now) {
		out = append(out, heapPop(&s.heap))
	}
	return out
}
