package cmn

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// TimeoutGroup is similar to sync.WaitGroup with the difference that Wait
// can time out instead of blocking forever. Used by service.Core.Stop to
// bound how long it waits for in-flight planning calls to drain.
//
// WARNING: not safe to wait on completion from multiple goroutines.
type TimeoutGroup struct {
	jobsLeft  atomic.Int32
	postedFin atomic.Int32
	fin       chan struct{}
}

func NewTimeoutGroup() *TimeoutGroup {
	return &TimeoutGroup{fin: make(chan struct{}, 1)}
}

func (tg *TimeoutGroup) Add(delta int) {
	tg.jobsLeft.Add(int32(delta))
}

func (tg *TimeoutGroup) WaitTimeout(timeout time.Duration) (timedOut bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		if tg.jobsLeft.Load() == 0 {
			return false
		}
		select {
		case <-tg.fin:
			tg.postedFin.Store(0)
		case <-t.C:
			return true
		}
	}
}

func (tg *TimeoutGroup) Done() {
	left := tg.jobsLeft.Dec()
	Assert(left >= 0, "jobs left went negative")
	if left == 0 {
		if posted := tg.postedFin.Swap(1); posted == 0 {
			tg.fin <- struct{}{}
		}
	}
}

// StopCh is a specialized channel for broadcasting a stop signal exactly
// once, regardless of how many times Close is called.
type StopCh struct {
	once sync.Once
	ch   chan struct{}
}

func NewStopCh() *StopCh {
	return &StopCh{ch: make(chan struct{})}
}

func (sc *StopCh) Listen() <-chan struct{} { return sc.ch }

func (sc *StopCh) Close() {
	sc.once.Do(func() { close(sc.ch) })
}

// DynSemaphore bounds the number of concurrent planning calls the request
// handler admits onto the writer lock of §5.
type DynSemaphore struct {
	size int
	cur  int
	c    *sync.Cond
	mu   sync.Mutex
}

func NewDynSemaphore(n int) *DynSemaphore {
	s := &DynSemaphore{size: n}
	s.c = sync.NewCond(&s.mu)
	return s
}

func (s *DynSemaphore) Acquire() {
	s.mu.Lock()
	for s.cur >= s.size {
		s.c.Wait()
	}
	s.cur++
	s.mu.Unlock()
}

// AcquireTimeout is Acquire bounded by timeout, the request-ingress wait
// that §5's "timeouts are advisory and apply only at request ingress" calls
// for. A timer rebroadcasts the condition so a waiter past its own deadline
// wakes up and gives up rather than blocking on another caller's Release.
func (s *DynSemaphore) AcquireTimeout(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.cur >= s.size {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.AfterFunc(remaining, func() {
			s.mu.Lock()
			s.c.Broadcast()
			s.mu.Unlock()
		})
		s.c.Wait()
		timer.Stop()
	}
	s.cur++
	return true
}

func (s *DynSemaphore) Release() {
	s.mu.Lock()
	Assert(s.cur > 0, "release without matching acquire")
	s.cur--
	s.c.Signal()
	s.mu.Unlock()
}
