package concurrency

import (
	"context"
	"sync"
	"time"

	"github.com/findit-engine/findit/internal/metrics"
)

// ErrReleased is returned by Acquire to every waiter woken by ReleaseAll.
type ErrReleased struct{}

func (ErrReleased) Error() string { return "semaphore released all waiters" }

type waiter struct {
	ch      chan error
	started time.Time
}

// AsyncSemaphore is a fair (FIFO) counting semaphore. Waiters are granted
// permits strictly in arrival order: a goroutine that calls Acquire while
// permits are exhausted never jumps ahead of one that was already waiting,
// even across SetMaxPermits changes.
//
// Invariant: held <= maxPermits, except after SetMaxPermits lowers the
// ceiling below the permits already out. Release hands its permit directly
// to the next waiter (held unchanged) only while held <= maxPermits, and
// decrements held otherwise, so any excess drains as permits come back.
type AsyncSemaphore struct {
	name string

	mu      sync.Mutex
	max     int
	held    int
	waiters []*waiter
}

// NewAsyncSemaphore creates a semaphore with maxPermits permits available
// immediately. name labels its Prometheus metrics.
func NewAsyncSemaphore(name string, maxPermits int) *AsyncSemaphore {
	if maxPermits < 1 {
		maxPermits = 1
	}
	s := &AsyncSemaphore{name: name, max: maxPermits}
	metrics.SemaphoreMaxPermits.WithLabelValues(name).Set(float64(maxPermits))
	return s
}

// Acquire blocks until a permit is available or ctx is cancelled. A waiter
// cancelled by ctx is removed from the queue without disturbing the order
// of the waiters behind it.
func (s *AsyncSemaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.held < s.max {
		s.held++
		s.mu.Unlock()
		s.reportHeld()
		return nil
	}

	w := &waiter{ch: make(chan error, 1), started: time.Now()}
	s.waiters = append(s.waiters, w)
	s.reportWaiters()
	s.mu.Unlock()

	select {
	case err := <-w.ch:
		metrics.SemaphoreWaitDuration.WithLabelValues(s.name).Observe(time.Since(w.started).Seconds())
		s.reportHeld()
		return err
	case <-ctx.Done():
		s.mu.Lock()
		for i, ww := range s.waiters {
			if ww == w {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		s.reportWaiters()
		return ctx.Err()
	}
}

// Release returns one permit, handing it directly to the longest-waiting
// goroutine if any are queued.
func (s *AsyncSemaphore) Release() {
	s.mu.Lock()
	if len(s.waiters) > 0 && s.held <= s.max {
		w := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.mu.Unlock()
		s.reportWaiters()
		w.ch <- nil
		return
	}
	if s.held > 0 {
		s.held--
	}
	s.mu.Unlock()
	s.reportHeld()
}

// SetMaxPermits changes the permit ceiling. Raising it immediately wakes up
// to (n - old) queued waiters, in arrival order. Lowering it takes effect
// gradually as permits are returned via Release — permits already held are
// never revoked.
func (s *AsyncSemaphore) SetMaxPermits(n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	old := s.max
	s.max = n
	var woken []*waiter
	if n > old {
		delta := n - old
		for delta > 0 && len(s.waiters) > 0 {
			woken = append(woken, s.waiters[0])
			s.waiters = s.waiters[1:]
			s.held++
			delta--
		}
	}
	s.mu.Unlock()

	metrics.SemaphoreMaxPermits.WithLabelValues(s.name).Set(float64(n))
	s.reportHeld()
	s.reportWaiters()
	for _, w := range woken {
		w.ch <- nil
	}
}

// ReleaseAll wakes every currently queued waiter with ErrReleased, for
// cancelling an in-flight batch. Permits already held are unaffected.
func (s *AsyncSemaphore) ReleaseAll() {
	s.mu.Lock()
	woken := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	s.reportWaiters()
	for _, w := range woken {
		w.ch <- ErrReleased{}
	}
}

func (s *AsyncSemaphore) reportHeld() {
	s.mu.Lock()
	held := s.held
	s.mu.Unlock()
	metrics.SemaphorePermitsHeld.WithLabelValues(s.name).Set(float64(held))
}

func (s *AsyncSemaphore) reportWaiters() {
	s.mu.Lock()
	n := len(s.waiters)
	s.mu.Unlock()
	metrics.SemaphoreWaiters.WithLabelValues(s.name).Set(float64(n))
}
