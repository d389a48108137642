package control

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

// Loop serializes gesture events and scheduled callbacks onto a single
// goroutine, the way a UI event loop does. It implements Scheduler: timer
// goroutines only post into the loop, so emitters never need locks.
type Loop struct {
	clock  clock.WithTicker
	events chan func()
	done   chan struct{}
	once   sync.Once
}

// NewLoop creates a loop with room for queueSize pending events.
func NewLoop(clk clock.WithTicker, queueSize int) *Loop {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Loop{
		clock:  clk,
		events: make(chan func(), queueSize),
		done:   make(chan struct{}),
	}
}

// Run executes posted events until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.events:
			fn()
		}
	}
}

// Post queues fn for the loop goroutine. It blocks while the queue is full
// and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Close stops the loop and every timer goroutine it started.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

type loopHandle struct {
	cancelled atomic.Bool
	quit      chan struct{}
	once      sync.Once
}

func newLoopHandle() *loopHandle {
	return &loopHandle{quit: make(chan struct{})}
}

func (h *loopHandle) cancel() {
	h.cancelled.Store(true)
	h.once.Do(func() { close(h.quit) })
}

// guard wraps fn so a tick that was queued before cancellation is dropped.
func (h *loopHandle) guard(fn func()) func() {
	return func() {
		if !h.cancelled.Load() {
			fn()
		}
	}
}

// Every implements Scheduler.
func (l *Loop) Every(interval time.Duration, fn func()) Cancel {
	h := newLoopHandle()
	ticker := l.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				if !l.Post(h.guard(fn)) {
					return
				}
			case <-h.quit:
				return
			case <-l.done:
				return
			}
		}
	}()
	return h.cancel
}

// After implements Scheduler.
func (l *Loop) After(delay time.Duration, fn func()) Cancel {
	h := newLoopHandle()
	timer := l.clock.NewTimer(delay)
	go func() {
		select {
		case <-timer.C():
			l.Post(h.guard(fn))
		case <-h.quit:
			timer.Stop()
		case <-l.done:
			timer.Stop()
		}
	}()
	return h.cancel
}
