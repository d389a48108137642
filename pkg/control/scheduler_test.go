package control

import (
	"time"
)

// manualScheduler fires callbacks only when Advance is called, in due order.
type manualScheduler struct {
	now     time.Duration
	nextID  int
	entries map[int]*manualEntry
}

type manualEntry struct {
	id       int
	due      time.Duration
	interval time.Duration
	fn       func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{entries: make(map[int]*manualEntry)}
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) Cancel {
	return s.add(interval, interval, fn)
}

func (s *manualScheduler) After(delay time.Duration, fn func()) Cancel {
	return s.add(delay, 0, fn)
}

func (s *manualScheduler) add(delay, interval time.Duration, fn func()) Cancel {
	s.nextID++
	id := s.nextID
	s.entries[id] = &manualEntry{id: id, due: s.now + delay, interval: interval, fn: fn}
	return func() { delete(s.entries, id) }
}

// pending counts live handles; periodic counts only the repeating ones.
func (s *manualScheduler) pending() (total, periodic int) {
	for _, e := range s.entries {
		total++
		if e.interval > 0 {
			periodic++
		}
	}
	return total, periodic
}

func (s *manualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		e := s.nextDue(target)
		if e == nil {
			break
		}
		s.now = e.due
		if e.interval > 0 {
			e.due += e.interval
		} else {
			delete(s.entries, e.id)
		}
		e.fn()
	}
	s.now = target
}

func (s *manualScheduler) nextDue(target time.Duration) *manualEntry {
	var next *manualEntry
	for _, e := range s.entries {
		if e.due > target {
			continue
		}
		if next == nil || e.due < next.due || (e.due == next.due && e.id < next.id) {
			next = e
		}
	}
	return next
}

// recorder collects emitted values.
type recorder struct {
	values []float64
}

func (r *recorder) onChange(v float64) {
	r.values = append(r.values, v)
}

func (r *recorder) last() float64 {
	if len(r.values) == 0 {
		return RestValue
	}
	return r.values[len(r.values)-1]
}
