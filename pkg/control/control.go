// Package control implements the forklift's gesture-driven control emitters:
// the throttle pedal pair, the slider pedal and the steering wheel.
//
// Emitters are plain state machines. They are not safe for concurrent use;
// every method, and every callback they schedule, must run on one goroutine
// (see Loop). Each emitter owns at most one outstanding handle per kind of
// scheduled work and cancels it on every transition away from the state
// that started it.
package control

import (
	"math"
	"time"
)

// ValueChangeFunc receives every new control value, whatever gesture
// produced it. It is invoked synchronously.
type ValueChangeFunc func(value float64)

// Cancel stops a scheduled callback. Calling it more than once is harmless.
type Cancel func()

// Scheduler runs callbacks later on the emitter's goroutine.
type Scheduler interface {
	// Every runs fn once per interval until cancelled.
	Every(interval time.Duration, fn func()) Cancel
	// After runs fn once after delay unless cancelled first.
	After(delay time.Duration, fn func()) Cancel
}

// RestValue is the value every control settles to when released.
const RestValue = 0.0

// State is the gesture state of a control.
type State int

const (
	StateIdle State = iota
	StateAccelerating
	StateBraking
	StateDecaying
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccelerating:
		return "accelerating"
	case StateBraking:
		return "braking"
	case StateDecaying:
		return "decaying"
	case StateDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

func stop(c *Cancel) {
	if *c != nil {
		(*c)()
		*c = nil
	}
}

// finite reports whether none of vs is NaN or infinite.
func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// approach moves v toward target by at most step without overshooting.
func approach(v, target, step float64) float64 {
	if v > target {
		return math.Max(v-step, target)
	}
	if v < target {
		return math.Min(v+step, target)
	}
	return v
}
