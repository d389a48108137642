package control

import (
	"fmt"
	"math"
	"time"
)

// SliderConfig tunes a drag-driven pedal.
type SliderConfig struct {
	Min       float64
	Max       float64
	BrakeStep float64
	DecayStep float64
	Tick      time.Duration
}

// DefaultSliderConfig is the direction pedal tuning.
func DefaultSliderConfig() SliderConfig {
	return SliderConfig{
		Min:       -100,
		Max:       100,
		BrakeStep: 1,
		DecayStep: 2,
		Tick:      10 * time.Millisecond,
	}
}

func (c SliderConfig) Validate() error {
	if !finite(c.Min, c.Max, c.BrakeStep, c.DecayStep) {
		return fmt.Errorf("slider bounds and steps must be finite numbers")
	}
	if c.Min > RestValue || c.Max < RestValue {
		return fmt.Errorf("slider bounds [%g,%g] must contain the rest value %g", c.Min, c.Max, RestValue)
	}
	if c.BrakeStep <= 0 || c.DecayStep <= 0 {
		return fmt.Errorf("slider steps must be positive (brake_step=%g, decay_step=%g)", c.BrakeStep, c.DecayStep)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("slider tick must be positive, got %s", c.Tick)
	}
	return nil
}

// Slider is the drag variant of the continuous emitter. The value follows
// the drag position directly and decays to rest on release. A dedicated
// brake pulls it toward Min while held, or snaps it to rest when tapped.
type Slider struct {
	cfg      SliderConfig
	sched    Scheduler
	onChange ValueChangeFunc

	value        float64
	state        State
	holdingBrake bool

	stopTick Cancel
}

func NewSlider(cfg SliderConfig, sched Scheduler, onChange ValueChangeFunc) *Slider {
	return &Slider{cfg: cfg, sched: sched, onChange: onChange}
}

func (s *Slider) Value() float64 { return s.value }

func (s *Slider) State() State { return s.state }

func (s *Slider) Ticking() bool { return s.stopTick != nil }

// Drag sets the value from the drag position. Ignored while the brake is held.
func (s *Slider) Drag(v float64) {
	if s.holdingBrake || math.IsNaN(v) {
		return
	}
	stop(&s.stopTick)
	s.state = StateDragging
	s.set(v)
}

// Release ends a drag and lets the value decay to rest.
func (s *Slider) Release() {
	if s.state != StateDragging {
		return
	}
	s.decay()
}

// PressBrake starts pulling the value toward Min once per tick.
func (s *Slider) PressBrake() {
	if s.holdingBrake {
		return
	}
	s.holdingBrake = true
	stop(&s.stopTick)
	s.state = StateBraking
	s.stopTick = s.sched.Every(s.cfg.Tick, s.tick)
}

// ReleaseBrake lets the value decay to rest.
func (s *Slider) ReleaseBrake() {
	if !s.holdingBrake {
		return
	}
	s.holdingBrake = false
	s.decay()
}

// TapBrake snaps the value to rest immediately. The rest value is emitted
// even when nothing changes.
func (s *Slider) TapBrake() {
	s.Stop()
	s.holdingBrake = false
	s.value = RestValue
	s.onChange(RestValue)
}

// Stop cancels scheduled work and leaves the value where it is.
func (s *Slider) Stop() {
	stop(&s.stopTick)
	s.state = StateIdle
}

func (s *Slider) decay() {
	stop(&s.stopTick)
	if s.value == RestValue {
		s.state = StateIdle
		return
	}
	s.state = StateDecaying
	s.stopTick = s.sched.Every(s.cfg.Tick, s.tick)
}

func (s *Slider) tick() {
	switch s.state {
	case StateBraking:
		s.set(math.Max(s.value-s.cfg.BrakeStep, s.cfg.Min))
	case StateDecaying:
		s.set(approach(s.value, RestValue, s.cfg.DecayStep))
		if s.value == RestValue {
			stop(&s.stopTick)
			s.state = StateIdle
		}
	}
}

func (s *Slider) set(v float64) {
	v = clamp(v, s.cfg.Min, s.cfg.Max)
	if v == s.value {
		return
	}
	s.value = v
	s.onChange(v)
}
