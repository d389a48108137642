package control

import (
	"fmt"
	"math"
	"time"
)

// ThrottleConfig tunes the accelerator/brake pedal pair.
type ThrottleConfig struct {
	Min           float64
	Max           float64
	Step          float64
	DecayStep     float64
	Tick          time.Duration
	BrakeArmDelay time.Duration
}

// DefaultThrottleConfig matches the stock dashboard tuning.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		Min:           -100,
		Max:           100,
		Step:          1,
		DecayStep:     2,
		Tick:          10 * time.Millisecond,
		BrakeArmDelay: 2 * time.Second,
	}
}

// Validate checks bounds, steps and cadence.
func (c ThrottleConfig) Validate() error {
	if !finite(c.Min, c.Max, c.Step, c.DecayStep) {
		return fmt.Errorf("throttle bounds and steps must be finite numbers")
	}
	if c.Min > RestValue || c.Max < RestValue {
		return fmt.Errorf("throttle bounds [%g,%g] must contain the rest value %g", c.Min, c.Max, RestValue)
	}
	if c.Step <= 0 || c.DecayStep <= 0 {
		return fmt.Errorf("throttle steps must be positive (step=%g, decay_step=%g)", c.Step, c.DecayStep)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("throttle tick must be positive, got %s", c.Tick)
	}
	if c.BrakeArmDelay < 0 {
		return fmt.Errorf("throttle brake arm delay must not be negative, got %s", c.BrakeArmDelay)
	}
	return nil
}

// Throttle converts press-and-hold accelerate/brake gestures into a value
// that ramps once per tick and decays back to rest on release.
//
// Holding the brake pulls the value down toward Min. Releasing a brake that
// was held for less than BrakeArmDelay is a tap: the first decay tick snaps
// the value to rest. Once held for BrakeArmDelay the brake is armed
// (reverse) and its release decays back gradually. Holding both pedals is
// an emergency stop.
type Throttle struct {
	cfg      ThrottleConfig
	sched    Scheduler
	onChange ValueChangeFunc

	value           float64
	state           State
	holdingForward  bool
	holdingBackward bool
	brakeArmed      bool
	snapToRest      bool

	stopTick Cancel
	stopArm  Cancel
}

// NewThrottle returns an idle throttle resting at 0.
func NewThrottle(cfg ThrottleConfig, sched Scheduler, onChange ValueChangeFunc) *Throttle {
	return &Throttle{cfg: cfg, sched: sched, onChange: onChange}
}

func (t *Throttle) Value() float64 { return t.value }

func (t *Throttle) State() State { return t.state }

// BrakeArmed reports whether the brake has been held long enough to reverse.
// It is cleared when the brake is released.
func (t *Throttle) BrakeArmed() bool { return t.brakeArmed }

// Ticking reports whether a tick handle is outstanding.
func (t *Throttle) Ticking() bool { return t.stopTick != nil }

// PressAccelerate handles pointer down on the accelerator.
func (t *Throttle) PressAccelerate() {
	if t.holdingBackward {
		t.EmergencyStop()
		return
	}
	if t.holdingForward {
		return
	}
	t.holdingForward = true
	t.enter(StateAccelerating)
}

// ReleaseAccelerate handles pointer up, leave or cancel on the accelerator.
func (t *Throttle) ReleaseAccelerate() {
	if !t.holdingForward {
		return
	}
	t.holdingForward = false
	t.decay()
}

// PressBrake handles pointer down on the brake.
func (t *Throttle) PressBrake() {
	if t.holdingForward {
		t.EmergencyStop()
		return
	}
	if t.holdingBackward {
		return
	}
	t.holdingBackward = true
	t.disarm()
	if t.cfg.BrakeArmDelay == 0 {
		t.brakeArmed = true
	} else {
		t.stopArm = t.sched.After(t.cfg.BrakeArmDelay, t.armBrake)
	}
	t.enter(StateBraking)
}

// ReleaseBrake handles pointer up, leave or cancel on the brake.
func (t *Throttle) ReleaseBrake() {
	if !t.holdingBackward {
		return
	}
	t.holdingBackward = false
	armed := t.brakeArmed
	t.disarm()
	t.decay()
	t.snapToRest = t.state == StateDecaying && !armed
}

// EmergencyStop forces the value to 0 and drops every gesture and timer.
// The 0 is emitted even when the value already rests there.
func (t *Throttle) EmergencyStop() {
	t.Stop()
	t.holdingForward = false
	t.holdingBackward = false
	t.value = RestValue
	t.onChange(RestValue)
}

// Stop cancels all scheduled work and leaves the value where it is.
func (t *Throttle) Stop() {
	stop(&t.stopTick)
	t.disarm()
	t.state = StateIdle
	t.snapToRest = false
}

func (t *Throttle) enter(state State) {
	stop(&t.stopTick)
	t.state = state
	t.snapToRest = false
	t.stopTick = t.sched.Every(t.cfg.Tick, t.tick)
}

func (t *Throttle) decay() {
	if t.value == RestValue {
		stop(&t.stopTick)
		t.state = StateIdle
		return
	}
	t.enter(StateDecaying)
}

func (t *Throttle) armBrake() {
	t.stopArm = nil
	if t.holdingBackward {
		t.brakeArmed = true
	}
}

func (t *Throttle) disarm() {
	stop(&t.stopArm)
	t.brakeArmed = false
}

func (t *Throttle) tick() {
	switch t.state {
	case StateAccelerating:
		t.set(math.Min(t.value+t.cfg.Step, t.cfg.Max))
	case StateBraking:
		t.set(math.Max(t.value-t.cfg.Step, t.cfg.Min))
	case StateDecaying:
		if t.snapToRest {
			t.set(RestValue)
		} else {
			t.set(approach(t.value, RestValue, t.cfg.DecayStep))
		}
		if t.value == RestValue {
			stop(&t.stopTick)
			t.state = StateIdle
			t.snapToRest = false
		}
	}
}

func (t *Throttle) set(v float64) {
	v = clamp(v, t.cfg.Min, t.cfg.Max)
	if v == t.value {
		return
	}
	t.value = v
	t.onChange(v)
}
