package control

import (
	"fmt"
	"math"
	"time"
)

// SteeringConfig tunes the steering wheel.
type SteeringConfig struct {
	Min           float64 // degrees
	Max           float64 // degrees
	Radius        float64 // hit region, same units as pointer coordinates
	DecayFactor   float64
	SnapThreshold float64 // degrees
	FrameInterval time.Duration
}

// DefaultSteeringConfig matches the 200px dashboard wheel.
func DefaultSteeringConfig() SteeringConfig {
	return SteeringConfig{
		Min:           -60,
		Max:           60,
		Radius:        100,
		DecayFactor:   0.85,
		SnapThreshold: 0.5,
		FrameInterval: 16 * time.Millisecond,
	}
}

func (c SteeringConfig) Validate() error {
	if !finite(c.Min, c.Max, c.Radius, c.DecayFactor, c.SnapThreshold) {
		return fmt.Errorf("steering bounds and factors must be finite numbers")
	}
	if c.Min > RestValue || c.Max < RestValue {
		return fmt.Errorf("steering bounds [%g,%g] must contain the rest angle %g", c.Min, c.Max, RestValue)
	}
	if c.Radius <= 0 {
		return fmt.Errorf("steering radius must be positive, got %g", c.Radius)
	}
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 {
		return fmt.Errorf("steering decay factor must be in (0,1), got %g", c.DecayFactor)
	}
	if c.SnapThreshold <= 0 {
		return fmt.Errorf("steering snap threshold must be positive, got %g", c.SnapThreshold)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("steering frame interval must be positive, got %s", c.FrameInterval)
	}
	return nil
}

// Steering converts a circular drag into a clamped wheel angle and springs
// back to center when let go.
type Steering struct {
	cfg      SteeringConfig
	sched    Scheduler
	onChange ValueChangeFunc

	angle        float64
	state        State
	startPointer float64
	startWheel   float64

	stopFrames Cancel
}

func NewSteering(cfg SteeringConfig, sched Scheduler, onChange ValueChangeFunc) *Steering {
	return &Steering{cfg: cfg, sched: sched, onChange: onChange}
}

func (s *Steering) Angle() float64 { return s.angle }

func (s *Steering) State() State { return s.state }

// Animating reports whether a spring-back frame handle is outstanding.
func (s *Steering) Animating() bool { return s.stopFrames != nil }

// Grab starts a drag at (x, y), relative to the wheel center. Points outside
// the wheel are ignored and false is returned.
func (s *Steering) Grab(x, y float64) bool {
	if !finite(x, y) || x*x+y*y > s.cfg.Radius*s.cfg.Radius {
		return false
	}
	stop(&s.stopFrames)
	s.state = StateDragging
	s.startPointer = pointerAngle(x, y)
	s.startWheel = s.angle
	return true
}

// Move rotates the wheel by the pointer's shortest-path angular delta since
// the grab. Every accepted move is emitted, even when clamped.
func (s *Steering) Move(x, y float64) {
	if s.state != StateDragging || !finite(x, y) {
		return
	}
	delta := normalizeDegrees(pointerAngle(x, y) - s.startPointer)
	s.angle = clamp(s.startWheel+delta, s.cfg.Min, s.cfg.Max)
	s.onChange(s.angle)
}

// Release ends a drag and springs the wheel back to center.
func (s *Steering) Release() {
	if s.state != StateDragging {
		return
	}
	if s.angle == RestValue {
		s.state = StateIdle
		return
	}
	s.state = StateDecaying
	s.stopFrames = s.sched.Every(s.cfg.FrameInterval, s.frame)
}

// Stop cancels the spring-back and leaves the wheel where it is.
func (s *Steering) Stop() {
	stop(&s.stopFrames)
	s.state = StateIdle
}

func (s *Steering) frame() {
	if s.state != StateDecaying {
		return
	}
	next := s.angle * s.cfg.DecayFactor
	if math.Abs(next) < s.cfg.SnapThreshold {
		next = RestValue
	}
	s.angle = next
	s.onChange(next)
	if next == RestValue {
		s.Stop()
	}
}

func pointerAngle(x, y float64) float64 {
	return math.Atan2(y, x) * 180 / math.Pi
}

// normalizeDegrees maps d into [-180, 180].
func normalizeDegrees(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}
