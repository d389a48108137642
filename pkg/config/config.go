package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/forklift-teleop/controller/pkg/control"
	"github.com/forklift-teleop/controller/pkg/readout"
	"gopkg.in/yaml.v3"
)

// Channel names used throughout the controller.
const (
	ChannelThrottle  = "throttle"
	ChannelDirection = "direction"
	ChannelSteering  = "steering"
)

var (
	// ErrInvalidProfile marks a profile that parsed but failed validation.
	ErrInvalidProfile = errors.New("invalid control profile")
	// ErrMalformedProfile marks a profile document that is not valid YAML.
	ErrMalformedProfile = errors.New("malformed control profile")
)

// Profile is the operational control tuning. It is applied to every
// session started after it is loaded.
type Profile struct {
	Version         string             `yaml:"version" json:"version"`
	ConfigID        string             `yaml:"config_id" json:"config_id"`
	LastUpdated     string             `yaml:"lastUpdated" json:"lastUpdated"`
	RobotID         string             `yaml:"robot_id" json:"robot_id"`
	Throttle        ThrottleProfile    `yaml:"throttle" json:"throttle"`
	Direction       SliderProfile      `yaml:"direction" json:"direction"`
	Steering        SteeringProfile    `yaml:"steering" json:"steering"`
	Speedometer     SpeedometerProfile `yaml:"speedometer" json:"speedometer"`
	ChannelMappings []ChannelMapping   `yaml:"channel_mappings" json:"channel_mappings"`
}

// ThrottleProfile tunes the pedal pair.
type ThrottleProfile struct {
	Min        float64 `yaml:"min" json:"min"`
	Max        float64 `yaml:"max" json:"max"`
	Step       float64 `yaml:"step" json:"step"`
	DecayStep  float64 `yaml:"decay_step" json:"decay_step"`
	TickMs     int     `yaml:"tick_ms" json:"tick_ms"`
	BrakeArmMs int     `yaml:"brake_arm_ms" json:"brake_arm_ms"`
}

// SliderProfile tunes the direction pedal.
type SliderProfile struct {
	Min       float64 `yaml:"min" json:"min"`
	Max       float64 `yaml:"max" json:"max"`
	BrakeStep float64 `yaml:"brake_step" json:"brake_step"`
	DecayStep float64 `yaml:"decay_step" json:"decay_step"`
	TickMs    int     `yaml:"tick_ms" json:"tick_ms"`
}

// SteeringProfile tunes the steering wheel.
type SteeringProfile struct {
	Min           float64 `yaml:"min" json:"min"`
	Max           float64 `yaml:"max" json:"max"`
	Radius        float64 `yaml:"radius" json:"radius"`
	DecayFactor   float64 `yaml:"decay_factor" json:"decay_factor"`
	SnapThreshold float64 `yaml:"snap_threshold" json:"snap_threshold"`
	FrameMs       int     `yaml:"frame_ms" json:"frame_ms"`
}

// SpeedometerProfile sets the readout gauge scale.
type SpeedometerProfile struct {
	Min         float64 `yaml:"min" json:"min"`
	Max         float64 `yaml:"max" json:"max"`
	SegmentStep float64 `yaml:"segment_step" json:"segment_step"`
}

// ChannelMapping binds a control channel to its device path.
type ChannelMapping struct {
	Channel string `yaml:"channel" json:"channel"`
	Path    string `yaml:"path" json:"path"`
}

// DefaultProfile returns the stock dashboard tuning.
func DefaultProfile() Profile {
	th := control.DefaultThrottleConfig()
	sl := control.DefaultSliderConfig()
	st := control.DefaultSteeringConfig()
	return Profile{
		Version:  "1.0",
		ConfigID: "forklift-default",
		RobotID:  "forklift",
		Throttle: ThrottleProfile{
			Min:        th.Min,
			Max:        th.Max,
			Step:       th.Step,
			DecayStep:  th.DecayStep,
			TickMs:     int(th.Tick / time.Millisecond),
			BrakeArmMs: int(th.BrakeArmDelay / time.Millisecond),
		},
		Direction: SliderProfile{
			Min:       sl.Min,
			Max:       sl.Max,
			BrakeStep: sl.BrakeStep,
			DecayStep: sl.DecayStep,
			TickMs:    int(sl.Tick / time.Millisecond),
		},
		Steering: SteeringProfile{
			Min:           st.Min,
			Max:           st.Max,
			Radius:        st.Radius,
			DecayFactor:   st.DecayFactor,
			SnapThreshold: st.SnapThreshold,
			FrameMs:       int(st.FrameInterval / time.Millisecond),
		},
		Speedometer: SpeedometerProfile{Min: 0, Max: 100, SegmentStep: 10},
		ChannelMappings: []ChannelMapping{
			{Channel: ChannelThrottle, Path: "setThrottle1"},
			{Channel: ChannelDirection, Path: "setThrottle2"},
			{Channel: ChannelSteering, Path: "setSteering"},
		},
	}
}

// LoadProfile reads and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading profile file: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes YAML over the defaults and validates the result.
func ParseProfile(data []byte) (*Profile, error) {
	profile := DefaultProfile()
	// Explicit mappings in the document replace the default set.
	profile.ChannelMappings = nil
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	if len(profile.ChannelMappings) == 0 {
		profile.ChannelMappings = DefaultProfile().ChannelMappings
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Validate checks metadata, control tuning and channel mappings.
func (p *Profile) Validate() error {
	if p.ConfigID == "" || p.Version == "" || p.RobotID == "" {
		return fmt.Errorf("%w: missing required fields (config_id, version, robot_id)", ErrInvalidProfile)
	}
	if err := p.ThrottleConfig().Validate(); err != nil {
		return fmt.Errorf("%w: throttle: %v", ErrInvalidProfile, err)
	}
	if err := p.DirectionConfig().Validate(); err != nil {
		return fmt.Errorf("%w: direction: %v", ErrInvalidProfile, err)
	}
	if err := p.SteeringConfig().Validate(); err != nil {
		return fmt.Errorf("%w: steering: %v", ErrInvalidProfile, err)
	}
	if _, err := readout.NewScale(p.Speedometer.Min, p.Speedometer.Max, p.Speedometer.SegmentStep); err != nil {
		return fmt.Errorf("%w: speedometer: %v", ErrInvalidProfile, err)
	}
	for _, channel := range []string{ChannelThrottle, ChannelDirection, ChannelSteering} {
		mapping, ok := p.GetChannelMapping(channel)
		if !ok || mapping.Path == "" {
			return fmt.Errorf("%w: no device path for channel %q", ErrInvalidProfile, channel)
		}
	}
	return nil
}

// GetChannelMapping returns the mapping for a channel.
func (p *Profile) GetChannelMapping(channel string) (ChannelMapping, bool) {
	for _, mapping := range p.ChannelMappings {
		if mapping.Channel == channel {
			return mapping, true
		}
	}
	return ChannelMapping{}, false
}

// ThrottleConfig converts the throttle section for the control package.
func (p *Profile) ThrottleConfig() control.ThrottleConfig {
	return control.ThrottleConfig{
		Min:           p.Throttle.Min,
		Max:           p.Throttle.Max,
		Step:          p.Throttle.Step,
		DecayStep:     p.Throttle.DecayStep,
		Tick:          time.Duration(p.Throttle.TickMs) * time.Millisecond,
		BrakeArmDelay: time.Duration(p.Throttle.BrakeArmMs) * time.Millisecond,
	}
}

// DirectionConfig converts the direction pedal section.
func (p *Profile) DirectionConfig() control.SliderConfig {
	return control.SliderConfig{
		Min:       p.Direction.Min,
		Max:       p.Direction.Max,
		BrakeStep: p.Direction.BrakeStep,
		DecayStep: p.Direction.DecayStep,
		Tick:      time.Duration(p.Direction.TickMs) * time.Millisecond,
	}
}

// SteeringConfig converts the steering section.
func (p *Profile) SteeringConfig() control.SteeringConfig {
	return control.SteeringConfig{
		Min:           p.Steering.Min,
		Max:           p.Steering.Max,
		Radius:        p.Steering.Radius,
		DecayFactor:   p.Steering.DecayFactor,
		SnapThreshold: p.Steering.SnapThreshold,
		FrameInterval: time.Duration(p.Steering.FrameMs) * time.Millisecond,
	}
}
