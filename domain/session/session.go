// Package session ties one dashboard connection to its controls, its
// forklift endpoint and the command pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/forklift-teleop/controller/pkg/config"
	"github.com/forklift-teleop/controller/pkg/control"
	"github.com/forklift-teleop/controller/pkg/endpoint"
	"github.com/forklift-teleop/controller/pkg/events"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/forklift-teleop/controller/pkg/processing"
	"github.com/forklift-teleop/controller/pkg/readout"
	"github.com/google/uuid"
	"k8s.io/utils/clock"
)

var (
	// ErrNoEndpoint is returned for gestures received before an endpoint was accepted.
	ErrNoEndpoint = errors.New("no forklift endpoint accepted yet")
	// ErrEndpointAlreadySet is returned when a session tries to change its endpoint.
	ErrEndpointAlreadySet = errors.New("forklift endpoint already set for this session")
	// ErrUnknownAction is returned for an action a control does not support.
	ErrUnknownAction = errors.New("unknown action")
)

// Gesture actions.
const (
	ActionAccelerateDown = "accelerate_down"
	ActionAccelerateUp   = "accelerate_up"
	ActionBrakeDown      = "brake_down"
	ActionBrakeUp        = "brake_up"
	ActionBrakeTap       = "brake_tap"
	ActionDrag           = "drag"
	ActionRelease        = "release"
	ActionGrab           = "grab"
	ActionMove           = "move"
)

// Dispatcher queues a command for delivery without blocking.
type Dispatcher interface {
	Dispatch(cmd *processing.Command) error
}

// EventPublisher mirrors emissions on the event bus.
type EventPublisher interface {
	PublishControlEvent(event events.ControlEvent) error
}

// EmissionRecorder counts emissions, typically for metrics.
type EmissionRecorder interface {
	RecordEmission(channel string)
}

// ReadoutSink receives every emitted reading. It runs on the session loop.
type ReadoutSink func(reading readout.Reading)

// Options configures a session. Profile and Dispatcher are required.
type Options struct {
	Profile    *config.Profile
	Dispatcher Dispatcher
	Publisher  EventPublisher
	Recorder   EmissionRecorder
	Sink       ReadoutSink
	Logger     customlog.Logger
	Clock      clock.WithTicker
	QueueSize  int
	RemoteAddr string
}

// Info is a point-in-time description of a session.
type Info struct {
	ID         string    `json:"id"`
	Endpoint   string    `json:"endpoint,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Throttle   float64   `json:"throttle"`
	Direction  float64   `json:"direction"`
	Steering   float64   `json:"steering"`
}

// Session owns the controls of one dashboard. Control state is only
// touched on the session loop: callers hand work to it with Post.
type Session struct {
	id         string
	createdAt  time.Time
	remoteAddr string
	logger     customlog.Logger

	loop      *control.Loop
	throttle  *control.Throttle
	direction *control.Slider
	steering  *control.Steering
	scale     readout.Scale

	dispatcher Dispatcher
	publisher  EventPublisher
	recorder   EmissionRecorder
	sink       ReadoutSink

	mu       sync.RWMutex
	endpoint endpoint.Endpoint
	values   map[string]float64
}

// New creates a session from a profile snapshot. The profile is not
// consulted again, so later updates do not affect it.
func New(opts Options) (*Session, error) {
	if opts.Profile == nil {
		return nil, fmt.Errorf("session requires a control profile")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("session requires a dispatcher")
	}
	if opts.Logger == nil {
		opts.Logger = customlog.Discard()
	}

	scale, err := readout.NewScale(opts.Profile.Speedometer.Min, opts.Profile.Speedometer.Max, opts.Profile.Speedometer.SegmentStep)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		id:         id,
		createdAt:  time.Now(),
		remoteAddr: opts.RemoteAddr,
		logger:     opts.Logger.WithField("session", id),
		loop:       control.NewLoop(opts.Clock, opts.QueueSize),
		scale:      scale,
		dispatcher: opts.Dispatcher,
		publisher:  opts.Publisher,
		recorder:   opts.Recorder,
		sink:       opts.Sink,
		values:     make(map[string]float64, 3),
	}
	s.throttle = control.NewThrottle(opts.Profile.ThrottleConfig(), s.loop, s.emitter(config.ChannelThrottle))
	s.direction = control.NewSlider(opts.Profile.DirectionConfig(), s.loop, s.emitter(config.ChannelDirection))
	s.steering = control.NewSteering(opts.Profile.SteeringConfig(), s.loop, s.emitter(config.ChannelSteering))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Scale returns the speedometer scale of the session.
func (s *Session) Scale() readout.Scale { return s.scale }

// Run drives the session loop until ctx is done or Close is called. All
// timers are cancelled before it returns.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Debugf("Session loop started")
	err := s.loop.Run(ctx)
	// The loop goroutine has exited, so the controls are ours.
	s.throttle.Stop()
	s.direction.Stop()
	s.steering.Stop()
	s.logger.Debugf("Session loop stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Post runs fn on the session loop. It returns false once the session is
// closed.
func (s *Session) Post(fn func()) bool {
	return s.loop.Post(fn)
}

// Close stops the session loop. The endpoint is discarded with it.
func (s *Session) Close() {
	s.loop.Close()
}

// Done is closed when the session stops.
func (s *Session) Done() <-chan struct{} {
	return s.loop.Done()
}

// Endpoint returns the accepted endpoint, or the zero Endpoint.
func (s *Session) Endpoint() endpoint.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint
}

// AcceptEndpoint validates raw and makes it the session's endpoint. It
// fails if an endpoint was already accepted.
func (s *Session) AcceptEndpoint(raw string) (endpoint.Endpoint, error) {
	ep, err := endpoint.Parse(raw)
	if err != nil {
		return endpoint.Endpoint{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.endpoint.IsZero() {
		return s.endpoint, ErrEndpointAlreadySet
	}
	s.endpoint = ep
	s.logger.Infof("Forklift endpoint set to %s", ep)
	return ep, nil
}

// Info describes the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		ID:         s.id,
		RemoteAddr: s.remoteAddr,
		CreatedAt:  s.createdAt,
		Throttle:   s.values[config.ChannelThrottle],
		Direction:  s.values[config.ChannelDirection],
		Steering:   s.values[config.ChannelSteering],
	}
	if !s.endpoint.IsZero() {
		info.Endpoint = s.endpoint.String()
	}
	return info
}

// Throttle applies a pedal gesture. Loop only.
func (s *Session) Throttle(action string) error {
	if err := s.requireEndpoint(); err != nil {
		return err
	}
	switch action {
	case ActionAccelerateDown:
		s.throttle.PressAccelerate()
	case ActionAccelerateUp:
		s.throttle.ReleaseAccelerate()
	case ActionBrakeDown:
		s.throttle.PressBrake()
	case ActionBrakeUp:
		s.throttle.ReleaseBrake()
	default:
		return fmt.Errorf("%w: throttle %q", ErrUnknownAction, action)
	}
	return nil
}

// Direction applies a direction pedal gesture. Loop only.
func (s *Session) Direction(action string, value float64) error {
	if err := s.requireEndpoint(); err != nil {
		return err
	}
	switch action {
	case ActionDrag:
		s.direction.Drag(value)
	case ActionRelease:
		s.direction.Release()
	case ActionBrakeDown:
		s.direction.PressBrake()
	case ActionBrakeUp:
		s.direction.ReleaseBrake()
	case ActionBrakeTap:
		s.direction.TapBrake()
	default:
		return fmt.Errorf("%w: direction %q", ErrUnknownAction, action)
	}
	return nil
}

// Steering applies a wheel gesture. x and y are relative to the wheel
// center. Loop only.
func (s *Session) Steering(action string, x, y float64) error {
	if err := s.requireEndpoint(); err != nil {
		return err
	}
	switch action {
	case ActionGrab:
		s.steering.Grab(x, y)
	case ActionMove:
		s.steering.Move(x, y)
	case ActionRelease:
		s.steering.Release()
	default:
		return fmt.Errorf("%w: steering %q", ErrUnknownAction, action)
	}
	return nil
}

func (s *Session) requireEndpoint() error {
	if s.Endpoint().IsZero() {
		return ErrNoEndpoint
	}
	return nil
}

// emitter fans a control's emissions out to the readout, the device, the
// event bus and metrics.
func (s *Session) emitter(channel string) control.ValueChangeFunc {
	return func(value float64) {
		reading := readout.For(channel, value)

		s.mu.Lock()
		s.values[channel] = value
		ep := s.endpoint
		s.mu.Unlock()

		if s.sink != nil {
			s.sink(reading)
		}
		if s.recorder != nil {
			s.recorder.RecordEmission(channel)
		}
		if ep.IsZero() {
			return
		}

		cmd := processing.NewCommand(s.id, ep, channel, value)
		if err := s.dispatcher.Dispatch(cmd); err != nil {
			s.logger.Debugf("Command %s=%s not queued: %v", channel, processing.FormatValue(value), err)
		}

		if s.publisher != nil {
			event := events.ControlEvent{
				SessionID:   s.id,
				Channel:     channel,
				Value:       value,
				Display:     reading.Display,
				Endpoint:    ep.String(),
				TimestampNs: cmd.Timestamp,
			}
			if err := s.publisher.PublishControlEvent(event); err != nil {
				s.logger.Debugf("Control event for %s not published: %v", channel, err)
			}
		}
	}
}
