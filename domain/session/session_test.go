package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/forklift-teleop/controller/pkg/config"
	"github.com/forklift-teleop/controller/pkg/endpoint"
	"github.com/forklift-teleop/controller/pkg/events"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/forklift-teleop/controller/pkg/processing"
	"github.com/forklift-teleop/controller/pkg/readout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	commands []processing.Command
}

func (d *fakeDispatcher) Dispatch(cmd *processing.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, *cmd)
	return nil
}

func (d *fakeDispatcher) values(channel string) []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []float64
	for _, cmd := range d.commands {
		if cmd.Channel == channel {
			out = append(out, cmd.Value)
		}
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.ControlEvent
}

func (p *fakePublisher) PublishControlEvent(event events.ControlEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type harness struct {
	session    *Session
	clock      *testclock.FakeClock
	dispatcher *fakeDispatcher
	publisher  *fakePublisher
	readings   []readout.Reading
	runErr     chan error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	profile := config.DefaultProfile()
	h := &harness{
		clock:      testclock.NewFakeClock(time.Now()),
		dispatcher: &fakeDispatcher{},
		publisher:  &fakePublisher{},
		runErr:     make(chan error, 1),
	}
	s, err := New(Options{
		Profile:    &profile,
		Dispatcher: h.dispatcher,
		Publisher:  h.publisher,
		Sink:       func(r readout.Reading) { h.readings = append(h.readings, r) },
		Logger:     customlog.Discard(),
		Clock:      h.clock,
	})
	require.NoError(t, err)
	h.session = s

	go func() { h.runErr <- s.Run(context.Background()) }()
	t.Cleanup(s.Close)
	return h
}

// do runs fn on the session loop and waits for it.
func (h *harness) do(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, h.session.Post(func() {
		fn()
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session loop did not run the posted event")
	}
}

func TestGesturesRequireEndpoint(t *testing.T) {
	h := newHarness(t)

	h.do(t, func() {
		assert.ErrorIs(t, h.session.Throttle(ActionAccelerateDown), ErrNoEndpoint)
		assert.ErrorIs(t, h.session.Direction(ActionDrag, 40), ErrNoEndpoint)
		assert.ErrorIs(t, h.session.Steering(ActionGrab, 50, 0), ErrNoEndpoint)
	})

	assert.Empty(t, h.dispatcher.values(config.ChannelDirection))
	assert.Empty(t, h.readings)
}

func TestAcceptEndpointIsSetOnce(t *testing.T) {
	h := newHarness(t)

	_, err := h.session.AcceptEndpoint("256.1.1.1")
	assert.ErrorIs(t, err, endpoint.ErrInvalidEndpoint)
	assert.True(t, h.session.Endpoint().IsZero())

	ep, err := h.session.AcceptEndpoint("192.168.1.5:80/api")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.5", ep.String())

	current, err := h.session.AcceptEndpoint("10.0.0.1")
	assert.ErrorIs(t, err, ErrEndpointAlreadySet)
	assert.Equal(t, "http://192.168.1.5", current.String())
	assert.Equal(t, "http://192.168.1.5", h.session.Info().Endpoint)
}

func TestThrottleEmissionsReachDispatcher(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.AcceptEndpoint("forklift.local")
	require.NoError(t, err)

	h.do(t, func() { require.NoError(t, h.session.Throttle(ActionAccelerateDown)) })
	require.Eventually(t, h.clock.HasWaiters, time.Second, time.Millisecond)

	for i := 1; i <= 3; i++ {
		h.clock.Step(10 * time.Millisecond)
		want := i
		require.Eventually(t, func() bool { return len(h.dispatcher.values(config.ChannelThrottle)) == want },
			time.Second, time.Millisecond)
	}

	assert.Equal(t, []float64{1, 2, 3}, h.dispatcher.values(config.ChannelThrottle))
	h.do(t, func() {
		require.Len(t, h.readings, 3)
		assert.Equal(t, "Throttle: 3", h.readings[2].Display)
	})

	h.dispatcher.mu.Lock()
	cmd := h.dispatcher.commands[0]
	h.dispatcher.mu.Unlock()
	assert.Equal(t, h.session.ID(), cmd.SessionID)
	assert.Equal(t, "http://forklift.local", cmd.Endpoint.String())
	assert.Equal(t, 3.0, h.session.Info().Throttle)
}

func TestDirectionAndSteeringEmitImmediately(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.AcceptEndpoint("10.0.0.7")
	require.NoError(t, err)

	h.do(t, func() {
		require.NoError(t, h.session.Direction(ActionDrag, 40))
		require.NoError(t, h.session.Steering(ActionGrab, 50, 0))
		require.NoError(t, h.session.Steering(ActionMove, 0, 50))
	})

	assert.Equal(t, []float64{40}, h.dispatcher.values(config.ChannelDirection))
	assert.Equal(t, []float64{60}, h.dispatcher.values(config.ChannelSteering))

	h.publisher.mu.Lock()
	defer h.publisher.mu.Unlock()
	require.Len(t, h.publisher.events, 2)
	last := h.publisher.events[1]
	assert.Equal(t, "forklift.control.steering", last.Topic())
	assert.Equal(t, "Steering: 60 deg", last.Display)
	assert.Equal(t, "http://10.0.0.7", last.Endpoint)
}

func TestUnknownActions(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.AcceptEndpoint("10.0.0.7")
	require.NoError(t, err)

	h.do(t, func() {
		assert.ErrorIs(t, h.session.Throttle("honk"), ErrUnknownAction)
		assert.ErrorIs(t, h.session.Direction(ActionGrab, 0), ErrUnknownAction)
		assert.ErrorIs(t, h.session.Steering(ActionBrakeTap, 0, 0), ErrUnknownAction)
	})
}

func TestCloseStopsLoopAndTimers(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.AcceptEndpoint("10.0.0.7")
	require.NoError(t, err)

	h.do(t, func() { require.NoError(t, h.session.Direction(ActionDrag, 80)) })
	h.do(t, func() { require.NoError(t, h.session.Direction(ActionRelease, 0)) })

	h.session.Close()
	select {
	case err := <-h.runErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}

	assert.False(t, h.session.Post(func() {}))
	h.clock.Step(time.Second)
	assert.Equal(t, []float64{80}, h.dispatcher.values(config.ChannelDirection))
}

func TestNewRequiresProfileAndDispatcher(t *testing.T) {
	profile := config.DefaultProfile()

	_, err := New(Options{Dispatcher: &fakeDispatcher{}})
	assert.Error(t, err)
	_, err = New(Options{Profile: &profile})
	assert.Error(t, err)
}

type countingTracker struct{ opened, closed int }

func (c *countingTracker) SessionOpened() { c.opened++ }
func (c *countingTracker) SessionClosed() { c.closed++ }

func TestManager(t *testing.T) {
	profile := config.DefaultProfile()
	tracker := &countingTracker{}
	m := NewManager(customlog.Discard(), tracker)

	first, err := m.Open(Options{Profile: &profile, Dispatcher: &fakeDispatcher{}, RemoteAddr: "10.1.1.1:5000"})
	require.NoError(t, err)
	second, err := m.Open(Options{Profile: &profile, Dispatcher: &fakeDispatcher{}})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 2, m.Count())

	got, ok := m.Get(first.ID())
	require.True(t, ok)
	assert.Same(t, first, got)

	infos := m.List()
	require.Len(t, infos, 2)
	for _, info := range infos {
		if info.ID == first.ID() {
			assert.Equal(t, "10.1.1.1:5000", info.RemoteAddr)
		}
	}

	m.Close(first.ID())
	m.Close(first.ID())
	assert.Equal(t, 1, m.Count())
	select {
	case <-first.Done():
	default:
		t.Fatal("closed session must be stopped")
	}

	m.CloseAll()
	assert.Zero(t, m.Count())
	assert.Equal(t, 2, tracker.opened)
	assert.Equal(t, 2, tracker.closed)
}
