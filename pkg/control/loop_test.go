package control

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"
)

func startLoop(t *testing.T) (*Loop, *testclock.FakeClock) {
	t.Helper()
	fc := testclock.NewFakeClock(time.Now())
	l := NewLoop(fc, 16)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)
	return l, fc
}

// onLoop runs fn on the loop goroutine and waits for it.
func onLoop(t *testing.T, l *Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, l.Post(func() {
		fn()
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not run the posted event")
	}
}

func TestLoopEveryTicksUntilCancelled(t *testing.T) {
	l, fc := startLoop(t)
	var count atomic.Int32
	var cancel Cancel

	onLoop(t, l, func() {
		cancel = l.Every(10*time.Millisecond, func() { count.Add(1) })
	})
	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)

	fc.Step(10 * time.Millisecond)
	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, time.Millisecond)
	fc.Step(10 * time.Millisecond)
	require.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, time.Millisecond)

	onLoop(t, l, func() { cancel() })
	fc.Step(10 * time.Millisecond)
	onLoop(t, l, func() {})
	assert.Never(t, func() bool { return count.Load() != 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestLoopAfterFiresOnce(t *testing.T) {
	l, fc := startLoop(t)
	var fired atomic.Int32

	onLoop(t, l, func() {
		l.After(time.Second, func() { fired.Add(1) })
	})
	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)

	fc.Step(999 * time.Millisecond)
	onLoop(t, l, func() {})
	assert.Equal(t, int32(0), fired.Load())

	fc.Step(time.Millisecond)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	fc.Step(time.Hour)
	onLoop(t, l, func() {})
	assert.Equal(t, int32(1), fired.Load())
}

func TestLoopAfterCancelled(t *testing.T) {
	l, fc := startLoop(t)
	var fired atomic.Int32

	onLoop(t, l, func() {
		cancel := l.After(time.Second, func() { fired.Add(1) })
		cancel()
	})
	fc.Step(2 * time.Second)
	assert.Never(t, func() bool { return fired.Load() != 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestLoopDrivesThrottle(t *testing.T) {
	l, fc := startLoop(t)
	var last atomic.Value
	last.Store(0.0)
	var th *Throttle

	onLoop(t, l, func() {
		th = NewThrottle(DefaultThrottleConfig(), l, func(v float64) { last.Store(v) })
		th.PressAccelerate()
	})
	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)

	for i := 1; i <= 5; i++ {
		fc.Step(10 * time.Millisecond)
		want := float64(i)
		require.Eventually(t, func() bool { return last.Load().(float64) == want }, time.Second, time.Millisecond)
	}

	onLoop(t, l, func() {
		th.PressBrake()
		assert.Equal(t, 0.0, th.Value())
		assert.False(t, th.Ticking())
	})
}

func TestLoopPostAfterClose(t *testing.T) {
	l := NewLoop(testclock.NewFakeClock(time.Now()), 1)
	l.Close()

	assert.False(t, l.Post(func() {}))
	select {
	case <-l.Done():
	default:
		t.Fatal("Done must be closed after Close")
	}
	assert.NoError(t, l.Run(context.Background()))
}
