package control

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestThrottle() (*Throttle, *manualScheduler, *recorder) {
	sched := newManualScheduler()
	rec := &recorder{}
	return NewThrottle(DefaultThrottleConfig(), sched, rec.onChange), sched, rec
}

func TestThrottleAcceleratesOncePerTick(t *testing.T) {
	th, sched, rec := newTestThrottle()

	th.PressAccelerate()
	assert.Equal(t, StateAccelerating, th.State())
	sched.Advance(500 * time.Millisecond)

	assert.Equal(t, 50.0, th.Value())
	require.Len(t, rec.values, 50)
	for i, v := range rec.values {
		assert.Equal(t, float64(i+1), v)
	}
}

func TestThrottleClampsAtMax(t *testing.T) {
	th, sched, rec := newTestThrottle()

	th.PressAccelerate()
	sched.Advance(5 * time.Second)

	assert.Equal(t, 100.0, th.Value())
	assert.Len(t, rec.values, 100, "no emission once the value stops changing")
}

func TestThrottleReleaseDecaysToRest(t *testing.T) {
	th, sched, rec := newTestThrottle()

	th.PressAccelerate()
	sched.Advance(300 * time.Millisecond)
	require.Equal(t, 30.0, th.Value())

	rec.values = nil
	th.ReleaseAccelerate()
	assert.Equal(t, StateDecaying, th.State())
	sched.Advance(time.Second)

	require.NotEmpty(t, rec.values)
	prev := 30.0
	for _, v := range rec.values {
		assert.Less(t, v, prev, "decay must be strictly monotonic")
		prev = v
	}
	assert.Equal(t, 0.0, rec.last())
	assert.Equal(t, StateIdle, th.State())
	assert.False(t, th.Ticking())

	emitted := len(rec.values)
	sched.Advance(time.Second)
	assert.Len(t, rec.values, emitted, "idle at rest must not emit")
}

func TestThrottleBothHeldIsEmergencyStop(t *testing.T) {
	for _, first := range []string{"accelerate", "brake"} {
		t.Run(first+" first", func(t *testing.T) {
			th, sched, rec := newTestThrottle()

			if first == "accelerate" {
				th.PressAccelerate()
				sched.Advance(200 * time.Millisecond)
				th.PressBrake()
			} else {
				th.PressBrake()
				sched.Advance(200 * time.Millisecond)
				th.PressAccelerate()
			}

			assert.Equal(t, 0.0, th.Value())
			assert.Equal(t, 0.0, rec.last())
			assert.Equal(t, StateIdle, th.State())
			total, _ := sched.pending()
			assert.Zero(t, total, "emergency stop cancels every timer")

			emitted := len(rec.values)
			th.ReleaseAccelerate()
			th.ReleaseBrake()
			sched.Advance(time.Second)
			assert.Len(t, rec.values, emitted)
		})
	}
}

func TestThrottleBrakeFromRestPullsTowardMin(t *testing.T) {
	th, sched, rec := newTestThrottle()

	th.PressBrake()
	assert.Equal(t, StateBraking, th.State())
	sched.Advance(500 * time.Millisecond)

	assert.Equal(t, -50.0, th.Value())
	require.Len(t, rec.values, 50)
	for i, v := range rec.values {
		assert.Equal(t, -float64(i+1), v)
	}
	assert.False(t, th.BrakeArmed())

	sched.Advance(5 * time.Second)
	assert.Equal(t, -100.0, th.Value(), "braking clamps at min")
	assert.True(t, th.BrakeArmed())
}

func TestThrottleBrakeTapSnapsToRest(t *testing.T) {
	th, sched, rec := newTestThrottle()

	th.PressAccelerate()
	sched.Advance(300 * time.Millisecond)
	th.ReleaseAccelerate()
	th.PressBrake()
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, 20.0, th.Value())

	rec.values = nil
	th.ReleaseBrake()
	assert.Equal(t, StateDecaying, th.State())
	sched.Advance(10 * time.Millisecond)

	assert.Equal(t, []float64{0}, rec.values, "an unarmed release stops on the first decay tick")
	assert.Equal(t, StateIdle, th.State())
	assert.False(t, th.Ticking())
}

func TestThrottleArmedBrakeReleaseDecays(t *testing.T) {
	th, sched, rec := newTestThrottle()

	th.PressBrake()
	sched.Advance(1990 * time.Millisecond)
	assert.False(t, th.BrakeArmed())
	sched.Advance(10 * time.Millisecond)
	assert.True(t, th.BrakeArmed())
	sched.Advance(500 * time.Millisecond)
	require.Equal(t, -100.0, th.Value())

	rec.values = nil
	th.ReleaseBrake()
	assert.False(t, th.BrakeArmed())
	sched.Advance(100 * time.Millisecond)
	assert.Equal(t, -80.0, th.Value(), "an armed release decays by decay_step per tick")

	sched.Advance(time.Second)
	prev := -100.0
	for _, v := range rec.values {
		assert.Greater(t, v, prev)
		prev = v
	}
	assert.Equal(t, 0.0, th.Value())
	assert.Equal(t, StateIdle, th.State())
}

func TestThrottleReleaseWithoutPressIsNoop(t *testing.T) {
	th, sched, rec := newTestThrottle()

	th.ReleaseAccelerate()
	th.ReleaseBrake()
	sched.Advance(time.Second)

	assert.Empty(t, rec.values)
	assert.Equal(t, StateIdle, th.State())
	total, _ := sched.pending()
	assert.Zero(t, total)
}

func TestThrottleReleaseAtRestGoesIdle(t *testing.T) {
	th, sched, rec := newTestThrottle()

	th.PressAccelerate()
	th.ReleaseAccelerate()

	assert.Equal(t, StateIdle, th.State())
	assert.False(t, th.Ticking())
	sched.Advance(time.Second)
	assert.Empty(t, rec.values)
}

func TestThrottleStaysInBoundsUnderRandomGestures(t *testing.T) {
	cfg := DefaultThrottleConfig()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 20; run++ {
		th, sched, rec := newTestThrottle()
		for step := 0; step < 400; step++ {
			switch rng.Intn(5) {
			case 0:
				th.PressAccelerate()
			case 1:
				th.ReleaseAccelerate()
			case 2:
				th.PressBrake()
			case 3:
				th.ReleaseBrake()
			case 4:
				sched.Advance(time.Duration(rng.Intn(3000)) * time.Millisecond)
			}

			require.GreaterOrEqual(t, th.Value(), cfg.Min)
			require.LessOrEqual(t, th.Value(), cfg.Max)
			_, periodic := sched.pending()
			require.LessOrEqual(t, periodic, 1, "at most one live ticker")
		}
		for _, v := range rec.values {
			require.GreaterOrEqual(t, v, cfg.Min)
			require.LessOrEqual(t, v, cfg.Max)
		}
	}
}

func TestThrottleConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultThrottleConfig().Validate())

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		bad := DefaultThrottleConfig()
		bad.Min = v
		assert.Error(t, bad.Validate(), "min=%v", v)
		bad = DefaultThrottleConfig()
		bad.Step = v
		assert.Error(t, bad.Validate(), "step=%v", v)
	}

	bad := DefaultThrottleConfig()
	bad.Min = 10
	assert.Error(t, bad.Validate())

	bad = DefaultThrottleConfig()
	bad.Step = 0
	assert.Error(t, bad.Validate())

	bad = DefaultThrottleConfig()
	bad.Tick = 0
	assert.Error(t, bad.Validate())
}
