package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandOutcomes(t *testing.T) {
	m := New()

	m.CommandSent("throttle", 42, 3*time.Millisecond)
	m.CommandSent("throttle", 43, 4*time.Millisecond)
	m.CommandFailed("throttle", time.Second)
	m.CommandDropped("steering")

	want := `
# HELP forklift_controller_commands_total Device commands by channel and result (sent, failed, dropped).
# TYPE forklift_controller_commands_total counter
forklift_controller_commands_total{channel="steering",result="dropped"} 1
forklift_controller_commands_total{channel="throttle",result="failed"} 1
forklift_controller_commands_total{channel="throttle",result="sent"} 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), CommandsTotalMetric); err != nil {
		t.Error(err)
	}

	assert.Equal(t, 43.0, testutil.ToFloat64(m.controlValue.WithLabelValues("throttle")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestSessionsAndValidations(t *testing.T) {
	m := New()

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.RecordValidation(true)
	m.RecordValidation(false)
	m.RecordValidation(false)
	m.RecordEmission("direction")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.validations.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emissions.WithLabelValues("direction")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.CommandDropped("direction")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `forklift_controller_commands_total{channel="direction",result="dropped"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
