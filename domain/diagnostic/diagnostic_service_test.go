package diagnostic

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forklift-teleop/controller/domain/session"
	"github.com/forklift-teleop/controller/pkg/config"
	"github.com/forklift-teleop/controller/pkg/processing"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions []session.Info

func (f fakeSessions) List() []session.Info { return f }

type fakePools map[string]processing.PoolMetrics

func (f fakePools) GetPoolMetrics() map[string]processing.PoolMetrics { return f }

type fakeChannels map[string]map[string]interface{}

func (f fakeChannels) GetChannelStats() map[string]map[string]interface{} { return f }

type fakeProfiles struct{ profile config.Profile }

func (f *fakeProfiles) GetCurrentProfile() *config.Profile { return &f.profile }

func TestGetMetrics(t *testing.T) {
	svc := NewDiagnosticService(
		fakeSessions{{ID: "s1", Endpoint: "http://10.0.0.2", CreatedAt: time.Now(), Throttle: 12}},
		fakePools{
			config.ChannelSteering: {ProcessedCount: 4, DroppedCount: 1},
			config.ChannelThrottle: {ProcessedCount: 9, ErrorCount: 2},
		},
		fakeChannels{config.ChannelThrottle: {"path": "setThrottle1"}},
		&fakeProfiles{profile: config.DefaultProfile()},
	)

	metrics := svc.GetMetrics()
	assert.Equal(t, "forklift", metrics.RobotID)
	assert.Equal(t, "forklift-default", metrics.ConfigID)
	assert.Equal(t, 1, metrics.ActiveSessions)
	assert.Positive(t, metrics.Goroutines)

	require.Len(t, metrics.Lanes, 2)
	assert.Equal(t, LaneStatus{Name: config.ChannelSteering, Processed: 4, Dropped: 1}, metrics.Lanes[0])
	assert.Equal(t, LaneStatus{Name: config.ChannelThrottle, Processed: 9, Errors: 2}, metrics.Lanes[1])
	assert.Equal(t, "setThrottle1", metrics.Channels[config.ChannelThrottle]["path"])
}

func TestGetMetricsWithoutSources(t *testing.T) {
	metrics := NewDiagnosticService(nil, nil, nil, nil).GetMetrics()
	assert.Zero(t, metrics.ActiveSessions)
	assert.NotNil(t, metrics.Sessions)
	assert.NotNil(t, metrics.Lanes)
	assert.NotNil(t, metrics.Channels)
}

func TestGetMetricsHandler(t *testing.T) {
	svc := NewDiagnosticService(fakeSessions{{ID: "s1"}}, nil, nil, nil)
	app := fiber.New()
	app.Get("/api/diagnostics", svc.GetMetricsHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/diagnostics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status  string        `json:"status"`
		Metrics SystemMetrics `json:"metrics"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	require.Len(t, body.Metrics.Sessions, 1)
	assert.Equal(t, "s1", body.Metrics.Sessions[0].ID)
}
