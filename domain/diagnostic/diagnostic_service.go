package diagnostic

import (
	"runtime"
	"sort"
	"time"

	"github.com/forklift-teleop/controller/domain/session"
	"github.com/forklift-teleop/controller/pkg/config"
	"github.com/forklift-teleop/controller/pkg/processing"
	"github.com/gofiber/fiber/v2"
)

// SystemMetrics represents system diagnostics information
type SystemMetrics struct {
	Timestamp      time.Time                         `json:"timestamp"`
	Uptime         string                            `json:"uptime"`
	RobotID        string                            `json:"robot_id"`
	ConfigID       string                            `json:"config_id"`
	Goroutines     int                               `json:"goroutines"`
	HeapAllocBytes uint64                            `json:"heap_alloc_bytes"`
	ActiveSessions int                               `json:"active_sessions"`
	Sessions       []session.Info                    `json:"sessions"`
	Lanes          []LaneStatus                      `json:"lanes"`
	Channels       map[string]map[string]interface{} `json:"channels"`
}

// LaneStatus summarises one dispatch lane.
type LaneStatus struct {
	Name              string `json:"name"`
	Processed         int64  `json:"processed"`
	Errors            int64  `json:"errors"`
	Dropped           int64  `json:"dropped"`
	ProcessingTimeAvg int64  `json:"processing_time_avg_us"`
	ProcessingTimeMax int64  `json:"processing_time_max_us"`
}

// SessionLister lists live sessions.
type SessionLister interface {
	List() []session.Info
}

// PoolMetricsSource reports dispatch lane metrics.
type PoolMetricsSource interface {
	GetPoolMetrics() map[string]processing.PoolMetrics
}

// ChannelStatsSource reports per-channel statistics.
type ChannelStatsSource interface {
	GetChannelStats() map[string]map[string]interface{}
}

// ProfileSource provides the control profile in effect.
type ProfileSource interface {
	GetCurrentProfile() *config.Profile
}

// DiagnosticService assembles a diagnostics snapshot on demand
type DiagnosticService struct {
	sessions  SessionLister
	pools     PoolMetricsSource
	channels  ChannelStatsSource
	profiles  ProfileSource
	startedAt time.Time
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(sessions SessionLister, pools PoolMetricsSource, channels ChannelStatsSource, profiles ProfileSource) *DiagnosticService {
	return &DiagnosticService{
		sessions:  sessions,
		pools:     pools,
		channels:  channels,
		profiles:  profiles,
		startedAt: time.Now(),
	}
}

// GetMetricsHandler handles API requests for system metrics
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetMetrics(),
	})
}

// GetMetrics returns the current system metrics
func (s *DiagnosticService) GetMetrics() SystemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := time.Now()
	metrics := SystemMetrics{
		Timestamp:      now,
		Uptime:         now.Sub(s.startedAt).Truncate(time.Second).String(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		Sessions:       []session.Info{},
		Lanes:          []LaneStatus{},
		Channels:       map[string]map[string]interface{}{},
	}

	if s.profiles != nil {
		if profile := s.profiles.GetCurrentProfile(); profile != nil {
			metrics.RobotID = profile.RobotID
			metrics.ConfigID = profile.ConfigID
		}
	}
	if s.sessions != nil {
		metrics.Sessions = s.sessions.List()
		metrics.ActiveSessions = len(metrics.Sessions)
	}
	if s.pools != nil {
		for name, pm := range s.pools.GetPoolMetrics() {
			metrics.Lanes = append(metrics.Lanes, LaneStatus{
				Name:              name,
				Processed:         pm.ProcessedCount,
				Errors:            pm.ErrorCount,
				Dropped:           pm.DroppedCount,
				ProcessingTimeAvg: pm.ProcessingTimeAvg,
				ProcessingTimeMax: pm.ProcessingTimeMax,
			})
		}
		sort.Slice(metrics.Lanes, func(i, j int) bool { return metrics.Lanes[i].Name < metrics.Lanes[j].Name })
	}
	if s.channels != nil {
		metrics.Channels = s.channels.GetChannelStats()
	}
	return metrics
}
