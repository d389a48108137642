package processing

import (
	"sort"
	"sync"

	"github.com/forklift-teleop/controller/pkg/config"
	customlog "github.com/forklift-teleop/controller/pkg/log"
)

// ChannelInfo holds the device path and delivery statistics for a channel
type ChannelInfo struct {
	Channel      string
	Path         string
	SentCount    int64
	FailedCount  int64
	DroppedCount int64
	LastValue    float64
	LastSent     int64
	LastError    string
}

// ChannelRegistry maps control channels to device paths and keeps
// per-channel statistics
type ChannelRegistry struct {
	logger   customlog.Logger
	channels map[string]*ChannelInfo
	mu       sync.RWMutex
}

// NewChannelRegistry creates a new channel registry
func NewChannelRegistry(logger customlog.Logger) *ChannelRegistry {
	return &ChannelRegistry{
		logger:   logger,
		channels: make(map[string]*ChannelInfo),
	}
}

// LoadFromProfile loads the channel mappings from a profile. Statistics of
// channels that survive the reload are kept.
func (r *ChannelRegistry) LoadFromProfile(profile *config.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channels := make(map[string]*ChannelInfo, len(profile.ChannelMappings))
	for _, mapping := range profile.ChannelMappings {
		info, exists := r.channels[mapping.Channel]
		if !exists {
			info = &ChannelInfo{Channel: mapping.Channel}
		}
		info.Path = mapping.Path
		channels[mapping.Channel] = info
	}
	r.channels = channels

	r.logger.Infof("Loaded %d channels into registry", len(r.channels))
}

// GetPath gets the device path for a channel
func (r *ChannelRegistry) GetPath(channel string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.channels[channel]
	if !exists {
		return "", false
	}
	return info.Path, true
}

// GetChannelInfo gets a copy of the information for a channel
func (r *ChannelRegistry) GetChannelInfo(channel string) (*ChannelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.channels[channel]
	if !exists {
		return nil, false
	}
	infoCopy := *info
	return &infoCopy, true
}

// RecordSent records a delivered command
func (r *ChannelRegistry) RecordSent(channel string, value float64, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, exists := r.channels[channel]; exists {
		info.SentCount++
		info.LastValue = value
		info.LastSent = timestamp
	}
}

// RecordFailed records a command the device did not accept
func (r *ChannelRegistry) RecordFailed(channel string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, exists := r.channels[channel]; exists {
		info.FailedCount++
		if err != nil {
			info.LastError = err.Error()
		}
	}
}

// RecordDropped records a command discarded before delivery
func (r *ChannelRegistry) RecordDropped(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, exists := r.channels[channel]; exists {
		info.DroppedCount++
	}
}

// GetAllChannels returns the registered channel names in sorted order
func (r *ChannelRegistry) GetAllChannels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]string, 0, len(r.channels))
	for channel := range r.channels {
		channels = append(channels, channel)
	}
	sort.Strings(channels)
	return channels
}

// GetChannelStats returns a map of channel statistics
func (r *ChannelRegistry) GetChannelStats() map[string]map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]map[string]interface{}, len(r.channels))
	for channel, info := range r.channels {
		stats[channel] = map[string]interface{}{
			"path":       info.Path,
			"sent":       info.SentCount,
			"failed":     info.FailedCount,
			"dropped":    info.DroppedCount,
			"last_value": info.LastValue,
			"last_sent":  info.LastSent,
			"last_error": info.LastError,
		}
	}
	return stats
}
