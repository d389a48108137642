package services

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/forklift-teleop/controller/pkg/config"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	profiles []string
}

func (p *recordingPublisher) PublishProfileUpdatedNotification(profile *config.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles = append(p.profiles, profile.ConfigID)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.profiles)
}

const tunedProfile = `
version: "1.1"
config_id: "tuned"
robot_id: "forklift-7"
throttle:
  step: 5
`

func TestProfileServiceFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control_profile.yaml")

	svc, err := NewProfileService(path, customlog.Discard())
	require.NoError(t, err)

	profile := svc.GetCurrentProfile()
	require.NotNil(t, profile)
	assert.Equal(t, "forklift-default", profile.ConfigID)

	data, err := svc.GetCurrentProfileYAML()
	require.NoError(t, err)
	parsed, err := config.ParseProfile(data)
	require.NoError(t, err)
	assert.Equal(t, profile.ThrottleConfig(), parsed.ThrottleConfig())
}

func TestProfileServiceLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control_profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tunedProfile), 0644))

	svc, err := NewProfileService(path, customlog.Discard())
	require.NoError(t, err)

	assert.Equal(t, "tuned", svc.GetCurrentProfile().ConfigID)
	assert.Equal(t, 5.0, svc.GetCurrentProfile().Throttle.Step)

	data, err := svc.GetCurrentProfileYAML()
	require.NoError(t, err)
	assert.Equal(t, tunedProfile, string(data))
}

func TestProfileServiceUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control_profile.yaml")
	svc, err := NewProfileService(path, customlog.Discard())
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	svc.SetPublisher(publisher)
	var notified []string
	svc.Subscribe(func(p *config.Profile) { notified = append(notified, p.ConfigID) })

	require.NoError(t, svc.UpdateProfile([]byte(tunedProfile)))

	assert.Equal(t, "tuned", svc.GetCurrentProfile().ConfigID)
	assert.Equal(t, []string{"tuned"}, notified)
	require.Eventually(t, func() bool { return publisher.count() == 1 }, time.Second, 5*time.Millisecond)

	persisted, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tunedProfile, string(persisted))

	// Identical content is a no-op.
	require.NoError(t, svc.UpdateProfile([]byte(tunedProfile)))
	assert.Len(t, notified, 1)
}

func TestProfileServiceRejectsInvalidUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control_profile.yaml")
	svc, err := NewProfileService(path, customlog.Discard())
	require.NoError(t, err)

	err = svc.UpdateProfile([]byte("steering:\n  min: 5\n"))
	assert.ErrorIs(t, err, config.ErrInvalidProfile)
	assert.Equal(t, "forklift-default", svc.GetCurrentProfile().ConfigID)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "rejected profiles are not persisted")
}

func TestNewProfileServiceRequiresPath(t *testing.T) {
	_, err := NewProfileService("", nil)
	assert.Error(t, err)
}
