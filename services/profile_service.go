package services

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/forklift-teleop/controller/pkg/config"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

// ProfilePublisher defines the interface for announcing profile updates.
// This avoids a direct dependency on the ZeroMQ service.
type ProfilePublisher interface {
	PublishProfileUpdatedNotification(profile *config.Profile) error
}

// ProfileListener is called with the new profile after every applied update.
type ProfileListener func(profile *config.Profile)

// ProfileService defines the interface for managing the control profile.
type ProfileService interface {
	LoadProfile() error
	GetCurrentProfile() *config.Profile
	GetCurrentProfileYAML() ([]byte, error)
	UpdateProfile(newProfileYAML []byte) error
	PersistProfile(yamlData []byte) error
	SetPublisher(p ProfilePublisher)
	Subscribe(listener ProfileListener)
}

// profileService implements the ProfileService interface.
type profileService struct {
	profilePath    string
	logger         customlog.Logger
	publisher      ProfilePublisher
	listeners      []ProfileListener
	currentProfile *config.Profile
	mu             sync.RWMutex
}

// NewProfileService creates a new ProfileService. A missing or invalid
// profile file leaves the built-in defaults in effect.
func NewProfileService(profilePath string, logger customlog.Logger) (ProfileService, error) {
	if profilePath == "" {
		return nil, fmt.Errorf("profile path cannot be empty")
	}
	if logger == nil {
		logger = customlog.Discard()
	}

	defaults := config.DefaultProfile()
	service := &profileService{
		profilePath:    profilePath,
		logger:         logger,
		currentProfile: &defaults,
	}

	if err := service.LoadProfile(); err != nil {
		logger.Warnf("Initial load of control profile '%s' failed: %v. Using built-in defaults.", profilePath, err)
		return service, nil
	}

	logger.Infof("ProfileService initialized successfully for path: %s", profilePath)
	return service, nil
}

// LoadProfile reads the profile file from disk. On failure the current
// profile is kept.
func (s *profileService) LoadProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading control profile from: %s", s.profilePath)
	profile, err := config.LoadProfile(s.profilePath)
	if err != nil {
		return fmt.Errorf("error loading control profile '%s': %w", s.profilePath, err)
	}

	s.currentProfile = profile
	s.logger.Infof("Successfully loaded control profile ID: %s, Version: %s", profile.ConfigID, profile.Version)
	return nil
}

// GetCurrentProfile returns the profile in effect. It is read-only;
// modifications go through UpdateProfile.
func (s *profileService) GetCurrentProfile() *config.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentProfile
}

// GetCurrentProfileYAML returns the raw profile file, or the marshalled
// profile in effect when no file exists yet.
func (s *profileService) GetCurrentProfileYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.profilePath
	current := s.currentProfile
	s.mu.RUnlock()

	s.logger.Debugf("Reading raw control profile YAML from: %s", path)
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading control profile '%s': %w", path, err)
	}

	data, err = yaml.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("error marshalling control profile: %w", err)
	}
	return data, nil
}

// UpdateProfile validates, persists and applies a new profile, then
// notifies listeners and the publisher. Running sessions keep the profile
// they started with.
func (s *profileService) UpdateProfile(newProfileYAML []byte) error {
	s.mu.Lock()

	s.logger.Infof("Attempting to update control profile from provided YAML")

	newProfile, err := config.ParseProfile(newProfileYAML)
	if err != nil {
		s.mu.Unlock()
		s.logger.Errorf("Rejected control profile: %v", err)
		return err
	}

	if s.currentProfile != nil && cmp.Equal(s.currentProfile, newProfile) {
		s.mu.Unlock()
		s.logger.Infof("Provided profile is identical to the current one. No update needed.")
		return nil
	}

	if err := s.persistProfileUnlocked(newProfileYAML); err != nil {
		s.mu.Unlock()
		return err
	}

	oldID := "N/A"
	if s.currentProfile != nil {
		oldID = s.currentProfile.ConfigID
	}
	s.currentProfile = newProfile
	listeners := append([]ProfileListener(nil), s.listeners...)
	publisher := s.publisher
	s.mu.Unlock()

	s.logger.Infof("Updated control profile. ID %s -> %s, Version: %s", oldID, newProfile.ConfigID, newProfile.Version)

	for _, listener := range listeners {
		listener(newProfile)
	}

	if publisher != nil {
		go func() {
			if err := publisher.PublishProfileUpdatedNotification(newProfile); err != nil {
				s.logger.Warnf("Failed to publish profile update notification: %v", err)
			} else {
				s.logger.Debugf("Published profile update notification")
			}
		}()
	}
	return nil
}

// PersistProfile writes the given YAML data to the profile path.
func (s *profileService) PersistProfile(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistProfileUnlocked(yamlData)
}

// persistProfileUnlocked assumes the caller holds the lock.
func (s *profileService) persistProfileUnlocked(yamlData []byte) error {
	s.logger.Infof("Persisting control profile to: %s", s.profilePath)
	if err := os.WriteFile(s.profilePath, yamlData, 0644); err != nil {
		return fmt.Errorf("error writing control profile '%s': %w", s.profilePath, err)
	}
	return nil
}

// SetPublisher allows injecting the ProfilePublisher after initialization.
func (s *profileService) SetPublisher(p ProfilePublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
	s.logger.Infof("ProfilePublisher injected into ProfileService.")
}

// Subscribe registers a listener for applied updates.
func (s *profileService) Subscribe(listener ProfileListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}
