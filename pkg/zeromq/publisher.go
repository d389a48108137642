package zeromq

import (
	"fmt"

	"github.com/forklift-teleop/controller/pkg/config"
	"github.com/forklift-teleop/controller/pkg/events"
	customlog "github.com/forklift-teleop/controller/pkg/log"
)

// Bus topics besides the per-channel control topics.
const (
	TopicProfileNotification = "profile.notification"
	TopicProfileUpdate       = "profile.update"
)

// EventPublisher mirrors control emissions and profile changes on the PUB
// socket.
type EventPublisher struct {
	service *ZeroMQService
	logger  customlog.Logger
}

// NewEventPublisher creates a publisher on top of a running service
func NewEventPublisher(service *ZeroMQService, logger customlog.Logger) *EventPublisher {
	return &EventPublisher{
		service: service,
		logger:  logger,
	}
}

// PublishControlEvent sends the event as a FlatBuffer on its channel topic.
func (p *EventPublisher) PublishControlEvent(event events.ControlEvent) error {
	data, err := events.Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode control event: %w", err)
	}
	return p.service.PublishMessage(event.Topic(), data)
}

// PublishProfileUpdate publishes the full profile to subscribers
func (p *EventPublisher) PublishProfileUpdate(profile *config.Profile) error {
	p.logger.Infof("Publishing control profile (ID: %s)", profile.ConfigID)
	return p.service.PublishJSON(TopicProfileUpdate, MsgTypeProfileResponse, profile)
}

// PublishProfileUpdatedNotification announces that the profile changed
func (p *EventPublisher) PublishProfileUpdatedNotification(profile *config.Profile) error {
	p.logger.Infof("Publishing control profile update notification")

	notification := map[string]interface{}{
		"config_id":    profile.ConfigID,
		"version":      profile.Version,
		"last_updated": profile.LastUpdated,
	}

	return p.service.PublishJSON(TopicProfileNotification, MsgTypeProfileUpdated, notification)
}

// RegisterProfileHandlers registers the profile request handler and returns
// the publisher for the service.
func RegisterProfileHandlers(service *ZeroMQService, source ProfileSource, logger customlog.Logger) *EventPublisher {
	service.RegisterHandler(MsgTypeProfileRequest, NewProfileHandler(source, logger))

	publisher := NewEventPublisher(service, logger)

	logger.Infof("Registered profile handlers and event publisher")
	return publisher
}
