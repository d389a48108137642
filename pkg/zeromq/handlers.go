package zeromq

import (
	"encoding/json"
	"fmt"

	"github.com/forklift-teleop/controller/pkg/config"
	customlog "github.com/forklift-teleop/controller/pkg/log"
)

// ProfileSource provides the profile currently in effect.
type ProfileSource interface {
	GetCurrentProfile() *config.Profile
}

// ProfileHandler handles PROFILE_REQUEST messages
type ProfileHandler struct {
	source ProfileSource
	logger customlog.Logger
}

// NewProfileHandler creates a new handler for profile requests
func NewProfileHandler(source ProfileSource, logger customlog.Logger) *ProfileHandler {
	return &ProfileHandler{
		source: source,
		logger: logger,
	}
}

// HandleMessage processes a PROFILE_REQUEST message and returns a PROFILE_RESPONSE
func (h *ProfileHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	if msg.Type != MsgTypeProfileRequest {
		return nil, fmt.Errorf("unexpected message type: %s", msg.Type)
	}

	h.logger.Debugf("Processing control profile request")

	responseData, err := json.Marshal(newEnvelope(MsgTypeProfileResponse, h.source.GetCurrentProfile()))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}

	h.logger.Debugf("Sending control profile response (%d bytes)", len(responseData))
	return responseData, nil
}
