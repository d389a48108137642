package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/forklift-teleop/controller/pkg/config"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/forklift-teleop/controller/services"
	"github.com/gofiber/fiber/v2"
)

// ProfileHandler holds dependencies for control profile API endpoints.
type ProfileHandler struct {
	profileService services.ProfileService
	logger         customlog.Logger
}

// NewProfileHandler creates a new handler for profile endpoints.
func NewProfileHandler(profileService services.ProfileService, logger customlog.Logger) *ProfileHandler {
	if profileService == nil {
		panic("ProfileService cannot be nil in NewProfileHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewProfileHandler")
	}
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// RegisterProfileRoutes registers the profile API endpoints with the Fiber app.
func RegisterProfileRoutes(router fiber.Router, profileService services.ProfileService, logger customlog.Logger) {
	h := NewProfileHandler(profileService, logger)

	apiGroup := router.Group("/api/v1/config")
	apiGroup.Get("/profile", h.handleGetProfile)
	apiGroup.Put("/profile", h.handleUpdateProfile)

	logger.Infof("Registered control profile API endpoints under /api/v1/config")
}

// handleGetProfile returns the profile in effect as YAML.
func (h *ProfileHandler) handleGetProfile(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config/profile")
	yamlData, err := h.profileService.GetCurrentProfileYAML()
	if err != nil {
		h.logger.Errorf("Failed to get current control profile YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve control profile: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

// handleUpdateProfile replaces the profile. New sessions pick it up; open
// ones keep the profile they started with.
func (h *ProfileHandler) handleUpdateProfile(c *fiber.Ctx) error {
	h.logger.Debugf("Handling PUT request for /api/v1/config/profile")

	switch c.Get(fiber.HeaderContentType) {
	case "application/x-yaml", "application/yaml", "text/yaml":
	default:
		h.logger.Warnf("Received PUT request with unexpected Content-Type: %s", c.Get(fiber.HeaderContentType))
	}

	newProfileYAML := c.Body()
	if len(newProfileYAML) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body cannot be empty.",
		})
	}

	if err := h.profileService.UpdateProfile(newProfileYAML); err != nil {
		h.logger.Errorf("Failed to update control profile: %v", err)
		if errors.Is(err, config.ErrInvalidProfile) || errors.Is(err, config.ErrMalformedProfile) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Control profile update failed: %v", err),
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Internal server error during control profile update: %v", err),
		})
	}

	profile := h.profileService.GetCurrentProfile()
	h.logger.Infof("Control profile updated to %s via API", profile.ConfigID)
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":   "Control profile updated. New sessions will use it.",
		"config_id": profile.ConfigID,
	})
}
