package api

import (
	"github.com/forklift-teleop/controller/pkg/endpoint"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// ChannelStatsSource reports per-channel dispatch statistics.
type ChannelStatsSource interface {
	GetChannelStats() map[string]map[string]interface{}
}

// RegisterDeviceRoutes registers the endpoint validation and channel
// statistics endpoints.
func RegisterDeviceRoutes(router fiber.Router, channels ChannelStatsSource, validations ValidationRecorder, logger customlog.Logger) {
	apiGroup := router.Group("/api/v1")

	apiGroup.Get("/endpoint/validate", func(c *fiber.Ctx) error {
		address := c.Query("address")
		ep, err := endpoint.Parse(address)
		if validations != nil {
			validations.RecordValidation(err == nil)
		}
		if err != nil {
			logger.Debugf("Address %q is not a valid endpoint: %v", address, err)
			return c.JSON(fiber.Map{
				"valid": false,
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"valid":    true,
			"endpoint": ep.String(),
		})
	})

	apiGroup.Get("/channels", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"channels": channels.GetChannelStats(),
		})
	})

	logger.Infof("Registered device API endpoints under /api/v1")
}
