package server

import (
	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns the configured flag values and how they evaluate
// for the calling admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return models.Respond(c, fiber.StatusOK, "", fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(viewerID(c)),
	})
}
