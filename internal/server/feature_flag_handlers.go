package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags handles GET /api/feature-flags
// @Summary Feature flags for the caller
// @Description Every configured flag evaluated for the authenticated user
// @Tags flags
// @Produce json
// @Security TokenAuth
// @Success 200 {object} object{flags=map[string]bool}
// @Failure 403 {object} models.ErrorResponse
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
