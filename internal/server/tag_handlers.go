package server

import (
	"conduit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetTags handles GET /api/tags
// @Summary List tags
// @Description Every tag in use, sorted by name
// @Tags tags
// @Produce json
// @Success 200 {object} models.TagsResponse
// @Router /tags [get]
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tagService.List(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.TagsResponse{Tags: tags})
}
