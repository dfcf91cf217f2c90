package server

import (
	"conduit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/profiles/:username
// @Summary Get a profile
// @Tags profiles
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.ProfileEnvelope
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.Get(c.UserContext(), c.Params("username"), s.optionalUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.ProfileEnvelope{Profile: profile})
}

// FollowUser handles POST /api/profiles/:username/follow
// @Summary Follow a user
// @Tags profiles
// @Produce json
// @Security TokenAuth
// @Param username path string true "Username"
// @Success 200 {object} models.ProfileEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	followerID := currentUserID(c)
	target, err := s.profileService.Follow(c.UserContext(), followerID, c.Params("username"))
	if err != nil {
		return s.respondError(c, err)
	}

	s.notifyFollowed(followerID, target.ID)
	return c.JSON(models.ProfileEnvelope{Profile: models.NewProfile(target, true)})
}

// UnfollowUser handles DELETE /api/profiles/:username/follow
// @Summary Unfollow a user
// @Tags profiles
// @Produce json
// @Security TokenAuth
// @Param username path string true "Username"
// @Success 200 {object} models.ProfileEnvelope
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	target, err := s.profileService.Unfollow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.ProfileEnvelope{Profile: models.NewProfile(target, false)})
}
