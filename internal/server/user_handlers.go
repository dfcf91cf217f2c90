package server

import (
	"time"

	"conduit/internal/middleware"
	"conduit/internal/models"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/users
// @Summary Register
// @Description Create an account and return it with a token
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "New user"
// @Success 201 {object} models.UserEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return s.respondWithUser(c, fiber.StatusCreated, user)
}

// Login handles POST /api/users/login
// @Summary Login
// @Description Authenticate by email and password
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.UserEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Login(c.UserContext(), req.User.Email, req.User.Password)
	if err != nil {
		return s.respondError(c, err)
	}

	return s.respondWithUser(c, fiber.StatusOK, user)
}

// Logout handles POST /api/users/logout
// @Summary Logout
// @Description Revoke the presented token
// @Tags users
// @Security TokenAuth
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /users/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals(localTokenJTI).(string)
	exp, _ := c.Locals(localTokenExp).(time.Time)

	if s.redis == nil {
		middleware.Logger.WarnContext(c.UserContext(), "logout without redis, token stays valid until expiry")
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := s.revokeToken(c.UserContext(), jti, exp); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetCurrentUser handles GET /api/user
// @Summary Current user
// @Tags users
// @Produce json
// @Security TokenAuth
// @Success 200 {object} models.UserEnvelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.userService.GetByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondWithUser(c, fiber.StatusOK, user)
}

// UpdateCurrentUser handles PUT /api/user
// @Summary Update current user
// @Description Partial update; absent fields are left untouched
// @Tags users
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param request body models.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.UserEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /user [put]
func (s *Server) UpdateCurrentUser(c *fiber.Ctx) error {
	var req models.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Update(c.UserContext(), service.UpdateUserInput{
		UserID:   currentUserID(c),
		Email:    req.User.Email,
		Username: req.User.Username,
		Password: req.User.Password,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondWithUser(c, fiber.StatusOK, user)
}

// respondWithUser issues a fresh token for user and writes the user envelope.
func (s *Server) respondWithUser(c *fiber.Ctx, status int, user *models.User) error {
	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.Status(status).JSON(models.UserEnvelope{
		User: models.NewUserResponse(user, token),
	})
}
