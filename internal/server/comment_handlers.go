package server

import (
	"conduit/internal/models"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/articles/:slug/comments
// @Summary List comments
// @Description Newest first
// @Tags comments
// @Produce json
// @Param slug path string true "Article slug"
// @Success 200 {object} models.MultipleCommentsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	comments, err := s.commentService.List(c.UserContext(), c.Params("slug"), s.optionalUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.NewMultipleCommentsResponse(comments))
}

// CreateComment handles POST /api/articles/:slug/comments
// @Summary Add a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param slug path string true "Article slug"
// @Param request body models.CreateCommentRequest true "Comment"
// @Success 201 {object} models.CommentEnvelope
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /articles/{slug}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req models.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Create(c.UserContext(), service.CreateCommentInput{
		UserID: currentUserID(c),
		Slug:   c.Params("slug"),
		Body:   req.Comment.Body,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	s.notifyCommented(comment)
	return c.Status(fiber.StatusCreated).JSON(models.CommentEnvelope{Comment: models.NewCommentResponse(comment)})
}

// DeleteComment handles DELETE /api/articles/:slug/comments/:id
// @Summary Delete a comment
// @Description Allowed for the comment author and the article author
// @Tags comments
// @Security TokenAuth
// @Param slug path string true "Article slug"
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /articles/{slug}/comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	err = s.commentService.Delete(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		Slug:      c.Params("slug"),
		CommentID: commentID,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
