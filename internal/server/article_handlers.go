package server

import (
	"conduit/internal/models"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListArticles handles GET /api/articles
// @Summary List articles
// @Description Newest first. Filters are case-insensitive substring matches.
// @Tags articles
// @Produce json
// @Param tag query string false "Tag name"
// @Param author query string false "Author username"
// @Param favorited query string false "Username of a user who favorited"
// @Param limit query int false "Page size (max 20)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.MultipleArticlesResponse
// @Router /articles [get]
func (s *Server) ListArticles(c *fiber.Ctx) error {
	page := parsePagination(c)
	articles, total, err := s.articleService.List(c.UserContext(), service.ListArticlesInput{
		Tag:       c.Query("tag"),
		Author:    c.Query("author"),
		Favorited: c.Query("favorited"),
		Limit:     page.Limit,
		Offset:    page.Offset,
		ViewerID:  s.optionalUserID(c),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.NewMultipleArticlesResponse(articles, total))
}

// GetFeed handles GET /api/articles/feed
// @Summary Feed
// @Description Articles by authors the caller follows, newest first
// @Tags articles
// @Produce json
// @Security TokenAuth
// @Param limit query int false "Page size (max 20)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.MultipleArticlesResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /articles/feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c)
	articles, total, err := s.articleService.Feed(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.NewMultipleArticlesResponse(articles, total))
}

// GetArticle handles GET /api/articles/:slug
// @Summary Get an article
// @Tags articles
// @Produce json
// @Param slug path string true "Slug"
// @Success 200 {object} models.ArticleEnvelope
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug} [get]
func (s *Server) GetArticle(c *fiber.Ctx) error {
	article, err := s.articleService.Get(c.UserContext(), c.Params("slug"), s.optionalUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.ArticleEnvelope{Article: models.NewArticleResponse(article)})
}

// CreateArticle handles POST /api/articles
// @Summary Create an article
// @Tags articles
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param request body models.CreateArticleRequest true "Article"
// @Success 201 {object} models.ArticleEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /articles [post]
func (s *Server) CreateArticle(c *fiber.Ctx) error {
	var req models.CreateArticleRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	article, err := s.articleService.Create(c.UserContext(), service.CreateArticleInput{
		AuthorID:    currentUserID(c),
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
		TagList:     req.Article.TagList,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	s.notifyFollowers(article)
	return c.Status(fiber.StatusCreated).JSON(models.ArticleEnvelope{Article: models.NewArticleResponse(article)})
}

// UpdateArticle handles PUT /api/articles/:slug
// @Summary Update an article
// @Description Partial update. A new title regenerates the slug.
// @Tags articles
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param slug path string true "Slug"
// @Param request body models.UpdateArticleRequest true "Fields to change"
// @Success 200 {object} models.ArticleEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug} [put]
func (s *Server) UpdateArticle(c *fiber.Ctx) error {
	var req models.UpdateArticleRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	article, err := s.articleService.Update(c.UserContext(), service.UpdateArticleInput{
		UserID:      currentUserID(c),
		Slug:        c.Params("slug"),
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
		TagList:     req.Article.TagList,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.ArticleEnvelope{Article: models.NewArticleResponse(article)})
}

// DeleteArticle handles DELETE /api/articles/:slug
// @Summary Delete an article
// @Tags articles
// @Security TokenAuth
// @Param slug path string true "Slug"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug} [delete]
func (s *Server) DeleteArticle(c *fiber.Ctx) error {
	if err := s.articleService.Delete(c.UserContext(), currentUserID(c), c.Params("slug")); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FavoriteArticle handles POST /api/articles/:slug/favorite
// @Summary Favorite an article
// @Tags favorites
// @Produce json
// @Security TokenAuth
// @Param slug path string true "Slug"
// @Success 200 {object} models.ArticleEnvelope
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug}/favorite [post]
func (s *Server) FavoriteArticle(c *fiber.Ctx) error {
	userID := currentUserID(c)
	article, err := s.articleService.Favorite(c.UserContext(), userID, c.Params("slug"))
	if err != nil {
		return s.respondError(c, err)
	}

	s.notifyFavorited(userID, article)
	return c.JSON(models.ArticleEnvelope{Article: models.NewArticleResponse(article)})
}

// UnfavoriteArticle handles DELETE /api/articles/:slug/favorite
// @Summary Unfavorite an article
// @Tags favorites
// @Produce json
// @Security TokenAuth
// @Param slug path string true "Slug"
// @Success 200 {object} models.ArticleEnvelope
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug}/favorite [delete]
func (s *Server) UnfavoriteArticle(c *fiber.Ctx) error {
	article, err := s.articleService.Unfavorite(c.UserContext(), currentUserID(c), c.Params("slug"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.ArticleEnvelope{Article: models.NewArticleResponse(article)})
}
