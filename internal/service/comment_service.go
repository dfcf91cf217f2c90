package service

import (
	"context"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"
	"conduit/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	articleRepo repository.ArticleRepository
}

type CreateCommentInput struct {
	UserID uint
	Slug   string
	Body   string
}

type DeleteCommentInput struct {
	UserID    uint
	Slug      string
	CommentID uint
}

func NewCommentService(commentRepo repository.CommentRepository, articleRepo repository.ArticleRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, articleRepo: articleRepo}
}

// List returns the comments on slug, newest first.
func (s *CommentService) List(ctx context.Context, slug string, viewerID uint) ([]*models.Comment, error) {
	article, err := s.articleRepo.GetBySlug(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	return s.commentRepo.ListByArticle(ctx, article.ID, viewerID)
}

// Create adds a comment. The returned comment carries its article so callers
// can address the article's author.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (_ *models.Comment, err error) {
	ctx, span := startSpan(ctx, "CommentService", "Create")
	defer func() { observability.EndSpan(span, err) }()
	ctx = repository.WithPrimary(ctx)

	if err := validationErr(validation.ValidateCommentBody(in.Body)); err != nil {
		return nil, err
	}
	article, err := s.articleRepo.GetBySlug(ctx, in.Slug, 0)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Body:      in.Body,
		ArticleID: article.ID,
		AuthorID:  in.UserID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.Article = *article
	return comment, nil
}

// Delete removes a comment. The comment's author and the article's author
// may both delete it.
func (s *CommentService) Delete(ctx context.Context, in DeleteCommentInput) (err error) {
	ctx, span := startSpan(ctx, "CommentService", "Delete")
	defer func() { observability.EndSpan(span, err) }()
	ctx = repository.WithPrimary(ctx)

	if in.CommentID == 0 {
		return models.NewValidationError("comment id must be a positive integer")
	}
	article, err := s.articleRepo.GetBySlug(ctx, in.Slug, 0)
	if err != nil {
		return err
	}
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return err
	}
	if comment.ArticleID != article.ID {
		return models.NewBadRequestError("Comment does not belong to this article")
	}
	if comment.AuthorID != in.UserID && article.AuthorID != in.UserID {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, comment.ID)
}
