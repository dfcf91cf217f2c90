package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"conduit/internal/cache"
	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"
	"conduit/internal/validation"
)

const (
	maxTitleLength = 255
	maxTagLength   = 128
	maxTagsPerPost = 32
)

type ArticleService struct {
	articleRepo repository.ArticleRepository
}

type ListArticlesInput struct {
	Tag       string
	Author    string
	Favorited string
	Limit     int
	Offset    int
	ViewerID  uint
}

type CreateArticleInput struct {
	AuthorID    uint
	Title       string
	Description string
	Body        string
	TagList     []string
}

// UpdateArticleInput carries a partial update; nil fields are left untouched.
type UpdateArticleInput struct {
	UserID      uint
	Slug        string
	Title       *string
	Description *string
	Body        *string
	TagList     *[]string
}

func NewArticleService(articleRepo repository.ArticleRepository) *ArticleService {
	return &ArticleService{articleRepo: articleRepo}
}

func (s *ArticleService) List(ctx context.Context, in ListArticlesInput) (_ []*models.Article, _ int64, err error) {
	ctx, span := startSpan(ctx, "ArticleService", "List")
	defer func() { observability.EndSpan(span, err) }()

	limit, offset := ClampPage(in.Limit, in.Offset)
	return s.articleRepo.List(ctx, repository.ArticleFilter{
		Tag:       strings.TrimSpace(in.Tag),
		Author:    strings.TrimSpace(in.Author),
		Favorited: strings.TrimSpace(in.Favorited),
		Limit:     limit,
		Offset:    offset,
	}, in.ViewerID)
}

func (s *ArticleService) Feed(ctx context.Context, userID uint, limit, offset int) (_ []*models.Article, _ int64, err error) {
	ctx, span := startSpan(ctx, "ArticleService", "Feed")
	defer func() { observability.EndSpan(span, err) }()

	limit, offset = ClampPage(limit, offset)
	return s.articleRepo.Feed(ctx, userID, limit, offset)
}

func (s *ArticleService) Get(ctx context.Context, slug string, viewerID uint) (*models.Article, error) {
	return s.articleRepo.GetBySlug(ctx, slug, viewerID)
}

// Create, like every write here, runs its reads against the primary so the
// article it returns is the one just written.
func (s *ArticleService) Create(ctx context.Context, in CreateArticleInput) (_ *models.Article, err error) {
	ctx, span := startSpan(ctx, "ArticleService", "Create")
	defer func() { observability.EndSpan(span, err) }()
	ctx = repository.WithPrimary(ctx)

	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validationErr(validation.ValidateRequired("description", in.Description)); err != nil {
		return nil, err
	}
	if err := validationErr(validation.ValidateRequired("body", in.Body)); err != nil {
		return nil, err
	}
	tags, err := normalizeTags(in.TagList)
	if err != nil {
		return nil, err
	}

	slug := validation.Slugify(title)
	if err := validationErr(validation.ValidateSlug(slug)); err != nil {
		return nil, err
	}
	taken, err := s.articleRepo.SlugExists(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewBadRequestError("Article with this title already exists")
	}

	article := &models.Article{
		AuthorID:    in.AuthorID,
		Slug:        slug,
		Title:       title,
		Description: in.Description,
		Body:        in.Body,
	}
	if err := s.articleRepo.Create(ctx, article, tags); err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		cache.InvalidateTags(ctx)
	}

	return s.articleRepo.GetBySlug(ctx, slug, in.AuthorID)
}

func (s *ArticleService) Update(ctx context.Context, in UpdateArticleInput) (_ *models.Article, err error) {
	ctx, span := startSpan(ctx, "ArticleService", "Update")
	defer func() { observability.EndSpan(span, err) }()
	ctx = repository.WithPrimary(ctx)

	article, err := s.articleRepo.GetBySlug(ctx, in.Slug, in.UserID)
	if err != nil {
		return nil, err
	}
	if article.AuthorID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own articles")
	}

	fields := make(map[string]any)
	slug := article.Slug

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		if title != article.Title {
			newSlug := validation.Slugify(title)
			if err := validationErr(validation.ValidateSlug(newSlug)); err != nil {
				return nil, err
			}
			if newSlug != article.Slug {
				taken, err := s.articleRepo.SlugExists(ctx, newSlug, article.ID)
				if err != nil {
					return nil, err
				}
				if taken {
					return nil, models.NewBadRequestError("Article with this title already exists")
				}
				fields["slug"] = newSlug
				slug = newSlug
			}
			fields["title"] = title
		}
	}
	if in.Description != nil {
		if err := validationErr(validation.ValidateRequired("description", *in.Description)); err != nil {
			return nil, err
		}
		fields["description"] = *in.Description
	}
	if in.Body != nil {
		if err := validationErr(validation.ValidateRequired("body", *in.Body)); err != nil {
			return nil, err
		}
		fields["body"] = *in.Body
	}

	var tags *[]string
	if in.TagList != nil {
		normalized, err := normalizeTags(*in.TagList)
		if err != nil {
			return nil, err
		}
		tags = &normalized
	}

	if len(fields) == 0 && tags == nil {
		return article, nil
	}
	if err := s.articleRepo.Update(ctx, article.ID, fields, tags); err != nil {
		return nil, err
	}
	if tags != nil {
		cache.InvalidateTags(ctx)
	}

	return s.articleRepo.GetBySlug(ctx, slug, in.UserID)
}

func (s *ArticleService) Delete(ctx context.Context, userID uint, slug string) (err error) {
	ctx, span := startSpan(ctx, "ArticleService", "Delete")
	defer func() { observability.EndSpan(span, err) }()
	ctx = repository.WithPrimary(ctx)

	article, err := s.articleRepo.GetBySlug(ctx, slug, userID)
	if err != nil {
		return err
	}
	if article.AuthorID != userID {
		return models.NewForbiddenError("You can only delete your own articles")
	}
	return s.articleRepo.Delete(ctx, article.ID)
}

func (s *ArticleService) Favorite(ctx context.Context, userID uint, slug string) (*models.Article, error) {
	ctx = repository.WithPrimary(ctx)
	article, err := s.articleRepo.GetBySlug(ctx, slug, userID)
	if err != nil {
		return nil, err
	}
	if err := s.articleRepo.AddFavorite(ctx, userID, article.ID); err != nil {
		return nil, err
	}
	return s.articleRepo.GetBySlug(ctx, slug, userID)
}

func (s *ArticleService) Unfavorite(ctx context.Context, userID uint, slug string) (*models.Article, error) {
	ctx = repository.WithPrimary(ctx)
	article, err := s.articleRepo.GetBySlug(ctx, slug, userID)
	if err != nil {
		return nil, err
	}
	if err := s.articleRepo.RemoveFavorite(ctx, userID, article.ID); err != nil {
		return nil, err
	}
	return s.articleRepo.GetBySlug(ctx, slug, userID)
}

func validateTitle(title string) error {
	if err := validation.ValidateRequired("title", title); err != nil {
		return models.NewValidationError(err.Error())
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return models.NewValidationError("title must not exceed 255 characters")
	}
	return nil
}

// normalizeTags trims names and drops blanks and duplicates, keeping first
// occurrence order.
func normalizeTags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		if utf8.RuneCountInString(name) > maxTagLength {
			return nil, models.NewValidationError("tag must not exceed 128 characters")
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) > maxTagsPerPost {
		return nil, models.NewValidationError("an article can have at most 32 tags")
	}
	return out, nil
}
