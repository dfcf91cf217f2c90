package service

import (
	"context"
	"testing"

	"conduit/internal/models"
	"conduit/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampPage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 20, 0},
		{5, 10, 5, 10},
		{100, 0, 20, 0},
		{-1, -5, 20, 0},
	}
	for _, tt := range tests {
		l, o := ClampPage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, l)
		assert.Equal(t, tt.wantOffset, o)
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got, err := normalizeTags([]string{" dragons ", "", "training", "dragons", "  "})
	require.NoError(t, err)
	assert.Equal(t, []string{"dragons", "training"}, got)

	got, err = normalizeTags(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	long := make([]byte, maxTagLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = normalizeTags([]string{string(long)})
	assertValidationError(t, err)
}

func TestArticleService_ListClampsPage(t *testing.T) {
	repo := &articleRepoStub{
		listFn: func(_ context.Context, f repository.ArticleFilter, viewerID uint) ([]*models.Article, int64, error) {
			assert.Equal(t, 20, f.Limit)
			assert.Equal(t, 0, f.Offset)
			assert.Equal(t, "jake", f.Author)
			assert.Equal(t, uint(3), viewerID)
			return []*models.Article{}, 0, nil
		},
	}
	svc := NewArticleService(repo)

	_, _, err := svc.List(context.Background(), ListArticlesInput{Author: " jake ", Limit: 500, Offset: -1, ViewerID: 3})
	assert.NoError(t, err)
}

func TestArticleService_Create(t *testing.T) {
	var stored *models.Article
	var storedTags []string
	repo := &articleRepoStub{
		slugExistsFn: func(_ context.Context, slug string, _ uint) (bool, error) {
			return slug == "taken", nil
		},
		createFn: func(_ context.Context, a *models.Article, tags []string) error {
			a.ID = 10
			stored = a
			storedTags = tags
			return nil
		},
		getBySlugFn: func(_ context.Context, slug string, _ uint) (*models.Article, error) {
			assert.Equal(t, stored.Slug, slug)
			return stored, nil
		},
	}
	svc := NewArticleService(repo)
	ctx := context.Background()

	article, err := svc.Create(ctx, CreateArticleInput{
		AuthorID:    1,
		Title:       "  Ça va? How to train your dragon  ",
		Description: "Ever wonder how?",
		Body:        "You have to believe",
		TagList:     []string{"dragons", "training", "dragons", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "ca-va-how-to-train-your-dragon", article.Slug)
	assert.Equal(t, "Ça va? How to train your dragon", article.Title)
	assert.Equal(t, []string{"dragons", "training"}, storedTags)

	_, err = svc.Create(ctx, CreateArticleInput{AuthorID: 1, Title: "Taken", Description: "d", Body: "b"})
	assertAppError(t, err, models.CodeBadRequest)
}

func TestArticleService_CreateValidation(t *testing.T) {
	repo := &articleRepoStub{
		slugExistsFn: func(context.Context, string, uint) (bool, error) { return false, nil },
		createFn: func(context.Context, *models.Article, []string) error {
			t.Fatal("create must not be called for invalid input")
			return nil
		},
	}
	svc := NewArticleService(repo)

	tests := []struct {
		name string
		in   CreateArticleInput
	}{
		{"blank title", CreateArticleInput{Title: " ", Description: "d", Body: "b"}},
		{"blank description", CreateArticleInput{Title: "t", Body: "b"}},
		{"blank body", CreateArticleInput{Title: "t", Description: "d"}},
		{"title without letters", CreateArticleInput{Title: "?!", Description: "d", Body: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			assertValidationError(t, err)
		})
	}
}

func existingArticle() *models.Article {
	return &models.Article{ID: 5, AuthorID: 1, Slug: "old-title", Title: "Old title", Description: "d", Body: "b"}
}

func TestArticleService_UpdateRegeneratesSlug(t *testing.T) {
	var gotFields map[string]any
	var gotTags *[]string
	repo := &articleRepoStub{
		getBySlugFn: func(_ context.Context, slug string, _ uint) (*models.Article, error) {
			a := existingArticle()
			a.Slug = slug
			return a, nil
		},
		slugExistsFn: func(_ context.Context, slug string, excludeID uint) (bool, error) {
			assert.Equal(t, uint(5), excludeID)
			return slug == "collides", nil
		},
		updateFn: func(_ context.Context, id uint, fields map[string]any, tags *[]string) error {
			assert.Equal(t, uint(5), id)
			gotFields = fields
			gotTags = tags
			return nil
		},
	}
	svc := NewArticleService(repo)
	ctx := context.Background()

	article, err := svc.Update(ctx, UpdateArticleInput{UserID: 1, Slug: "old-title", Title: strPtr("New Title")})
	require.NoError(t, err)
	assert.Equal(t, "new-title", article.Slug)
	assert.Equal(t, map[string]any{"title": "New Title", "slug": "new-title"}, gotFields)
	assert.Nil(t, gotTags)

	tags := []string{" a ", "a", "b"}
	_, err = svc.Update(ctx, UpdateArticleInput{UserID: 1, Slug: "old-title", TagList: &tags})
	require.NoError(t, err)
	require.NotNil(t, gotTags)
	assert.Equal(t, []string{"a", "b"}, *gotTags)

	_, err = svc.Update(ctx, UpdateArticleInput{UserID: 1, Slug: "old-title", Title: strPtr("Collides")})
	assertAppError(t, err, models.CodeBadRequest)

	_, err = svc.Update(ctx, UpdateArticleInput{UserID: 1, Slug: "old-title", Body: strPtr("")})
	assertValidationError(t, err)
}

func TestArticleService_UpdateSameTitleKeepsSlug(t *testing.T) {
	repo := &articleRepoStub{
		getBySlugFn: func(context.Context, string, uint) (*models.Article, error) { return existingArticle(), nil },
		updateFn: func(context.Context, uint, map[string]any, *[]string) error {
			t.Fatal("nothing changed, update must not be called")
			return nil
		},
	}
	svc := NewArticleService(repo)

	article, err := svc.Update(context.Background(), UpdateArticleInput{UserID: 1, Slug: "old-title", Title: strPtr("Old title")})
	require.NoError(t, err)
	assert.Equal(t, "old-title", article.Slug)
}

func TestArticleService_OwnershipChecks(t *testing.T) {
	repo := &articleRepoStub{
		getBySlugFn: func(_ context.Context, slug string, _ uint) (*models.Article, error) {
			if slug == "missing" {
				return nil, models.NewNotFoundError("Article", slug)
			}
			return existingArticle(), nil
		},
		deleteFn: func(context.Context, uint) error { return nil },
	}
	svc := NewArticleService(repo)
	ctx := context.Background()

	_, err := svc.Update(ctx, UpdateArticleInput{UserID: 2, Slug: "old-title", Body: strPtr("hijack")})
	assertAppError(t, err, models.CodeForbidden)

	assertAppError(t, svc.Delete(ctx, 2, "old-title"), models.CodeForbidden)
	assertAppError(t, svc.Delete(ctx, 1, "missing"), models.CodeNotFound)
	assert.NoError(t, svc.Delete(ctx, 1, "old-title"))
}

func TestArticleService_Favorite(t *testing.T) {
	favorited := false
	repo := &articleRepoStub{
		getBySlugFn: func(context.Context, string, uint) (*models.Article, error) {
			a := existingArticle()
			a.Favorited = favorited
			if favorited {
				a.FavoritesCount = 1
			}
			return a, nil
		},
		addFavoriteFn: func(_ context.Context, userID, articleID uint) error {
			assert.Equal(t, uint(2), userID)
			assert.Equal(t, uint(5), articleID)
			favorited = true
			return nil
		},
		removeFavoriteFn: func(context.Context, uint, uint) error {
			favorited = false
			return nil
		},
	}
	svc := NewArticleService(repo)
	ctx := context.Background()

	a, err := svc.Favorite(ctx, 2, "old-title")
	require.NoError(t, err)
	assert.True(t, a.Favorited)
	assert.Equal(t, int64(1), a.FavoritesCount)

	a, err = svc.Unfavorite(ctx, 2, "old-title")
	require.NoError(t, err)
	assert.False(t, a.Favorited)
	assert.Zero(t, a.FavoritesCount)
}
