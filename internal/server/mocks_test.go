package server

import (
	"context"
	"testing"
	"time"

	"conduit/internal/models"
	"conduit/internal/notifications"
	"conduit/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockArticleRepository is a mock implementation of repository.ArticleRepository
type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article, tagNames []string) error {
	args := m.Called(ctx, article, tagNames)
	return args.Error(0)
}

func (m *MockArticleRepository) GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Article, error) {
	args := m.Called(ctx, slug, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

func (m *MockArticleRepository) List(ctx context.Context, filter repository.ArticleFilter, viewerID uint) ([]*models.Article, int64, error) {
	args := m.Called(ctx, filter, viewerID)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Article), args.Get(1).(int64), args.Error(2)
}

func (m *MockArticleRepository) Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Article, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Article), args.Get(1).(int64), args.Error(2)
}

func (m *MockArticleRepository) Update(ctx context.Context, id uint, fields map[string]any, tagNames *[]string) error {
	args := m.Called(ctx, id, fields, tagNames)
	return args.Error(0)
}

func (m *MockArticleRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockArticleRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockArticleRepository) AddFavorite(ctx context.Context, userID, articleID uint) error {
	args := m.Called(ctx, userID, articleID)
	return args.Error(0)
}

func (m *MockArticleRepository) RemoveFavorite(ctx context.Context, userID, articleID uint) error {
	args := m.Called(ctx, userID, articleID)
	return args.Error(0)
}

// MockCommentRepository is a mock implementation of repository.CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByArticle(ctx context.Context, articleID, viewerID uint) ([]*models.Comment, error) {
	args := m.Called(ctx, articleID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTagRepository is a mock implementation of repository.TagRepository
type MockTagRepository struct {
	mock.Mock
}

func (m *MockTagRepository) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// newMockServer wires a Server around mock repositories without a database.
func newMockServer(t *testing.T, articles *MockArticleRepository, comments *MockCommentRepository, tags *MockTagRepository) *Server {
	t.Helper()

	s := &Server{
		config:      testConfig(),
		articleRepo: articles,
		commentRepo: comments,
		tagRepo:     tags,
	}
	s.initServices()
	s.hub = notifications.NewHub()
	s.publisher = notifications.NewPublisher(s.hub, notifications.NewNotifier(nil), nil)
	return s
}

func testArticle(id, authorID uint, slug string) *models.Article {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.Article{
		ID:          id,
		AuthorID:    authorID,
		Author:      models.User{ID: authorID, Username: "author"},
		Slug:        slug,
		Title:       "Title " + slug,
		Description: "desc",
		Body:        "body",
		Tags:        []models.Tag{{Name: "go"}, {Name: "api"}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
