package service

import (
	"context"
	"errors"
	"testing"

	"conduit/internal/models"
	"conduit/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, uint, map[string]any) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFn(ctx, id, fields)
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	followFn        func(context.Context, uint, uint) error
	unfollowFn      func(context.Context, uint, uint) error
	isFollowingFn   func(context.Context, uint, uint) (bool, error)
	followedAmongFn func(context.Context, uint, []uint) (map[uint]bool, error)
	followerIDsFn   func(context.Context, uint) ([]uint, error)
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followingID uint) error {
	return s.followFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followingID uint) error {
	return s.unfollowFn(ctx, followerID, followingID)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followingID)
}
func (s *followRepoStub) FollowedAmong(ctx context.Context, followerID uint, ids []uint) (map[uint]bool, error) {
	return s.followedAmongFn(ctx, followerID, ids)
}
func (s *followRepoStub) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followerIDsFn(ctx, userID)
}

// articleRepoStub is a stub for repository.ArticleRepository.
type articleRepoStub struct {
	createFn         func(context.Context, *models.Article, []string) error
	getBySlugFn      func(context.Context, string, uint) (*models.Article, error)
	listFn           func(context.Context, repository.ArticleFilter, uint) ([]*models.Article, int64, error)
	feedFn           func(context.Context, uint, int, int) ([]*models.Article, int64, error)
	updateFn         func(context.Context, uint, map[string]any, *[]string) error
	deleteFn         func(context.Context, uint) error
	slugExistsFn     func(context.Context, string, uint) (bool, error)
	addFavoriteFn    func(context.Context, uint, uint) error
	removeFavoriteFn func(context.Context, uint, uint) error
}

func (s *articleRepoStub) Create(ctx context.Context, a *models.Article, tags []string) error {
	return s.createFn(ctx, a, tags)
}
func (s *articleRepoStub) GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Article, error) {
	return s.getBySlugFn(ctx, slug, viewerID)
}
func (s *articleRepoStub) List(ctx context.Context, f repository.ArticleFilter, viewerID uint) ([]*models.Article, int64, error) {
	return s.listFn(ctx, f, viewerID)
}
func (s *articleRepoStub) Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Article, int64, error) {
	return s.feedFn(ctx, userID, limit, offset)
}
func (s *articleRepoStub) Update(ctx context.Context, id uint, fields map[string]any, tags *[]string) error {
	return s.updateFn(ctx, id, fields, tags)
}
func (s *articleRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *articleRepoStub) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return s.slugExistsFn(ctx, slug, excludeID)
}
func (s *articleRepoStub) AddFavorite(ctx context.Context, userID, articleID uint) error {
	return s.addFavoriteFn(ctx, userID, articleID)
}
func (s *articleRepoStub) RemoveFavorite(ctx context.Context, userID, articleID uint) error {
	return s.removeFavoriteFn(ctx, userID, articleID)
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listByArticleFn func(context.Context, uint, uint) ([]*models.Comment, error)
	deleteFn        func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByArticle(ctx context.Context, articleID, viewerID uint) ([]*models.Comment, error) {
	return s.listByArticleFn(ctx, articleID, viewerID)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

// tagRepoStub is a stub for repository.TagRepository.
type tagRepoStub struct {
	listFn func(context.Context) ([]string, error)
}

func (s *tagRepoStub) List(ctx context.Context) ([]string, error) {
	return s.listFn(ctx)
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func strPtr(s string) *string { return &s }
