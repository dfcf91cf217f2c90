// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"conduit/internal/models"
	"conduit/internal/repository"
	"conduit/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the plaintext password of every seeded user.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them through the repositories,
// so seeded rows go through the same slug, tag and uniqueness rules as the API.
type Factory struct {
	db       *gorm.DB
	opts     Options
	faker    *gofakeit.Faker
	users    repository.UserRepository
	follows  repository.FollowRepository
	articles repository.ArticleRepository
	comments repository.CommentRepository

	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:       db,
		opts:     opts,
		faker:    gofakeit.New(seed),
		users:    repository.NewUserRepository(db),
		follows:  repository.NewFollowRepository(db),
		articles: repository.NewArticleRepository(db),
		comments: repository.NewCommentRepository(db),
	}
}

// hash returns the stored password for seeded users. The bcrypt hash is
// computed once per factory.
func (f *Factory) hash(password string) (string, error) {
	if password != DefaultPassword {
		h, err := bcrypt.GenerateFromPassword([]byte(password), f.opts.bcryptCost())
		return string(h), err
	}
	if f.passwordHash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), f.opts.bcryptCost())
		if err != nil {
			return "", err
		}
		f.passwordHash = string(h)
	}
	return f.passwordHash, nil
}

// BuildUser constructs a sample user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	username := strings.ToLower(f.faker.Username()) + fmt.Sprintf("%d", f.faker.Number(100, 999))
	bio := f.faker.Sentence(10)
	image := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID())

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Bio:      &bio,
		Image:    &image,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a sample user whose password is DefaultPassword unless
// an override sets one.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)

	password := user.Password
	if password == "" {
		password = DefaultPassword
	}
	hashed, err := f.hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.Password = hashed

	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildArticle constructs a sample article for author without persisting it.
// CreatedAt is spread over the last MaxDays days.
func (f *Factory) BuildArticle(author *models.User, overrides ...func(*models.Article)) *models.Article {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	article := &models.Article{
		AuthorID:    author.ID,
		Title:       title,
		Description: f.faker.Sentence(12),
		Body:        f.faker.Paragraph(f.faker.Number(2, 5), 4, 12, "\n\n"),
		CreatedAt:   f.pastTime(),
	}
	article.UpdatedAt = article.CreatedAt

	for _, override := range overrides {
		override(article)
	}
	return article
}

// CreateArticle persists an article with tags. When the title's slug is
// taken, a numeric suffix keeps it unique.
func (f *Factory) CreateArticle(ctx context.Context, author *models.User, tags []string, overrides ...func(*models.Article)) (*models.Article, error) {
	article := f.BuildArticle(author, overrides...)

	slug, err := f.uniqueSlug(ctx, validation.Slugify(article.Title))
	if err != nil {
		return nil, err
	}
	article.Slug = slug

	if err := f.articles.Create(ctx, article, tags); err != nil {
		return nil, err
	}
	article.Author = *author
	return article, nil
}

func (f *Factory) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "article"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := f.articles.SlugExists(ctx, slug, 0)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateComment persists a sample comment by author on article.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, article *models.Article, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Body:      f.faker.Sentence(f.faker.Number(6, 20)),
		ArticleID: article.ID,
		AuthorID:  author.ID,
	}
	for _, override := range overrides {
		override(comment)
	}

	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Favorite records that user favorited article. Repeats are ignored.
func (f *Factory) Favorite(ctx context.Context, user *models.User, article *models.Article) error {
	return f.articles.AddFavorite(ctx, user.ID, article.ID)
}

// Follow makes follower follow following. Repeats are ignored.
func (f *Factory) Follow(ctx context.Context, follower, following *models.User) error {
	if follower.ID == following.ID {
		return nil
	}
	return f.follows.Follow(ctx, follower.ID, following.ID)
}

// Tags picks between 0 and max distinct tags from the pool.
func (f *Factory) Tags(pool []string, max int) []string {
	if len(pool) == 0 || max <= 0 {
		return nil
	}
	n := f.faker.Number(0, min(max, len(pool)))
	picked := make([]string, 0, n)
	seen := make(map[int]bool, n)
	for len(picked) < n {
		i := f.faker.Number(0, len(pool)-1)
		if seen[i] {
			continue
		}
		seen[i] = true
		picked = append(picked, pool[i])
	}
	return picked
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays-1))*24*time.Hour +
		time.Duration(f.faker.Number(0, 23))*time.Hour +
		time.Duration(f.faker.Number(0, 59))*time.Minute
	return time.Now().Add(-back).UTC()
}

func (f *Factory) logf(format string, args ...any) {
	if f.opts.Quiet {
		return
	}
	log.Printf(format, args...)
}
