package seed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"conduit/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumArticles int
	ShouldClean bool
	// MaxDays bounds how far back article timestamps are spread.
	MaxDays int
	// RandomSeed makes generated content reproducible when non-zero.
	RandomSeed int64
	// FastHash uses the minimum bcrypt cost. Development and tests only.
	FastHash bool
	Quiet    bool
}

func (o Options) bcryptCost() int {
	if o.FastHash {
		return bcrypt.MinCost
	}
	return bcrypt.DefaultCost
}

// Summary counts the rows a seeding run created.
type Summary struct {
	Users     int
	Follows   int
	Articles  int
	Favorites int
	Comments  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d follows, %d articles, %d favorites, %d comments",
		s.Users, s.Follows, s.Articles, s.Favorites, s.Comments)
}

// baseUsers always exist after seeding so there are known logins.
var baseUsers = []string{"jake", "jane", "demo"}

var tagPool = []string{
	"go", "golang", "api", "databases", "postgres", "redis", "testing", "devops",
	"cloud", "security", "performance", "frontend", "backend", "career", "opensource",
	"tutorial", "architecture", "linux", "kubernetes", "observability",
}

// Seed populates the database with generated demo data.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	f := NewFactory(db, opts)
	f.logf("🌱 Starting database seeding with %d users and %d articles...", opts.NumUsers, opts.NumArticles)

	if opts.ShouldClean {
		if err := Clean(ctx, db); err != nil {
			log.Printf("⚠️  Warning: could not clear existing data: %v", err)
		}
	}

	summary := &Summary{}

	users, err := createUsers(ctx, f, opts.NumUsers)
	if err != nil {
		return summary, fmt.Errorf("failed to create users: %w", err)
	}
	summary.Users = len(users)
	f.logf("✓ %d users available", len(users))

	if summary.Follows, err = createFollows(ctx, f, users); err != nil {
		return summary, fmt.Errorf("failed to create follows: %w", err)
	}
	f.logf("✓ %d follows created", summary.Follows)

	articles, err := createArticles(ctx, f, users, opts.NumArticles)
	if err != nil {
		return summary, fmt.Errorf("failed to create articles: %w", err)
	}
	summary.Articles = len(articles)
	f.logf("✓ %d articles created", len(articles))

	if summary.Favorites, summary.Comments, err = createEngagement(ctx, f, users, articles); err != nil {
		return summary, fmt.Errorf("failed to create favorites and comments: %w", err)
	}
	f.logf("✓ %d favorites and %d comments created", summary.Favorites, summary.Comments)

	f.logf("🎉 Database seeding completed: %s", summary)
	return summary, nil
}

// Clean removes every row from the domain tables.
func Clean(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE comments, favorites, article_tags, articles, tags, follows, users RESTART IDENTITY CASCADE`).Error
	}
	for _, table := range []string{"comments", "favorites", "article_tags", "articles", "tags", "follows", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func createUsers(ctx context.Context, f *Factory, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, max(count, len(baseUsers)))

	for _, name := range baseUsers {
		user, err := f.users.GetByUsername(ctx, name)
		if err != nil {
			var appErr *models.AppError
			if !errors.As(err, &appErr) || appErr.Code != models.CodeNotFound {
				return nil, err
			}
			user, err = f.CreateUser(ctx, func(u *models.User) {
				u.Username = name
				u.Email = name + "@example.com"
			})
			if err != nil {
				return nil, err
			}
		}
		users = append(users, user)
	}

	for i := len(users); i < count; i++ {
		user, err := f.CreateUser(ctx, func(u *models.User) {
			// The index keeps generated usernames unique.
			u.Username = fmt.Sprintf("%s%d", u.Username, i)
			u.Email = u.Username + "@example.com"
		})
		if err != nil {
			f.logf("Failed to create user: %v", err)
			continue
		}
		users = append(users, user)

		if i%100 == 0 {
			f.logf("Created %d users...", i)
		}
	}
	return users, nil
}

// createFollows gives every user a handful of followed authors.
func createFollows(ctx context.Context, f *Factory, users []*models.User) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	created := 0
	for _, follower := range users {
		seen := map[uint]bool{follower.ID: true}
		for range f.faker.Number(1, min(5, len(users)-1)) {
			target := users[f.faker.Number(0, len(users)-1)]
			if seen[target.ID] {
				continue
			}
			seen[target.ID] = true
			if err := f.Follow(ctx, follower, target); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func createArticles(ctx context.Context, f *Factory, users []*models.User, count int) ([]*models.Article, error) {
	if len(users) == 0 {
		return nil, nil
	}
	articles := make([]*models.Article, 0, count)
	for i := range count {
		author := users[f.faker.Number(0, len(users)-1)]
		article, err := f.CreateArticle(ctx, author, f.Tags(tagPool, 4))
		if err != nil {
			return articles, err
		}
		articles = append(articles, article)

		if i > 0 && i%100 == 0 {
			f.logf("Created %d articles...", i)
		}
	}
	return articles, nil
}

func createEngagement(ctx context.Context, f *Factory, users []*models.User, articles []*models.Article) (favorites, comments int, err error) {
	if len(users) == 0 {
		return 0, 0, nil
	}
	for _, article := range articles {
		seen := make(map[uint]bool)
		for range f.faker.Number(0, min(8, len(users))) {
			user := users[f.faker.Number(0, len(users)-1)]
			if seen[user.ID] {
				continue
			}
			seen[user.ID] = true
			if err := f.Favorite(ctx, user, article); err != nil {
				return favorites, comments, err
			}
			favorites++
		}
		for range f.faker.Number(0, 4) {
			author := users[f.faker.Number(0, len(users)-1)]
			if _, err := f.CreateComment(ctx, author, article); err != nil {
				return favorites, comments, err
			}
			comments++
		}
	}
	return favorites, comments, nil
}
