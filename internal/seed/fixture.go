package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"conduit/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a deterministic data set loaded from YAML. Articles reference
// users by username and comments reference articles by title.
type Fixture struct {
	Users    []FixtureUser    `yaml:"users"`
	Follows  []FixtureFollow  `yaml:"follows"`
	Articles []FixtureArticle `yaml:"articles"`
	Comments []FixtureComment `yaml:"comments"`
}

// FixtureUser describes one account.
type FixtureUser struct {
	Username string  `yaml:"username"`
	Email    string  `yaml:"email"`
	Password string  `yaml:"password"`
	Bio      *string `yaml:"bio"`
	Image    *string `yaml:"image"`
}

// FixtureFollow is a follower -> following edge.
type FixtureFollow struct {
	Follower  string `yaml:"follower"`
	Following string `yaml:"following"`
}

// FixtureArticle describes an article and who favorited it.
type FixtureArticle struct {
	Author      string   `yaml:"author"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Body        string   `yaml:"body"`
	Tags        []string `yaml:"tags"`
	FavoritedBy []string `yaml:"favoritedBy"`
}

// FixtureComment is a comment on the article with the given title.
type FixtureComment struct {
	Article string `yaml:"article"`
	Author  string `yaml:"author"`
	Body    string `yaml:"body"`
}

// LoadFixture reads a fixture file from disk.
func LoadFixture(path string) (*Fixture, error) {
	file, err := os.Open(path) // #nosec G304: path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ParseFixture(file)
}

// ParseFixture decodes a fixture and rejects unknown keys and dangling references.
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixture) validate() error {
	users := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		if u.Username == "" {
			return fmt.Errorf("users[%d]: username is required", i)
		}
		if users[u.Username] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		users[u.Username] = true
	}

	requireUser := func(where, name string) error {
		if !users[name] {
			return fmt.Errorf("%s: unknown user %q", where, name)
		}
		return nil
	}

	for i, f := range fx.Follows {
		where := fmt.Sprintf("follows[%d]", i)
		if err := requireUser(where, f.Follower); err != nil {
			return err
		}
		if err := requireUser(where, f.Following); err != nil {
			return err
		}
	}

	titles := make(map[string]bool, len(fx.Articles))
	for i, a := range fx.Articles {
		where := fmt.Sprintf("articles[%d]", i)
		if a.Title == "" || a.Description == "" || a.Body == "" {
			return fmt.Errorf("%s: title, description and body are required", where)
		}
		if titles[a.Title] {
			return fmt.Errorf("%s: duplicate title %q", where, a.Title)
		}
		titles[a.Title] = true
		if err := requireUser(where, a.Author); err != nil {
			return err
		}
		for _, name := range a.FavoritedBy {
			if err := requireUser(where, name); err != nil {
				return err
			}
		}
	}

	for i, c := range fx.Comments {
		where := fmt.Sprintf("comments[%d]", i)
		if !titles[c.Article] {
			return fmt.Errorf("%s: unknown article %q", where, c.Article)
		}
		if c.Body == "" {
			return fmt.Errorf("%s: body is required", where)
		}
		if err := requireUser(where, c.Author); err != nil {
			return err
		}
	}
	return nil
}

// Apply inserts the fixture. Only article timestamps are generated.
func (fx *Fixture) Apply(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	f := NewFactory(db, opts)
	summary := &Summary{}

	if opts.ShouldClean {
		if err := Clean(ctx, db); err != nil {
			return summary, err
		}
	}

	users := make(map[string]*models.User, len(fx.Users))
	for _, fu := range fx.Users {
		user, err := f.CreateUser(ctx, func(u *models.User) {
			u.Username = fu.Username
			u.Email = fu.Email
			if u.Email == "" {
				u.Email = fu.Username + "@example.com"
			}
			u.Password = fu.Password
			u.Bio = fu.Bio
			u.Image = fu.Image
		})
		if err != nil {
			return summary, fmt.Errorf("create user %q: %w", fu.Username, err)
		}
		users[fu.Username] = user
		summary.Users++
	}

	for _, ff := range fx.Follows {
		if err := f.Follow(ctx, users[ff.Follower], users[ff.Following]); err != nil {
			return summary, fmt.Errorf("follow %s -> %s: %w", ff.Follower, ff.Following, err)
		}
		summary.Follows++
	}

	articles := make(map[string]*models.Article, len(fx.Articles))
	for _, fa := range fx.Articles {
		article, err := f.CreateArticle(ctx, users[fa.Author], fa.Tags, func(a *models.Article) {
			a.Title = fa.Title
			a.Description = fa.Description
			a.Body = fa.Body
		})
		if err != nil {
			return summary, fmt.Errorf("create article %q: %w", fa.Title, err)
		}
		articles[fa.Title] = article
		summary.Articles++

		for _, name := range fa.FavoritedBy {
			if err := f.Favorite(ctx, users[name], article); err != nil {
				return summary, fmt.Errorf("favorite %q: %w", fa.Title, err)
			}
			summary.Favorites++
		}
	}

	for _, fc := range fx.Comments {
		_, err := f.CreateComment(ctx, users[fc.Author], articles[fc.Article], func(c *models.Comment) {
			c.Body = fc.Body
		})
		if err != nil {
			return summary, fmt.Errorf("comment on %q: %w", fc.Article, err)
		}
		summary.Comments++
	}

	f.logf("🎉 Fixture applied: %s", summary)
	return summary, nil
}
