// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"

	"conduit/internal/database"
	"conduit/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plaintext password of every user made by CreateUser.
const TestPassword = "password123"

// NewSQLiteDB opens a migrated in-memory database that is closed when t ends.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:", &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user whose email is derived from username.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: string(hash),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateArticle inserts an article by author with the given tag names.
func CreateArticle(t testing.TB, db *gorm.DB, author *models.User, slug string, tags ...string) *models.Article {
	t.Helper()

	a := &models.Article{
		AuthorID:    author.ID,
		Slug:        slug,
		Title:       slug,
		Description: "about " + slug,
		Body:        "body of " + slug,
	}
	require.NoError(t, db.Omit("Author", "Tags").Create(a).Error)

	for _, name := range tags {
		tag := models.Tag{Name: name}
		require.NoError(t, db.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error)
		require.NoError(t, db.Exec("INSERT INTO article_tags (article_id, tag_id) VALUES (?, ?)", a.ID, tag.ID).Error)
	}
	return a
}

// Follow makes follower follow following.
func Follow(t testing.TB, db *gorm.DB, follower, following *models.User) {
	t.Helper()
	require.NoError(t, db.Omit("Follower", "Following").Create(&models.Follow{
		FollowerID:  follower.ID,
		FollowingID: following.ID,
	}).Error)
}

// Favorite records that user favorited article.
func Favorite(t testing.TB, db *gorm.DB, user *models.User, article *models.Article) {
	t.Helper()
	require.NoError(t, db.Omit("User", "Article").Create(&models.Favorite{
		UserID:    user.ID,
		ArticleID: article.ID,
	}).Error)
}

// UseReplica routes replica reads to replica until t ends. Tests that call
// it must not run in parallel.
func UseReplica(t testing.TB, replica *gorm.DB) {
	t.Helper()
	previous := database.ReadDB
	database.ReadDB = replica
	t.Cleanup(func() { database.ReadDB = previous })
}
