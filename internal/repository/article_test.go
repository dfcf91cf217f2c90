package repository

import (
	"context"
	"testing"

	"conduit/internal/models"
	"conduit/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slugsOf(articles []*models.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Slug)
	}
	return out
}

func TestArticleRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()
	jake := testutil.CreateUser(t, db, "jake")
	testutil.CreateArticle(t, db, jake, "older", "dragons")

	article := &models.Article{
		AuthorID:    jake.ID,
		Slug:        "how-to-train-your-dragon",
		Title:       "How to train your dragon",
		Description: "Ever wonder how?",
		Body:        "You have to believe",
	}
	require.NoError(t, repo.Create(ctx, article, []string{"training", "dragons"}))
	assert.NotZero(t, article.ID)
	assert.Equal(t, []string{"dragons", "training"}, article.TagNames())

	var tagCount int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(2), tagCount)

	got, err := repo.GetBySlug(ctx, "how-to-train-your-dragon", 0)
	require.NoError(t, err)
	assert.Equal(t, "jake", got.Author.Username)
	assert.ElementsMatch(t, []string{"dragons", "training"}, got.TagNames())
	assert.Zero(t, got.FavoritesCount)

	_, err = repo.GetBySlug(ctx, "missing", 0)
	assert.True(t, models.IsNotFound(err))

	dup := &models.Article{AuthorID: jake.ID, Slug: "how-to-train-your-dragon", Title: "x", Description: "x", Body: "x"}
	err = repo.Create(ctx, dup, nil)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeBadRequest, appErr.Code)
}

func TestArticleRepository_ListFilters(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	jake := testutil.CreateUser(t, db, "jake")
	celeb := testutil.CreateUser(t, db, "celeb_100")
	a1 := testutil.CreateArticle(t, db, jake, "first", "dragons", "go")
	testutil.CreateArticle(t, db, celeb, "second", "rust")
	a3 := testutil.CreateArticle(t, db, jake, "third", "Golang")
	testutil.Favorite(t, db, celeb, a1)
	testutil.Favorite(t, db, jake, a3)

	tests := []struct {
		name      string
		filter    ArticleFilter
		wantSlugs []string
		wantTotal int64
	}{
		{"all newest first", ArticleFilter{Limit: 20}, []string{"third", "second", "first"}, 3},
		{"author substring", ArticleFilter{Author: "JA", Limit: 20}, []string{"third", "first"}, 2},
		{"tag substring", ArticleFilter{Tag: "go", Limit: 20}, []string{"third", "first"}, 2},
		{"favorited by", ArticleFilter{Favorited: "celeb", Limit: 20}, []string{"first"}, 1},
		{"underscore is literal", ArticleFilter{Author: "b_1", Limit: 20}, []string{"second"}, 1},
		{"percent is literal", ArticleFilter{Author: "%", Limit: 20}, []string{}, 0},
		{"combined", ArticleFilter{Author: "jake", Tag: "drag", Limit: 20}, []string{"first"}, 1},
		{"paged", ArticleFilter{Limit: 1, Offset: 1}, []string{"second"}, 3},
		{"offset past end", ArticleFilter{Limit: 20, Offset: 10}, []string{}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles, total, err := repo.List(ctx, tt.filter, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSlugs, slugsOf(articles))
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestArticleRepository_ListFiltersFoldUnicode(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	elodie := testutil.CreateUser(t, db, "Élodie")
	jake := testutil.CreateUser(t, db, "jake")
	post := testutil.CreateArticle(t, db, elodie, "bonjour", "Ärger")
	testutil.CreateArticle(t, db, jake, "hello", "go")
	testutil.Favorite(t, db, elodie, post)

	for _, filter := range []ArticleFilter{
		{Author: "élodie", Limit: 20},
		{Author: "ÉLO", Limit: 20},
		{Tag: "ärger", Limit: 20},
		{Favorited: "éLoDiE", Limit: 20},
	} {
		articles, total, err := repo.List(ctx, filter, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"bonjour"}, slugsOf(articles), "%+v", filter)
		assert.Equal(t, int64(1), total)
	}
}

func TestArticleRepository_ViewerEnrichment(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	jake := testutil.CreateUser(t, db, "jake")
	celeb := testutil.CreateUser(t, db, "celeb")
	reader := testutil.CreateUser(t, db, "reader")
	a := testutil.CreateArticle(t, db, celeb, "famous")
	testutil.Favorite(t, db, jake, a)
	testutil.Favorite(t, db, reader, a)
	testutil.Follow(t, db, reader, celeb)

	anon, err := repo.GetBySlug(ctx, "famous", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), anon.FavoritesCount)
	assert.False(t, anon.Favorited)
	assert.False(t, anon.AuthorFollowed)

	seen, err := repo.GetBySlug(ctx, "famous", reader.ID)
	require.NoError(t, err)
	assert.True(t, seen.Favorited)
	assert.True(t, seen.AuthorFollowed)
}

func TestArticleRepository_Feed(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	jake := testutil.CreateUser(t, db, "jake")
	celeb := testutil.CreateUser(t, db, "celeb")
	other := testutil.CreateUser(t, db, "other")
	testutil.CreateArticle(t, db, celeb, "c1")
	testutil.CreateArticle(t, db, other, "o1")
	testutil.CreateArticle(t, db, celeb, "c2")
	testutil.CreateArticle(t, db, jake, "mine")

	empty, total, err := repo.Feed(ctx, jake.ID, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Zero(t, total)

	testutil.Follow(t, db, jake, celeb)
	feed, total, err := repo.Feed(ctx, jake.ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c1"}, slugsOf(feed))
	assert.Equal(t, int64(2), total)
	for _, a := range feed {
		assert.True(t, a.AuthorFollowed)
	}
}

func TestArticleRepository_UpdateReplacesTags(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()
	jake := testutil.CreateUser(t, db, "jake")
	a := testutil.CreateArticle(t, db, jake, "draft", "old", "kept")

	require.NoError(t, repo.Update(ctx, a.ID, map[string]any{"title": "Final", "slug": "final"}, nil))
	got, err := repo.GetBySlug(ctx, "final", 0)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.ElementsMatch(t, []string{"old", "kept"}, got.TagNames())
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	tags := []string{"kept", "new"}
	require.NoError(t, repo.Update(ctx, a.ID, map[string]any{}, &tags))
	got, err = repo.GetBySlug(ctx, "final", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kept", "new"}, got.TagNames())

	none := []string{}
	require.NoError(t, repo.Update(ctx, a.ID, map[string]any{}, &none))
	got, err = repo.GetBySlug(ctx, "final", 0)
	require.NoError(t, err)
	assert.Empty(t, got.TagNames())

	assert.True(t, models.IsNotFound(repo.Update(ctx, 999, map[string]any{"body": "x"}, nil)))
}

func TestArticleRepository_SlugExists(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()
	jake := testutil.CreateUser(t, db, "jake")
	a := testutil.CreateArticle(t, db, jake, "taken")

	exists, err := repo.SlugExists(ctx, "taken", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(ctx, "taken", a.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.SlugExists(ctx, "free", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestArticleRepository_FavoritesAreIdempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()
	jake := testutil.CreateUser(t, db, "jake")
	a := testutil.CreateArticle(t, db, jake, "liked")

	require.NoError(t, repo.AddFavorite(ctx, jake.ID, a.ID))
	require.NoError(t, repo.AddFavorite(ctx, jake.ID, a.ID))
	got, err := repo.GetBySlug(ctx, "liked", jake.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.FavoritesCount)
	assert.True(t, got.Favorited)

	require.NoError(t, repo.RemoveFavorite(ctx, jake.ID, a.ID))
	require.NoError(t, repo.RemoveFavorite(ctx, jake.ID, a.ID))
	got, err = repo.GetBySlug(ctx, "liked", jake.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FavoritesCount)
	assert.False(t, got.Favorited)
}

func TestArticleRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()
	jake := testutil.CreateUser(t, db, "jake")
	a := testutil.CreateArticle(t, db, jake, "doomed", "gone")
	testutil.Favorite(t, db, jake, a)
	require.NoError(t, db.Omit("Article", "Author").Create(&models.Comment{Body: "bye", ArticleID: a.ID, AuthorID: jake.ID}).Error)

	require.NoError(t, repo.Delete(ctx, a.ID))

	for _, table := range []string{"articles", "comments", "favorites", "article_tags"} {
		var n int64
		require.NoError(t, db.Table(table).Count(&n).Error)
		assert.Zero(t, n, table)
	}
	var tags int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	assert.Equal(t, int64(1), tags, "tags outlive their articles")

	assert.True(t, models.IsNotFound(repo.Delete(ctx, a.ID)))
}
