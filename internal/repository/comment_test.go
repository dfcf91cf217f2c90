package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"conduit/internal/models"
	"conduit/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comments" WHERE "comments"."id" = $1`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comments" WHERE "comments"."id" = $1`)).
		WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.NoError(t, repo.Delete(ctx, 7))
	assert.True(t, models.IsNotFound(repo.Delete(ctx, 8)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_CreateAndList(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	jake := testutil.CreateUser(t, db, "jake")
	celeb := testutil.CreateUser(t, db, "celeb")
	a := testutil.CreateArticle(t, db, jake, "post")
	other := testutil.CreateArticle(t, db, jake, "other")
	testutil.Follow(t, db, jake, celeb)

	first := &models.Comment{Body: "first", ArticleID: a.ID, AuthorID: celeb.ID}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "celeb", first.Author.Username)

	second := &models.Comment{Body: "second", ArticleID: a.ID, AuthorID: jake.ID}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, db.Model(second).Update("created_at", time.Now().Add(time.Minute)).Error)
	require.NoError(t, repo.Create(ctx, &models.Comment{Body: "elsewhere", ArticleID: other.ID, AuthorID: jake.ID}))

	comments, err := repo.ListByArticle(ctx, a.ID, jake.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Body)
	assert.Equal(t, "first", comments[1].Body)
	assert.False(t, comments[0].AuthorFollowed)
	assert.True(t, comments[1].AuthorFollowed)

	anon, err := repo.ListByArticle(ctx, a.ID, 0)
	require.NoError(t, err)
	for _, c := range anon {
		assert.False(t, c.AuthorFollowed)
	}

	empty, err := repo.ListByArticle(ctx, 999, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ArticleID)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsNotFound(err))
}
