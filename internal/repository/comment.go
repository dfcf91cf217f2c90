package repository

import (
	"context"
	"errors"

	"conduit/internal/models"

	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByArticle(ctx context.Context, articleID, viewerID uint) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// withAuthor loads comments with their author row.
func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("Author")
}

// Create inserts comment and fills in its author and timestamps from the
// stored row.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Article", "Author").Create(comment).Error; err != nil {
			return err
		}
		return withAuthor(tx).Take(comment, comment.ID).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	c := new(models.Comment)
	err := withAuthor(r.db.WithContext(ctx)).Take(c, id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, models.NewNotFoundError("Comment", id)
	case err != nil:
		return nil, models.NewInternalError(err)
	}
	return c, nil
}

// ListByArticle returns the article's comments newest first, with
// AuthorFollowed set for viewerID.
func (r *commentRepository) ListByArticle(ctx context.Context, articleID, viewerID uint) ([]*models.Comment, error) {
	db := readDB(ctx, r.db).WithContext(ctx)

	comments := []*models.Comment{}
	if err := withAuthor(db).
		Where("article_id = ?", articleID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if viewerID == 0 || len(comments) == 0 {
		return comments, nil
	}

	authors := make([]uint, len(comments))
	for i, c := range comments {
		authors[i] = c.AuthorID
	}
	followed, err := followedAmong(ctx, db, viewerID, authors)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		c.AuthorFollowed = followed[c.AuthorID]
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	switch {
	case res.Error != nil:
		return models.NewInternalError(res.Error)
	case res.RowsAffected == 0:
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
