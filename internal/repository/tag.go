package repository

import (
	"context"

	"conduit/internal/models"

	"gorm.io/gorm"
)

// TagRepository reads the tag vocabulary.
type TagRepository interface {
	List(ctx context.Context) ([]string, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// List returns every tag name in ascending order.
func (r *tagRepository) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := readDB(ctx, r.db).WithContext(ctx).
		Model(&models.Tag{}).
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return names, nil
}
