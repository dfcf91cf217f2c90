package repository

import (
	"context"
	"errors"
	"time"

	"conduit/internal/database"
	"conduit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleFilter narrows an article listing. String filters are
// case-insensitive substring matches.
type ArticleFilter struct {
	Tag       string
	Author    string
	Favorited string
	Limit     int
	Offset    int
}

// ArticleRepository defines persistence operations for articles, their tags
// and favorites. viewerID of 0 means an anonymous viewer.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article, tagNames []string) error
	GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Article, error)
	List(ctx context.Context, filter ArticleFilter, viewerID uint) ([]*models.Article, int64, error)
	Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Article, int64, error)
	Update(ctx context.Context, id uint, fields map[string]any, tagNames *[]string) error
	Delete(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	AddFavorite(ctx context.Context, userID, articleID uint) error
	RemoveFavorite(ctx context.Context, userID, articleID uint) error
}

// articleTag is the many2many join row between articles and tags.
type articleTag struct {
	ArticleID uint `gorm:"primaryKey;autoIncrement:false"`
	TagID     uint `gorm:"primaryKey;autoIncrement:false"`
}

func (articleTag) TableName() string {
	return "article_tags"
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository returns a new ArticleRepository implementation.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *models.Article, tagNames []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Tags").Create(article).Error; err != nil {
			return err
		}
		tags, err := ensureTags(tx, tagNames)
		if err != nil {
			return err
		}
		article.Tags = tags
		return linkTags(tx, article.ID, tags)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewBadRequestError("Article with this title already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *articleRepository) GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Article, error) {
	db := readDB(ctx, r.db).WithContext(ctx)

	var article models.Article
	err := db.Preload("Author").Preload("Tags").Where("slug = ?", slug).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Article", slug)
		}
		return nil, models.NewInternalError(err)
	}

	if err := r.enrich(ctx, db, []*models.Article{&article}, viewerID); err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *articleRepository) List(ctx context.Context, filter ArticleFilter, viewerID uint) ([]*models.Article, int64, error) {
	db := readDB(ctx, r.db).WithContext(ctx)
	q := db.Model(&models.Article{})

	if filter.Author != "" {
		q = q.Where("articles.author_id IN (?)",
			db.Model(&models.User{}).Select("id").
				Where(`LOWER(username) LIKE ? ESCAPE '\'`, likePattern(filter.Author)))
	}
	if filter.Tag != "" {
		q = q.Where("articles.id IN (?)",
			db.Table("article_tags").Select("article_tags.article_id").
				Joins("JOIN tags ON tags.id = article_tags.tag_id").
				Where(`LOWER(tags.name) LIKE ? ESCAPE '\'`, likePattern(filter.Tag)))
	}
	if filter.Favorited != "" {
		q = q.Where("articles.id IN (?)",
			db.Table("favorites").Select("favorites.article_id").
				Joins("JOIN users ON users.id = favorites.user_id").
				Where(`LOWER(users.username) LIKE ? ESCAPE '\'`, likePattern(filter.Favorited)))
	}

	return r.page(ctx, db, q, filter.Limit, filter.Offset, viewerID)
}

func (r *articleRepository) Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Article, int64, error) {
	db := readDB(ctx, r.db).WithContext(ctx)
	q := db.Model(&models.Article{}).
		Where("articles.author_id IN (?)",
			db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", userID))

	return r.page(ctx, db, q, limit, offset, userID)
}

// page counts the unpaged result and loads one page, newest first.
func (r *articleRepository) page(ctx context.Context, db, q *gorm.DB, limit, offset int, viewerID uint) ([]*models.Article, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	articles := make([]*models.Article, 0, limit)
	if total == 0 || int64(offset) >= total {
		return articles, total, nil
	}

	err := q.Session(&gorm.Session{}).
		Preload("Author").
		Preload("Tags").
		Order("articles.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	if err := r.enrich(ctx, db, articles, viewerID); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// enrich fills the computed favorite and following fields in three batched
// queries, whatever the page size.
func (r *articleRepository) enrich(ctx context.Context, db *gorm.DB, articles []*models.Article, viewerID uint) error {
	if len(articles) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(articles))
	authorIDs := make([]uint, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
		authorIDs = append(authorIDs, a.AuthorID)
	}

	type favoriteCount struct {
		ArticleID uint
		Total     int64
	}
	var counts []favoriteCount
	if err := db.Model(&models.Favorite{}).
		Select("article_id, COUNT(*) AS total").
		Where("article_id IN ?", ids).
		Group("article_id").
		Scan(&counts).Error; err != nil {
		return models.NewInternalError(err)
	}
	countByID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByID[c.ArticleID] = c.Total
	}

	favorited := map[uint]bool{}
	followed := map[uint]bool{}
	if viewerID != 0 {
		var favIDs []uint
		if err := db.Model(&models.Favorite{}).
			Where("user_id = ? AND article_id IN ?", viewerID, ids).
			Pluck("article_id", &favIDs).Error; err != nil {
			return models.NewInternalError(err)
		}
		for _, id := range favIDs {
			favorited[id] = true
		}

		var err error
		followed, err = followedAmong(ctx, db, viewerID, authorIDs)
		if err != nil {
			return err
		}
	}

	for _, a := range articles {
		a.FavoritesCount = countByID[a.ID]
		a.Favorited = favorited[a.ID]
		a.AuthorFollowed = followed[a.AuthorID]
	}
	return nil
}

// Update writes the given columns and, when tagNames is non-nil, replaces
// the article's tags.
func (r *articleRepository) Update(ctx context.Context, id uint, fields map[string]any, tagNames *[]string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			updates[k] = v
		}
		updates["updated_at"] = time.Now()

		result := tx.Model(&models.Article{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Article", id)
		}

		if tagNames == nil {
			return nil
		}
		if err := tx.Where("article_id = ?", id).Delete(&articleTag{}).Error; err != nil {
			return err
		}
		tags, err := ensureTags(tx, *tagNames)
		if err != nil {
			return err
		}
		return linkTags(tx, id, tags)
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		if database.IsUniqueViolation(err) {
			return models.NewBadRequestError("Article with this title already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the article and everything hanging off it. The schema
// cascades too; the explicit deletes keep databases without enforced
// foreign keys consistent.
func (r *articleRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&articleTag{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Article{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Article", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *articleRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Article{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// AddFavorite is idempotent.
func (r *articleRepository) AddFavorite(ctx context.Context, userID, articleID uint) error {
	fav := models.Favorite{UserID: userID, ArticleID: articleID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("User", "Article").
		Create(&fav).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// RemoveFavorite is idempotent.
func (r *articleRepository) RemoveFavorite(ctx context.Context, userID, articleID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ?", userID, articleID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ensureTags inserts any missing tags and returns all of them, in name order.
func ensureTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	fresh := make([]models.Tag, 0, len(names))
	for _, name := range names {
		fresh = append(fresh, models.Tag{Name: name})
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, err
	}

	var tags []models.Tag
	if err := tx.Where("name IN ?", names).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func linkTags(tx *gorm.DB, articleID uint, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	rows := make([]articleTag, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, articleTag{ArticleID: articleID, TagID: t.ID})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
