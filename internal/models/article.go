package models

import "time"

// Article is a blog post addressed by its unique slug.
type Article struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Slug        string    `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	Tags        []Tag     `gorm:"many2many:article_tags;constraint:OnDelete:CASCADE" json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// FavoritesCount is not persisted; computed at query time
	FavoritesCount int64 `gorm:"-" json:"favorites_count"`
	// Favorited indicates whether the viewer favorited this article (computed)
	Favorited bool `gorm:"-" json:"favorited"`
	// AuthorFollowed indicates whether the viewer follows the author (computed)
	AuthorFollowed bool `gorm:"-" json:"author_followed"`
}

// TagNames returns the article's tag names in storage order.
func (a *Article) TagNames() []string {
	names := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Tag is a label attached to articles.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorite records that a user favorited an article.
type Favorite struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ArticleID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"article_id"`
	CreatedAt time.Time `json:"created_at"`

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Article Article `gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Favorite) TableName() string {
	return "favorites"
}
