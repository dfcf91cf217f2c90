package database

import "conduit/internal/models"

// PersistentModels lists the tables AutoMigrate creates, parents before the
// tables that reference them. article_tags comes from Article's many2many.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Follow{},
		&models.Tag{},
		&models.Article{},
		&models.Favorite{},
		&models.Comment{},
	}
}
