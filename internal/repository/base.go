// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"strings"

	"conduit/internal/database"
	"conduit/internal/models"

	"gorm.io/gorm"
)

type primaryKey struct{}

// WithPrimary pins every read made with ctx to the primary. Write paths use
// it to read back rows a lagging replica may not have yet.
func WithPrimary(ctx context.Context) context.Context {
	return context.WithValue(ctx, primaryKey{}, true)
}

func readsPrimary(ctx context.Context) bool {
	pinned, _ := ctx.Value(primaryKey{}).(bool)
	return pinned
}

// readDB picks the replica for plain reads and the primary otherwise.
func readDB(ctx context.Context, primary *gorm.DB) *gorm.DB {
	if readsPrimary(ctx) {
		return primary
	}
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// likePattern builds a case-insensitive "contains" pattern, escaping LIKE
// wildcards in the user input. Use with `LOWER(col) LIKE ? ESCAPE '\'`.
// LOWER folds Unicode on both drivers; see database.OpenSQLite.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// followedAmong returns which of candidateIDs the follower follows.
func followedAmong(ctx context.Context, db *gorm.DB, followerID uint, candidateIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(candidateIDs))
	if followerID == 0 || len(candidateIDs) == 0 {
		return out, nil
	}

	var ids []uint
	if err := db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id IN ?", followerID, uniqueIDs(candidateIDs)).
		Pluck("following_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
