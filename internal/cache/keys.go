package cache

import (
	"context"
	"strconv"
	"time"
)

// Keys are "<cache>:<id>". The part before the colon labels cache metrics.
const (
	TagsKey = "tags:all"

	userKeyPrefix    = "user:"
	revokedKeyPrefix = "revoked_jwt:"
)

const (
	UserTTL = 5 * time.Minute
	TagsTTL = 10 * time.Minute
)

// UserKey holds a user row without its password hash.
func UserKey(userID uint) string {
	return userKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// RevokedTokenKey marks a JWT id as logged out until the token expires.
func RevokedTokenKey(jti string) string {
	return revokedKeyPrefix + jti
}

// Invalidate deletes keys. Failures are ignored; entries expire on their own.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateTags(ctx context.Context) {
	Invalidate(ctx, TagsKey)
}
