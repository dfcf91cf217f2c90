package repository

import (
	"context"
	"errors"
	"strings"

	"conduit/internal/cache"
	"conduit/internal/database"
	"conduit/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, fields map[string]any) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// errNoUser marks a lookup that matched nothing. Callers translate it into
// the error their endpoint reports.
var errNoUser = errors.New("no matching user")

// findUser loads the single user matching cond.
func findUser(ctx context.Context, db *gorm.DB, cond string, arg any) (*models.User, error) {
	u := new(models.User)
	err := db.WithContext(ctx).Where(cond, arg).Take(u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errNoUser
	case err != nil:
		return nil, models.NewInternalError(err)
	}
	return u, nil
}

// GetByID is served cache-aside. Misses load from the primary: Update drops
// the cached row, and refilling it from a lagging replica would pin the old
// values for UserTTL. The cached copy carries no password hash, so
// credential checks go through GetByEmail.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return cache.Aside(ctx, cache.UserKey(id), cache.UserTTL, func() (*models.User, error) {
		u, err := findUser(ctx, r.db, "id = ?", id)
		if errors.Is(err, errNoUser) {
			return nil, models.NewNotFoundError("User", id)
		}
		return u, err
	})
}

// GetByEmail reads the primary and returns nil, nil for an unknown email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := findUser(ctx, r.db, "email = ?", email)
	if errors.Is(err, errNoUser) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := findUser(ctx, readDB(ctx, r.db), "username = ?", username)
	if errors.Is(err, errNoUser) {
		return nil, models.NewNotFoundError("Profile", username)
	}
	return u, err
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return userWriteError(r.db.WithContext(ctx).Create(user).Error)
}

// Update writes only the named columns, so a partly loaded user cannot
// overwrite fields it never read.
func (r *userRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if err := userWriteError(res.Error); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}

	cache.InvalidateUser(ctx, id)
	return nil
}

// userWriteError reports a taken username or email as a client error.
func userWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case !database.IsUniqueViolation(err):
		return models.NewInternalError(err)
	case strings.Contains(database.UniqueViolationColumn(err), "username"):
		return models.NewBadRequestError("Username already taken")
	default:
		return models.NewBadRequestError("Email already registered")
	}
}
