package service

import (
	"context"
	"strings"

	"conduit/internal/featureflags"
	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"
	"conduit/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
	flags    *featureflags.Manager
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateUserInput carries a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	UserID   uint
	Email    *string
	Username *string
	Password *string
	Bio      *string
	Image    *string
}

func NewUserService(userRepo repository.UserRepository, flags *featureflags.Manager) *UserService {
	return &UserService{userRepo: userRepo, flags: flags}
}

func (s *UserService) validatePassword(password string, userID uint) error {
	if s.flags.Enabled(featureflags.StrictPasswords, userID) {
		return validationErr(validation.ValidateStrongPassword(password))
	}
	return validationErr(validation.ValidatePassword(password))
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (_ *models.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "Register")
	defer func() { observability.EndSpan(span, err) }()

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validationErr(validation.ValidateUsername(username)); err != nil {
		return nil, err
	}
	if err := validationErr(validation.ValidateEmail(email)); err != nil {
		return nil, err
	}
	if err := s.validatePassword(in.Password, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (_ *models.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "Login")
	defer func() { observability.EndSpan(span, err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if err := validationErr(validation.ValidateRequired("email", email)); err != nil {
		return nil, err
	}
	if err := validationErr(validation.ValidateRequired("password", password)); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewBadRequestError("Bad credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewBadRequestError("Bad credentials")
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, in UpdateUserInput) (_ *models.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "Update")
	defer func() { observability.EndSpan(span, err) }()
	ctx = repository.WithPrimary(ctx)

	fields := make(map[string]any)

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validationErr(validation.ValidateEmail(email)); err != nil {
			return nil, err
		}
		fields["email"] = email
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validationErr(validation.ValidateUsername(username)); err != nil {
			return nil, err
		}
		fields["username"] = username
	}
	if in.Password != nil {
		if err := s.validatePassword(*in.Password, in.UserID); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		fields["password"] = string(hash)
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.Image != nil {
		fields["image"] = *in.Image
	}

	if err := s.userRepo.Update(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, in.UserID)
}
