package service

import (
	"context"
	"testing"

	"conduit/internal/featureflags"
	"conduit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_Register(t *testing.T) {
	var created *models.User
	repo := &userRepoStub{
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			created = u
			return nil
		},
	}
	svc := NewUserService(repo, featureflags.NewManager(""))

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: " jake ",
		Email:    "Jake@Jake.JAKE",
		Password: "jakejake",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
	assert.Equal(t, "jake", created.Username)
	assert.Equal(t, "jake@jake.jake", created.Email)
	assert.NotEqual(t, "jakejake", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("jakejake")))
}

func TestUserService_RegisterValidation(t *testing.T) {
	repo := &userRepoStub{
		createFn: func(context.Context, *models.User) error {
			t.Fatal("create must not be called for invalid input")
			return nil
		},
	}

	tests := []struct {
		name  string
		flags string
		in    RegisterInput
	}{
		{"blank username", "", RegisterInput{Username: " ", Email: "a@b.co", Password: "password1"}},
		{"bad email", "", RegisterInput{Username: "jake", Email: "nope", Password: "password1"}},
		{"short password", "", RegisterInput{Username: "jake", Email: "a@b.co", Password: "short"}},
		{"weak under strict policy", "strict_passwords=on", RegisterInput{Username: "jake", Email: "a@b.co", Password: "password1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewUserService(repo, featureflags.NewManager(tt.flags))
			_, err := svc.Register(context.Background(), tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_RegisterPropagatesConflicts(t *testing.T) {
	repo := &userRepoStub{
		createFn: func(context.Context, *models.User) error {
			return models.NewBadRequestError("Email already registered")
		},
	}
	svc := NewUserService(repo, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "jake", Email: "jake@jake.jake", Password: "jakejake"})
	assertAppError(t, err, models.CodeBadRequest)
}

func TestUserService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("jakejake"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &userRepoStub{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			if email == "jake@jake.jake" {
				return &models.User{ID: 1, Email: email, Username: "jake", Password: string(hash)}, nil
			}
			return nil, nil
		},
	}
	svc := NewUserService(repo, nil)
	ctx := context.Background()

	user, err := svc.Login(ctx, " JAKE@jake.jake", "jakejake")
	require.NoError(t, err)
	assert.Equal(t, "jake", user.Username)

	_, err = svc.Login(ctx, "jake@jake.jake", "wrong-password")
	assertAppError(t, err, models.CodeBadRequest)

	_, err = svc.Login(ctx, "nobody@jake.jake", "jakejake")
	assertAppError(t, err, models.CodeBadRequest)

	_, err = svc.Login(ctx, "", "jakejake")
	assertValidationError(t, err)
}

func TestUserService_UpdateWritesOnlyGivenFields(t *testing.T) {
	var written map[string]any
	repo := &userRepoStub{
		updateFn: func(_ context.Context, id uint, fields map[string]any) error {
			assert.Equal(t, uint(4), id)
			written = fields
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "jake"}, nil
		},
	}
	svc := NewUserService(repo, nil)

	user, err := svc.Update(context.Background(), UpdateUserInput{
		UserID:   4,
		Bio:      strPtr("I like to skateboard"),
		Password: strPtr("newpassword"),
	})
	require.NoError(t, err)
	assert.Equal(t, uint(4), user.ID)

	require.Len(t, written, 2)
	assert.Equal(t, "I like to skateboard", written["bio"])
	hash, ok := written["password"].(string)
	require.True(t, ok)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpassword")))
}

func TestUserService_UpdateValidation(t *testing.T) {
	repo := &userRepoStub{
		updateFn: func(context.Context, uint, map[string]any) error {
			t.Fatal("update must not be called for invalid input")
			return nil
		},
	}
	svc := NewUserService(repo, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, UpdateUserInput{UserID: 1, Email: strPtr("not-an-email")})
	assertValidationError(t, err)

	_, err = svc.Update(ctx, UpdateUserInput{UserID: 1, Password: strPtr("short")})
	assertValidationError(t, err)

	_, err = svc.Update(ctx, UpdateUserInput{UserID: 1, Username: strPtr("")})
	assertValidationError(t, err)
}
