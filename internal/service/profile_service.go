package service

import (
	"context"

	"conduit/internal/models"
	"conduit/internal/repository"
)

type ProfileService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func NewProfileService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *ProfileService {
	return &ProfileService{userRepo: userRepo, followRepo: followRepo}
}

// Get returns the profile of username as seen by viewerID (0 for anonymous).
func (s *ProfileService) Get(ctx context.Context, username string, viewerID uint) (models.Profile, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return models.Profile{}, err
	}
	following, err := s.followRepo.IsFollowing(ctx, viewerID, user.ID)
	if err != nil {
		return models.Profile{}, err
	}
	return models.NewProfile(user, following), nil
}

// Follow makes followerID follow username and returns the followed user.
func (s *ProfileService) Follow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	ctx = repository.WithPrimary(ctx)
	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, models.NewBadRequestError("You cannot follow yourself")
	}
	if err := s.followRepo.Follow(ctx, followerID, target.ID); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *ProfileService) Unfollow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	ctx = repository.WithPrimary(ctx)
	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.followRepo.Unfollow(ctx, followerID, target.ID); err != nil {
		return nil, err
	}
	return target, nil
}

// FollowerIDs lists who follows userID.
func (s *ProfileService) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followRepo.FollowerIDs(ctx, userID)
}
