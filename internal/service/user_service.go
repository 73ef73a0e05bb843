package service

import (
	"context"
	"strings"

	"stackit/internal/models"
	"stackit/internal/repository"
)

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Profile(ctx context.Context, username string, page, limit int) (*models.UserProfile, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundMessage("User not found")
	}
	return s.users.Profile(ctx, user, page, limit)
}

func (s *UserService) Stats(ctx context.Context, id uint) (*models.UserStats, error) {
	return s.users.Stats(ctx, id)
}

func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	switch filter.Sort {
	case "", models.UserSortReputation, models.UserSortNewest, models.UserSortOldest, models.UserSortUsername:
	default:
		return nil, 0, models.NewValidationError("Sort must be one of: reputation, newest, oldest, username")
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, 0, models.NewValidationError("Invalid role. Must be user or admin")
	}
	return s.users.List(ctx, filter)
}

// SetBanned bans or unbans a user. A nil banned flips the current state.
func (s *UserService) SetBanned(ctx context.Context, id uint, banned *bool) (*models.User, error) {
	user, err := s.users.GetFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, models.NewValidationError("Cannot ban admin users")
	}
	next := !user.IsBanned
	if banned != nil {
		next = *banned
	}
	if err := s.users.UpdateFields(ctx, id, map[string]any{"is_banned": next}); err != nil {
		return nil, err
	}
	user.IsBanned = next
	return user, nil
}

func (s *UserService) SetRole(ctx context.Context, id uint, role models.Role) (*models.User, error) {
	if !role.IsValid() {
		return nil, fieldError("role", "Invalid role. Must be user or admin")
	}
	if err := s.users.UpdateFields(ctx, id, map[string]any{"role": role}); err != nil {
		return nil, err
	}
	return s.users.GetFresh(ctx, id)
}

// SetReputation overwrites a user's reputation. Nothing in the API awards
// reputation, so operators set it directly.
func (s *UserService) SetReputation(ctx context.Context, id uint, reputation int) (*models.User, error) {
	if reputation < 0 {
		return nil, fieldError("reputation", "Reputation cannot be negative")
	}
	if err := s.users.UpdateFields(ctx, id, map[string]any{"reputation": reputation}); err != nil {
		return nil, err
	}
	return s.users.GetFresh(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	user, err := s.users.GetFresh(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return models.NewValidationError("Cannot delete admin users")
	}
	return s.users.Delete(ctx, id)
}
