package service

import (
	"context"
	"testing"

	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersWith(list ...*models.User) (*userRepoStub, map[uint]map[string]any) {
	byID := make(map[uint]*models.User, len(list))
	for _, u := range list {
		byID[u.ID] = u
	}
	updates := map[uint]map[string]any{}
	return &userRepoStub{
		getFreshFn: func(_ context.Context, id uint) (*models.User, error) {
			u, ok := byID[id]
			if !ok {
				return nil, models.NewNotFoundError("User", id)
			}
			cp := *u
			return &cp, nil
		},
		getByUsernameFn: func(_ context.Context, name string) (*models.User, error) {
			for _, u := range byID {
				if u.Username == name {
					return u, nil
				}
			}
			return nil, nil
		},
		updateFieldsFn: func(_ context.Context, id uint, f map[string]any) error {
			updates[id] = f
			return nil
		},
	}, updates
}

func TestUserService_SetBanned(t *testing.T) {
	t.Parallel()

	users, updates := usersWith(member(1, "ada"), admin(2))
	svc := NewUserService(users)
	ctx := context.Background()

	u, err := svc.SetBanned(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, u.IsBanned)
	assert.Equal(t, map[string]any{"is_banned": true}, updates[1])

	no := false
	u, err = svc.SetBanned(ctx, 1, &no)
	require.NoError(t, err)
	assert.False(t, u.IsBanned)

	_, err = svc.SetBanned(ctx, 2, nil)
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Cannot ban admin users", appErr.Message)
	_, touched := updates[2]
	assert.False(t, touched)
}

func TestUserService_SetRoleAndReputation(t *testing.T) {
	t.Parallel()

	users, updates := usersWith(member(1, "ada"))
	svc := NewUserService(users)
	ctx := context.Background()

	_, err := svc.SetRole(ctx, 1, "owner")
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Invalid role. Must be user or admin", appErr.Message)

	_, err = svc.SetRole(ctx, 1, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updates[1]["role"])

	_, err = svc.SetReputation(ctx, 1, -5)
	assertAppError(t, err, models.CodeValidation)

	_, err = svc.SetReputation(ctx, 1, 150)
	require.NoError(t, err)
	assert.Equal(t, 150, updates[1]["reputation"])
}

func TestUserService_Delete(t *testing.T) {
	t.Parallel()

	users, _ := usersWith(member(1, "ada"), admin(2))
	var deleted []uint
	users.deleteFn = func(_ context.Context, id uint) error {
		deleted = append(deleted, id)
		return nil
	}
	svc := NewUserService(users)
	ctx := context.Background()

	err := svc.Delete(ctx, 2)
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Cannot delete admin users", appErr.Message)

	require.NoError(t, svc.Delete(ctx, 1))
	assertAppError(t, svc.Delete(ctx, 3), models.CodeNotFound)
	assert.Equal(t, []uint{1}, deleted)
}

func TestUserService_Profile(t *testing.T) {
	t.Parallel()

	users, _ := usersWith(member(1, "ada"))
	svc := NewUserService(users)

	profile, err := svc.Profile(context.Background(), "ada", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "ada", profile.User.Username)

	_, err = svc.Profile(context.Background(), "ghost", 1, 10)
	appErr := assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, "User not found", appErr.Message)
}

func TestUserService_ListValidation(t *testing.T) {
	t.Parallel()

	svc := NewUserService(&userRepoStub{})
	ctx := context.Background()

	_, _, err := svc.List(ctx, models.UserFilter{Sort: "karma"})
	assertAppError(t, err, models.CodeValidation)

	_, _, err = svc.List(ctx, models.UserFilter{Role: "owner"})
	assertAppError(t, err, models.CodeValidation)

	_, _, err = svc.List(ctx, models.UserFilter{Sort: models.UserSortUsername, Role: models.RoleAdmin})
	assert.NoError(t, err)
}
