package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"stackit/internal/middleware"
	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Secret123"

func newAuthService(users *userRepoStub, tokens *tokenStub) *AuthService {
	svc := NewAuthService(users, tokens)
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func storedUser(t *testing.T, id uint, password string) *models.User {
	t.Helper()
	hashed, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: id, Username: "ada", Email: "ada@example.com", Password: hashed, Role: models.RoleUser}
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	var created *models.User
	users := &userRepoStub{
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			created = u
			return nil
		},
	}
	tokens := &tokenStub{}

	res, err := newAuthService(users, tokens).Register(context.Background(), RegisterInput{
		Username: " ada ", Email: "ADA@Example.com", Password: testPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, "token-ada", res.Token)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte(testPassword)))
}

func TestAuthService_RegisterRejections(t *testing.T) {
	t.Parallel()

	taken := &userRepoStub{
		getByUsernameFn: func(_ context.Context, name string) (*models.User, error) {
			return &models.User{ID: 2, Username: name}, nil
		},
	}

	tests := []struct {
		name  string
		users *userRepoStub
		input RegisterInput
	}{
		{"bad email", &userRepoStub{}, RegisterInput{Username: "ada", Email: "nope", Password: testPassword}},
		{"short username", &userRepoStub{}, RegisterInput{Username: "ad", Email: "ada@example.com", Password: testPassword}},
		{"weak password", &userRepoStub{}, RegisterInput{Username: "ada", Email: "ada@example.com", Password: "secret"}},
		{"taken username", taken, RegisterInput{Username: "ada", Email: "ada@example.com", Password: testPassword}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := newAuthService(tc.users, &tokenStub{}).Register(context.Background(), tc.input)
			assertAppError(t, err, models.CodeValidation)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	user := storedUser(t, 1, testPassword)
	banned := storedUser(t, 2, testPassword)
	banned.IsBanned = true

	var touched uint
	users := &userRepoStub{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			switch email {
			case "ada@example.com":
				return user, nil
			case "banned@example.com":
				return banned, nil
			}
			return nil, nil
		},
		touchFn: func(_ context.Context, id uint, _ time.Time) error {
			touched = id
			return nil
		},
	}
	svc := newAuthService(users, &tokenStub{})
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{Email: " Ada@Example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "token-ada", res.Token)
	assert.Equal(t, uint(1), touched)

	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "Wrong1234"})
	appErr := assertAppError(t, err, models.CodeUnauthorized)
	assert.Equal(t, "Invalid credentials", appErr.Message)

	_, err = svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: testPassword})
	assertAppError(t, err, models.CodeUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "banned@example.com", Password: testPassword})
	assertAppError(t, err, models.CodeForbidden)
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	t.Parallel()

	tokens := &tokenStub{}
	svc := newAuthService(&userRepoStub{}, tokens)
	current := &middleware.Claims{UserID: 1, JTI: "old"}

	res, err := svc.Refresh(context.Background(), member(1, "ada"), current)
	require.NoError(t, err)
	assert.Equal(t, "token-ada", res.Token)
	require.NoError(t, svc.Logout(context.Background(), current))

	require.Len(t, tokens.revoked, 2)
	assert.Equal(t, "old", tokens.revoked[0].JTI)
}

func TestAuthService_ChangePassword(t *testing.T) {
	t.Parallel()

	var fields map[string]any
	users := &userRepoStub{
		getFreshFn: func(_ context.Context, id uint) (*models.User, error) {
			return storedUser(t, id, testPassword), nil
		},
		updateFieldsFn: func(_ context.Context, _ uint, f map[string]any) error {
			fields = f
			return nil
		},
	}
	svc := newAuthService(users, &tokenStub{})
	ctx := context.Background()

	err := svc.ChangePassword(ctx, 1, "Wrong1234", "NewSecret1")
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Current password is incorrect", appErr.Message)

	err = svc.ChangePassword(ctx, 1, testPassword, "weak")
	assertAppError(t, err, models.CodeValidation)

	require.NoError(t, svc.ChangePassword(ctx, 1, testPassword, "NewSecret1"))
	hashed, _ := fields["password"].(string)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("NewSecret1")))
}

func TestAuthService_PasswordReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stored := map[string]any{}
	users := &userRepoStub{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			if email == "ada@example.com" {
				return &models.User{ID: 1}, nil
			}
			return nil, nil
		},
		updateFieldsFn: func(_ context.Context, _ uint, f map[string]any) error {
			for k, v := range f {
				stored[k] = v
			}
			return nil
		},
		getByResetTokenFn: func(_ context.Context, hash string, at time.Time) (*models.User, error) {
			expires, _ := stored["password_reset_expires"].(time.Time)
			if hash != stored["password_reset_token"] || !at.Before(expires) {
				return nil, nil
			}
			return &models.User{ID: 1}, nil
		},
	}
	svc := newAuthService(users, &tokenStub{})
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	token, err := svc.ForgotPassword(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = svc.ForgotPassword(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, token, 64)
	sum := sha256.Sum256([]byte(token))
	assert.Equal(t, hex.EncodeToString(sum[:]), stored["password_reset_token"])
	assert.Equal(t, now.Add(time.Hour), stored["password_reset_expires"])

	err = svc.ResetPassword(ctx, "not-the-token", "NewSecret1")
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Invalid or expired reset token", appErr.Message)

	require.NoError(t, svc.ResetPassword(ctx, token, "NewSecret1"))
	assert.Equal(t, "", stored["password_reset_token"])
	assert.Nil(t, stored["password_reset_expires"])
}

func TestAuthService_UpdateProfile(t *testing.T) {
	t.Parallel()

	var fields map[string]any
	users := &userRepoStub{
		updateFieldsFn: func(_ context.Context, _ uint, f map[string]any) error {
			fields = f
			return nil
		},
	}
	svc := newAuthService(users, &tokenStub{})
	ctx := context.Background()
	bad := "javascript:alert(1)"
	good := "https://cdn.example.com/a.png"
	bio := "  Gopher  "

	_, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: 1, Avatar: &bad})
	assertAppError(t, err, models.CodeValidation)

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: 1, Avatar: &good, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"avatar": good, "bio": "Gopher"}, fields)
}
