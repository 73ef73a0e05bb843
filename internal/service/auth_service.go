package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/observability"
	"stackit/internal/repository"
	"stackit/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenTTL = time.Hour
	maxBioLen     = 500
)

// TokenIssuer signs and revokes access tokens.
type TokenIssuer interface {
	Issue(userID uint, username string) (string, *middleware.Claims, error)
	Revoke(ctx context.Context, claims *middleware.Claims) error
}

type AuthService struct {
	users      repository.UserRepository
	tokens     TokenIssuer
	bcryptCost int
	now        func() time.Time
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,strongpassword"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type UpdateProfileInput struct {
	UserID uint
	Bio    *string
	Avatar *string
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Register")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err = validation.Struct(in); err != nil {
		return nil, err
	}

	var existing *models.User
	if existing, err = s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	}
	if existing == nil {
		if existing, err = s.users.GetByUsername(ctx, in.Username); err != nil {
			return nil, err
		}
	}
	if existing != nil {
		err = models.NewValidationError("User with this email or username already exists")
		return nil, err
	}

	var hashed string
	if hashed, err = HashPassword(in.Password, s.bcryptCost); err != nil {
		err = models.NewInternalError(err)
		return nil, err
	}
	user := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   hashed,
		Role:       models.RoleUser,
		LastActive: s.now(),
	}
	if err = s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	var res *AuthResult
	res, err = s.issue(user)
	return res, err
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if user.IsBanned {
		return nil, models.NewForbiddenError("Your account has been banned")
	}

	now := s.now()
	if err := s.users.TouchLastActive(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastActive = now
	return s.issue(user)
}

// Refresh issues a new token for user and revokes the one it was called with.
func (s *AuthService) Refresh(ctx context.Context, user *models.User, current *middleware.Claims) (*AuthResult, error) {
	res, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Revoke(ctx, current); err != nil {
		return nil, models.NewInternalError(err)
	}
	return res, nil
}

func (s *AuthService) Logout(ctx context.Context, current *middleware.Claims) error {
	if err := s.tokens.Revoke(ctx, current); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.users.GetFresh(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return fieldError("currentPassword", "Current password is incorrect")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return fieldError("newPassword", capitalize(err.Error()))
	}
	hashed, err := HashPassword(next, s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdateFields(ctx, userID, map[string]any{"password": hashed})
}

// ForgotPassword stores the digest of a fresh reset token and returns the raw
// token. Unknown emails yield an empty token and no error.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", models.NewInternalError(err)
	}
	token := hex.EncodeToString(raw)
	expires := s.now().Add(resetTokenTTL)
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"password_reset_token":   digestToken(token),
		"password_reset_expires": expires,
	}); err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fieldError("token", "Reset token is required")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fieldError("password", capitalize(err.Error()))
	}

	user, err := s.users.GetByResetToken(ctx, digestToken(token), s.now())
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewValidationError("Invalid or expired reset token")
	}
	hashed, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdateFields(ctx, user.ID, map[string]any{
		"password":               hashed,
		"password_reset_token":   "",
		"password_reset_expires": nil,
	})
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	fields := map[string]any{}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if utf8.RuneCountInString(bio) > maxBioLen {
			return nil, fieldError("bio", "Bio cannot exceed 500 characters")
		}
		fields["bio"] = bio
	}
	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		if avatar != "" && !isAvatarURL(avatar) {
			return nil, fieldError("avatar", "Avatar must be a valid URL")
		}
		fields["avatar"] = avatar
	}
	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, in.UserID, fields); err != nil {
			return nil, err
		}
	}
	return s.users.GetByID(ctx, in.UserID)
}

func isAvatarURL(s string) bool {
	if strings.HasPrefix(s, "/uploads/") {
		return true
	}
	u, err := url.ParseRequestURI(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
