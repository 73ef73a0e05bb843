package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stackit/internal/config"
	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenCookieName is the cookie the token may be carried in instead of the Authorization header.
const TokenCookieName = "token"

// Claims is the validated content of an access token.
type Claims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// TokenManager issues, parses and revokes HS256 access tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	redis    *redis.Client
	now      func() time.Time
}

// NewTokenManager builds a TokenManager from configuration. rdb may be nil,
// in which case revocation is not enforced.
func NewTokenManager(cfg *config.Config, rdb *redis.Client) *TokenManager {
	ttl := cfg.JWTExpire
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	issuer, audience := cfg.JWTIssuer, cfg.JWTAudience
	if issuer == "" {
		issuer = "stackit-api"
	}
	if audience == "" {
		audience = "stackit-client"
	}
	return &TokenManager{
		secret:   []byte(cfg.JWTSecret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		redis:    rdb,
		now:      time.Now,
	}
}

// TTL is the lifetime of newly issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new token for the user.
func (m *TokenManager) Issue(userID uint, username string) (string, *Claims, error) {
	if len(m.secret) == 0 {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := m.now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		JTI:       generateJTI(now),
		ExpiresAt: now.Add(m.ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      m.issuer,
		"aud":      m.audience,
		"exp":      claims.ExpiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      claims.JTI,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func generateJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String())
}

// Parse validates the token and returns its claims. Expired tokens fail with
// TOKEN_EXPIRED, every other failure with INVALID_TOKEN.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.NewTokenExpiredError()
		}
		return nil, models.NewInvalidTokenError()
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewInvalidTokenError()
	}
	sub, ok := mc["sub"].(string)
	if !ok {
		return nil, models.NewInvalidTokenError()
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, models.NewInvalidTokenError()
	}

	claims := &Claims{UserID: uint(userID)}
	claims.Username, _ = mc["username"].(string)
	claims.JTI, _ = mc["jti"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

func revocationKey(jti string) string {
	return "blacklist:" + jti
}

// Revoke blacklists the token's jti until the token would have expired anyway.
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.redis == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.redis.Set(ctx, revocationKey(claims.JTI), "1", ttl).Err()
}

// IsRevoked reports whether jti has been blacklisted.
func (m *TokenManager) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.redis == nil || jti == "" {
		return false, nil
	}
	n, err := m.redis.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExtractToken reads the token from "Authorization: Bearer <token>" or, failing that, the token cookie.
func ExtractToken(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(TokenCookieName)
}
