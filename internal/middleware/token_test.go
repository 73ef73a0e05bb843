package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"stackit/internal/config"
	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testTokenConfig() *config.Config {
	return &config.Config{JWTSecret: testSecret, JWTExpire: time.Hour}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager(testTokenConfig(), nil)

	token, issued, err := m.Issue(42, "ada")
	require.NoError(t, err)
	require.NotEmpty(t, issued.JTI)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestTokenManager_ParseErrors(t *testing.T) {
	m := NewTokenManager(testTokenConfig(), nil)

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": strconv.Itoa(7),
			"iss": "stackit-api",
			"aud": "stackit-client",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	t.Run("expired", func(t *testing.T) {
		c := base()
		c["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := m.Parse(sign(c, testSecret))
		assertCode(t, err, models.CodeTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := m.Parse(sign(base(), "another-secret"))
		assertCode(t, err, models.CodeInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := base()
		c["aud"] = "someone-else"
		_, err := m.Parse(sign(c, testSecret))
		assertCode(t, err, models.CodeInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		c := base()
		delete(c, "sub")
		_, err := m.Parse(sign(c, testSecret))
		assertCode(t, err, models.CodeInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-jwt")
		assertCode(t, err, models.CodeInvalidToken)
	})
}

func TestTokenManager_Revoke(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := NewTokenManager(testTokenConfig(), rdb)
	ctx := context.Background()

	_, claims, err := m.Issue(1, "ada")
	require.NoError(t, err)

	revoked, err := m.IsRevoked(ctx, claims.JTI)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, claims))
	revoked, err = m.IsRevoked(ctx, claims.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := mr.TTL("blacklist:" + claims.JTI)
	assert.True(t, ttl > 0 && ttl <= time.Hour)
}

func TestExtractToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(ExtractToken(c))
	})

	read := func(req *http.Request) string {
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		return string(buf[:n])
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", read(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", read(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "", read(req))
}
