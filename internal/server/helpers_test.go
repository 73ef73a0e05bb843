package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stackit/internal/config"
	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	t.Parallel()
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"questionId", "question ID"},
		{"answerId", "answer ID"},
		{"commentId", "comment ID"},
		{"parentAnswerId", "parent answer ID"},
		{"username", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParsePage(t *testing.T) {
	t.Parallel()
	s := &Server{config: &config.Config{DefaultPageSize: 10, MaxPageSize: 50}}
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		return c.JSON(s.parsePage(c, 0))
	})
	app.Get("/notifications", func(c *fiber.Ctx) error {
		return c.JSON(s.parsePage(c, notificationPageSize))
	})

	tests := []struct {
		name      string
		target    string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "/items", 1, 10},
		{"custom", "/items?page=3&limit=25", 3, 25},
		{"clamped", "/items?limit=500", 1, 50},
		{"non positive", "/items?page=-2&limit=0", 1, 10},
		{"garbage", "/items?page=abc&limit=xyz", 1, 10},
		{"route default", "/notifications", 1, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var p Page
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
		})
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()
	s := &Server{config: &config.Config{}}
	app := fiber.New()
	app.Get("/questions/:questionId", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "questionId")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	t.Run("valid", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/questions/42", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]uint
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, uint(42), body["id"])
	})

	for _, raw := range []string{"abc", "0", "-3"} {
		t.Run("invalid "+raw, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/questions/"+raw, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, "Invalid question ID", body.Message)
			assert.Equal(t, models.CodeValidation, body.Code)
		})
	}
}

func TestQueryBool(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		v := queryBool(c, "answered")
		if v == nil {
			return c.SendString("nil")
		}
		if *v {
			return c.SendString("true")
		}
		return c.SendString("false")
	})

	for query, want := range map[string]string{
		"":                "nil",
		"?answered=true":  "true",
		"?answered=1":     "true",
		"?answered=FALSE": "false",
		"?answered=0":     "false",
		"?answered=maybe": "nil",
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+query, nil))
		require.NoError(t, err)
		buf := make([]byte, 8)
		n, _ := resp.Body.Read(buf)
		_ = resp.Body.Close()
		assert.Equal(t, want, string(buf[:n]), "query %q", query)
	}
}

func TestCapabilityMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Minimum reputation of 15 required to vote", capabilityMessage(models.CapabilityVote))
	assert.Equal(t, "Minimum reputation of 50 required to comment", capabilityMessage(models.CapabilityComment))
	assert.Equal(t, "Minimum reputation of 100 required to create tags", capabilityMessage(models.CapabilityCreateTags))
	assert.Equal(t, "Minimum reputation of 3000 or admin role required to close questions",
		capabilityMessage(models.CapabilityCloseQuestion))
}
