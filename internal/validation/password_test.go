package validation

import (
	"errors"
	"strings"
	"testing"

	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "Secret1", false},
		{"Exactly Min Length", "Abcde1", false},
		{"Too Short", "Ab1", true},
		{"No Upper", "secret12", true},
		{"No Lower", "SECRET12", true},
		{"No Digit", "SecretPass", true},
		{"Unicode Characters", "Ångstrom9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Too Short", "tu", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Max Length", strings.Repeat("a", 30), false},
		{"Hyphen", "test-user", true},
		{"Space", "test user", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTagName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "golang", NormalizeTagName("  GoLang "))
	assert.NoError(t, ValidateTagName("go-1"))
	assert.Error(t, ValidateTagName("g"))
	assert.Error(t, ValidateTagName("has space"))
	assert.Error(t, ValidateTagName("Upper"))
	assert.Error(t, ValidateTagName(strings.Repeat("a", 21)))
	assert.True(t, IsHexColor("#A1b2C3"))
	assert.False(t, IsHexColor("#abc"))
}

type signupForm struct {
	Username string   `json:"username" validate:"required,min=3,max=30,username"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,strongpassword"`
	Color    string   `json:"color" validate:"omitempty,hexcolor6"`
	Tags     []string `json:"tags" validate:"required,min=1,max=5,dive,tagname"`
}

func TestStruct(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		err := Struct(signupForm{Username: "ada_l", Email: "ada@example.com", Password: "Secret1", Tags: []string{"go"}})
		assert.NoError(t, err)
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := Struct(signupForm{Username: "a!", Email: "nope", Password: "weak", Color: "red", Tags: []string{"Bad Tag"}})
		require.Error(t, err)

		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, models.CodeValidation, appErr.Code)

		byField := map[string]string{}
		for _, f := range appErr.Fields {
			byField[f.Field] = f.Message
		}
		assert.Contains(t, byField, "username")
		assert.Equal(t, "Please provide a valid email", byField["email"])
		assert.Contains(t, byField["password"], "uppercase")
		assert.Equal(t, "Color must be a valid hex color", byField["color"])
		assert.Contains(t, byField, "tags[0]")
	})

	t.Run("empty tag list", func(t *testing.T) {
		err := Struct(signupForm{Username: "ada_l", Email: "ada@example.com", Password: "Secret1", Tags: []string{}})
		require.Error(t, err)
		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "tags", appErr.Fields[0].Field)
	})
}
