// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"stackit/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 30
	PasswordMinLength = 6
	TagNameMinLength  = 2
	TagNameMaxLength  = 20
)

var (
	usernameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	tagNameRegex   = regexp.MustCompile(`^[a-z0-9-]+$`)
	hexColor6Regex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("tagname", func(fl validator.FieldLevel) bool {
		return tagNameRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
		return hexColor6Regex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})
}

// Struct validates v against its `validate` tags. Failures come back as a
// VALIDATION_ERROR AppError listing every offending field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(err.Error())
	}
	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, models.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return models.NewFieldValidationError(fields[0].Message, fields)
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())
	isSlice := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		if isSlice {
			return fmt.Sprintf("At least one %s is required", singular(fe.Field()))
		}
		return fmt.Sprintf("%s is required", label)
	case "min":
		if isSlice {
			return fmt.Sprintf("At least %s %s required", fe.Param(), fe.Field())
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		if isSlice {
			return fmt.Sprintf("A maximum of %s %s is allowed", fe.Param(), fe.Field())
		}
		return fmt.Sprintf("%s cannot exceed %s characters", label, fe.Param())
	case "email":
		return "Please provide a valid email"
	case "url":
		return fmt.Sprintf("%s must be a valid URL", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "username":
		return "Username can only contain letters, numbers, and underscores"
	case "tagname":
		return "Tag name can only contain lowercase letters, numbers, and hyphens"
	case "hexcolor6":
		return "Color must be a valid hex color"
	case "strongpassword":
		return "Password must contain at least one lowercase letter, one uppercase letter, and one number"
	}
	return fmt.Sprintf("%s is invalid", label)
}

// humanize turns a camelCase field name into a sentence-case label.
func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func singular(field string) string {
	return strings.TrimSuffix(field, "s")
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len([]rune(password)) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters long", PasswordMinLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLower || !hasUpper || !hasDigit {
		return fmt.Errorf("password must contain at least one lowercase letter, one uppercase letter, and one number")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	n := len([]rune(username))
	if n < UsernameMinLength || n > UsernameMaxLength {
		return fmt.Errorf("username must be between %d and %d characters", UsernameMinLength, UsernameMaxLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, and underscores")
	}
	return nil
}

// NormalizeTagName trims and lower-cases a tag name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateTagName checks an already normalized tag name.
func ValidateTagName(name string) error {
	n := len([]rune(name))
	if n < TagNameMinLength || n > TagNameMaxLength {
		return fmt.Errorf("tag name must be between %d and %d characters", TagNameMinLength, TagNameMaxLength)
	}
	if !tagNameRegex.MatchString(name) {
		return fmt.Errorf("tag name can only contain lowercase letters, numbers, and hyphens")
	}
	return nil
}

// IsHexColor reports whether s is a #rrggbb color.
func IsHexColor(s string) bool {
	return hexColor6Regex.MatchString(s)
}
