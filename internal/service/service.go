// Package service holds the application logic that sits between the HTTP
// handlers and the repositories: validation, ownership checks and the side
// effects of each mutation.
package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"stackit/internal/models"
)

// NotificationEmitter accepts the notification events produced by mutations.
// Emit must not fail the caller.
type NotificationEmitter interface {
	Emit(ctx context.Context, ev models.NotificationEvent)
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, models.NotificationEvent) {}

func emitterOrNoop(e NotificationEmitter) NotificationEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}

// canModify reports whether actor owns the resource or is an admin.
func canModify(actor *models.User, ownerID uint) bool {
	return actor != nil && (actor.ID == ownerID || actor.IsAdmin())
}

func fieldError(field, message string) error {
	return models.NewFieldValidationError(message, []models.FieldError{{Field: field, Message: message}})
}

func lengthBetween(s string, minLen, maxLen int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= minLen && (maxLen <= 0 || n <= maxLen)
}

func uintPtr(v uint) *uint { return &v }
