package service

import (
	"context"
	"time"

	"stackit/internal/models"
	"stackit/internal/observability"
	"stackit/internal/repository"
)

// UnreadCountPublisher pushes a user's live unread count after read-state changes.
type UnreadCountPublisher interface {
	PublishUnreadCount(ctx context.Context, recipientID uint)
}

type NotificationService struct {
	repo          repository.NotificationRepository
	publisher     UnreadCountPublisher
	retentionDays int
	now           func() time.Time
}

// NewNotificationService builds the service. publisher may be nil.
func NewNotificationService(repo repository.NotificationRepository, publisher UnreadCountPublisher, retentionDays int) *NotificationService {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &NotificationService{
		repo:          repo,
		publisher:     publisher,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, filter models.NotificationFilter) ([]models.Notification, int64, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, 0, fieldError("type", "Invalid notification type")
	}
	return s.repo.List(ctx, userID, filter)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*models.Notification, error) {
	return s.setRead(ctx, userID, id, true)
}

func (s *NotificationService) MarkUnread(ctx context.Context, userID, id uint) (*models.Notification, error) {
	return s.setRead(ctx, userID, id, false)
}

func (s *NotificationService) setRead(ctx context.Context, userID, id uint, read bool) (*models.Notification, error) {
	denied := "You can only mark your own notifications as read"
	if !read {
		denied = "You can only mark your own notifications as unread"
	}
	n, err := s.owned(ctx, userID, id, denied)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRead(ctx, id, read, s.now()); err != nil {
		return nil, err
	}
	s.publishCount(ctx, userID)
	return s.repo.Get(ctx, n.ID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	s.publishCount(ctx, userID)
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id, "You can only delete your own notifications"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publishCount(ctx, userID)
	return nil
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.publishCount(ctx, userID)
	return n, nil
}

// Restore brings back one of the user's soft-deleted notifications.
func (s *NotificationService) Restore(ctx context.Context, userID, id uint) (*models.Notification, error) {
	n, err := s.repo.GetIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, models.NewForbiddenError("You can only restore your own notifications")
	}
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, err
	}
	s.publishCount(ctx, userID)
	return s.repo.Get(ctx, id)
}

// Purge hard deletes read notifications older than days. Zero or less uses
// the configured retention.
func (s *NotificationService) Purge(ctx context.Context, days int) (*models.NotificationPurgeResult, error) {
	if days <= 0 {
		days = s.retentionDays
	}
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.repo.PurgeRead(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	observability.NotificationsPurged.Add(float64(n))
	return &models.NotificationPurgeResult{Deleted: n, OlderThan: cutoff}, nil
}

func (s *NotificationService) owned(ctx context.Context, userID, id uint, denied string) (*models.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, models.NewForbiddenError(denied)
	}
	return n, nil
}

func (s *NotificationService) publishCount(ctx context.Context, userID uint) {
	if s.publisher != nil {
		s.publisher.PublishUnreadCount(ctx, userID)
	}
}
