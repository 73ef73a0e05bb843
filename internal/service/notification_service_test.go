package service

import (
	"context"
	"testing"
	"time"

	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownedNotifications(recipientID uint) *notificationRepoStub {
	get := func(_ context.Context, id uint) (*models.Notification, error) {
		return &models.Notification{ID: id, RecipientID: recipientID}, nil
	}
	return &notificationRepoStub{getFn: get, getDeletedFn: get}
}

func TestNotificationService_ReadState(t *testing.T) {
	t.Parallel()

	var gotRead []bool
	repo := ownedNotifications(1)
	repo.setReadFn = func(_ context.Context, _ uint, read bool, _ time.Time) error {
		gotRead = append(gotRead, read)
		return nil
	}
	pub := &countPublisher{}
	svc := NewNotificationService(repo, pub, 0)
	ctx := context.Background()

	_, err := svc.MarkRead(ctx, 2, 5)
	appErr := assertAppError(t, err, models.CodeForbidden)
	assert.Equal(t, "You can only mark your own notifications as read", appErr.Message)

	_, err = svc.MarkUnread(ctx, 2, 5)
	appErr = assertAppError(t, err, models.CodeForbidden)
	assert.Equal(t, "You can only mark your own notifications as unread", appErr.Message)

	_, err = svc.MarkRead(ctx, 1, 5)
	require.NoError(t, err)
	_, err = svc.MarkUnread(ctx, 1, 5)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, gotRead)
	assert.Equal(t, []uint{1, 1}, pub.recipients)
}

func TestNotificationService_BulkOperationsPublish(t *testing.T) {
	t.Parallel()

	repo := ownedNotifications(1)
	repo.markAllReadFn = func(context.Context, uint, time.Time) (int64, error) { return 3, nil }
	repo.deleteAllFn = func(context.Context, uint) (int64, error) { return 4, nil }
	pub := &countPublisher{}
	svc := NewNotificationService(repo, pub, 0)
	ctx := context.Background()

	n, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = svc.DeleteAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, svc.Delete(ctx, 1, 8))
	assert.Equal(t, []uint{1, 1, 1}, pub.recipients)
}

func TestNotificationService_Restore(t *testing.T) {
	t.Parallel()

	restored := uint(0)
	repo := ownedNotifications(1)
	repo.restoreFn = func(_ context.Context, id uint) error {
		restored = id
		return nil
	}
	svc := NewNotificationService(repo, nil, 0)

	_, err := svc.Restore(context.Background(), 2, 5)
	appErr := assertAppError(t, err, models.CodeForbidden)
	assert.Equal(t, "You can only restore your own notifications", appErr.Message)
	assert.Zero(t, restored)

	_, err = svc.Restore(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, uint(5), restored)
}

func TestNotificationService_Purge(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	var cutoff time.Time
	repo := &notificationRepoStub{
		purgeFn: func(_ context.Context, olderThan time.Time) (int64, error) {
			cutoff = olderThan
			return 6, nil
		},
	}
	svc := NewNotificationService(repo, nil, 0)
	svc.now = func() time.Time { return now }

	res, err := svc.Purge(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Deleted)
	assert.Equal(t, now.AddDate(0, 0, -30), cutoff)

	res, err = svc.Purge(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), res.OlderThan)
}

func TestNotificationService_ListValidatesType(t *testing.T) {
	t.Parallel()

	svc := NewNotificationService(&notificationRepoStub{}, nil, 0)

	_, _, err := svc.List(context.Background(), 1, models.NotificationFilter{Type: "party"})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Invalid notification type", appErr.Message)

	_, _, err = svc.List(context.Background(), 1, models.NotificationFilter{Type: models.NotificationAnswerVoted})
	assert.NoError(t, err)
}
