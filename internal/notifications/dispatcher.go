package notifications

import (
	"context"
	"log/slog"

	"stackit/internal/featureflags"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Store persists notifications and answers the live unread count.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
}

// Publisher delivers realtime events to a user.
type Publisher interface {
	PublishEvent(ctx context.Context, userID uint, ev Event) error
}

// FlagChecker reports whether a feature flag is on for a user.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

// Dispatcher writes a notification row for each event and then pushes it to
// the recipient's channel. Nothing it does can fail the caller: the mutation
// that produced the event has already committed.
type Dispatcher struct {
	store     Store
	publisher Publisher
	flags     FlagChecker
}

// NewDispatcher builds a Dispatcher. publisher and flags may be nil; without a
// publisher events are only persisted.
func NewDispatcher(store Store, publisher Publisher, flags FlagChecker) *Dispatcher {
	return &Dispatcher{store: store, publisher: publisher, flags: flags}
}

// Emit persists and publishes ev. Failures are logged and counted.
func (d *Dispatcher) Emit(ctx context.Context, ev models.NotificationEvent) {
	ctx, span := observability.StartServiceSpan(ctx, "NotificationDispatcher", "Emit",
		attribute.String("notification.type", string(ev.Type)),
		attribute.Int64("notification.recipient_id", int64(ev.RecipientID)),
	)
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	n := ev.Notification()
	if err := n.Validate(); err != nil {
		spanErr = err
		d.fail(ctx, "validate", ev, err)
		return
	}
	if err := d.store.Create(ctx, n); err != nil {
		spanErr = err
		d.fail(ctx, "persist", ev, err)
		return
	}
	observability.NotificationsEmitted.WithLabelValues(string(n.Type)).Inc()
	n.URL = n.ResolveURL()

	if !d.realtime(n.RecipientID) {
		return
	}
	if err := d.publisher.PublishEvent(ctx, n.RecipientID, Event{Type: EventNotificationCreated, Payload: n}); err != nil {
		spanErr = err
		d.fail(ctx, "publish", ev, err)
		return
	}
	d.PublishUnreadCount(ctx, n.RecipientID)
}

// PublishUnreadCount pushes the recipient's live unread count.
func (d *Dispatcher) PublishUnreadCount(ctx context.Context, recipientID uint) {
	if !d.realtime(recipientID) {
		return
	}
	count, err := d.store.CountUnread(ctx, recipientID)
	if err != nil {
		d.fail(ctx, "count", models.NotificationEvent{RecipientID: recipientID}, err)
		return
	}
	if err := d.publisher.PublishEvent(ctx, recipientID, Event{
		Type:    EventUnreadCount,
		Payload: map[string]int64{"count": count},
	}); err != nil {
		d.fail(ctx, "publish", models.NotificationEvent{RecipientID: recipientID}, err)
	}
}

func (d *Dispatcher) realtime(userID uint) bool {
	if d.publisher == nil {
		return false
	}
	return d.flags == nil || d.flags.Enabled(featureflags.RealtimeNotifications, userID)
}

func (d *Dispatcher) fail(ctx context.Context, stage string, ev models.NotificationEvent, err error) {
	observability.NotificationFailures.WithLabelValues(stage).Inc()
	middleware.Logger.WarnContext(ctx, "notification dispatch failed",
		slog.String("stage", stage),
		slog.String("type", string(ev.Type)),
		slog.Uint64("recipient_id", uint64(ev.RecipientID)),
		slog.String("error", err.Error()),
	)
}
