package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationQuestionAnswered NotificationType = "question_answered"
	NotificationAnswerVoted      NotificationType = "answer_voted"
	NotificationQuestionVoted    NotificationType = "question_voted"
	NotificationAnswerAccepted   NotificationType = "answer_accepted"
	NotificationCommentAdded     NotificationType = "comment_added"
	NotificationUserMentioned    NotificationType = "user_mentioned"
	NotificationAdminAction      NotificationType = "admin_action"
	NotificationSystemMessage    NotificationType = "system_message"
)

// NotificationTypes lists every valid type.
var NotificationTypes = []NotificationType{
	NotificationQuestionAnswered,
	NotificationAnswerVoted,
	NotificationQuestionVoted,
	NotificationAnswerAccepted,
	NotificationCommentAdded,
	NotificationUserMentioned,
	NotificationAdminAction,
	NotificationSystemMessage,
}

// IsValid reports whether t is a known type.
func (t NotificationType) IsValid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

const (
	MaxNotificationTitle   = 200
	MaxNotificationMessage = 1000
)

// NotificationData points at the entities a notification is about.
type NotificationData struct {
	QuestionID *uint  `json:"questionId,omitempty"`
	AnswerID   *uint  `json:"answerId,omitempty"`
	CommentID  *uint  `json:"commentId,omitempty"`
	UserID     *uint  `json:"userId,omitempty"`
	VoteType   string `json:"voteType,omitempty"`
	Action     string `json:"action,omitempty"`
}

// Notification is a message addressed to one user.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index:idx_notifications_recipient_read,priority:1" json:"recipientId"`
	Type        NotificationType `gorm:"size:30;not null;index" json:"type"`
	Title       string           `gorm:"size:200;not null" json:"title"`
	Message     string           `gorm:"size:1000;not null" json:"message"`
	Data        NotificationData `gorm:"type:jsonb;serializer:json" json:"data"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notifications_recipient_read,priority:2" json:"isRead"`
	ReadAt      *time.Time       `json:"readAt"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`

	URL *string `gorm:"-" json:"url"`
}

// Validate checks the fields a notification must carry before it is stored.
func (n *Notification) Validate() error {
	var fields []FieldError
	if n.RecipientID == 0 {
		fields = append(fields, FieldError{Field: "recipientId", Message: "recipient is required"})
	}
	if !n.Type.IsValid() {
		fields = append(fields, FieldError{Field: "type", Message: "invalid notification type"})
	}
	if strings.TrimSpace(n.Title) == "" {
		fields = append(fields, FieldError{Field: "title", Message: "title is required"})
	} else if len([]rune(n.Title)) > MaxNotificationTitle {
		fields = append(fields, FieldError{Field: "title", Message: "title cannot exceed 200 characters"})
	}
	if strings.TrimSpace(n.Message) == "" {
		fields = append(fields, FieldError{Field: "message", Message: "message is required"})
	} else if len([]rune(n.Message)) > MaxNotificationMessage {
		fields = append(fields, FieldError{Field: "message", Message: "message cannot exceed 1000 characters"})
	}
	if len(fields) > 0 {
		return NewFieldValidationError("Invalid notification", fields)
	}
	return nil
}

// ResolveURL returns the frontend link for the notification, or nil when the
// type has no target page.
func (n *Notification) ResolveURL() *string {
	var url string
	switch n.Type {
	case NotificationQuestionAnswered, NotificationQuestionVoted, NotificationCommentAdded:
		if n.Data.QuestionID == nil {
			return nil
		}
		url = fmt.Sprintf("/questions/%d", *n.Data.QuestionID)
	case NotificationAnswerVoted, NotificationAnswerAccepted:
		if n.Data.QuestionID == nil || n.Data.AnswerID == nil {
			return nil
		}
		url = fmt.Sprintf("/questions/%d#answer-%d", *n.Data.QuestionID, *n.Data.AnswerID)
	case NotificationUserMentioned:
		if n.Data.UserID == nil {
			return nil
		}
		url = fmt.Sprintf("/users/%d", *n.Data.UserID)
	default:
		return nil
	}
	return &url
}

// AfterFind fills the derived URL.
func (n *Notification) AfterFind(_ *gorm.DB) error {
	n.URL = n.ResolveURL()
	return nil
}

// NotificationFilter narrows a recipient's notification listing.
type NotificationFilter struct {
	Page       int
	Limit      int
	UnreadOnly bool
	Type       NotificationType
}

// NotificationEvent is what a mutation hands to the dispatcher.
type NotificationEvent struct {
	RecipientID uint
	Type        NotificationType
	Title       string
	Message     string
	Data        NotificationData
}

// Notification builds the unread row for the event.
func (e NotificationEvent) Notification() *Notification {
	return &Notification{
		RecipientID: e.RecipientID,
		Type:        e.Type,
		Title:       e.Title,
		Message:     e.Message,
		Data:        e.Data,
	}
}

// NotificationPurgeResult reports what a retention purge removed.
type NotificationPurgeResult struct {
	Deleted   int64     `json:"deleted"`
	OlderThan time.Time `json:"olderThan"`
}
