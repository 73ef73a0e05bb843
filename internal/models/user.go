// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is a user's authorization role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Reputation thresholds for gated capabilities.
const (
	ReputationToVote          = 15
	ReputationToComment       = 50
	ReputationToCreateTags    = 100
	ReputationToModerate      = 2000
	ReputationToCloseQuestion = 3000
)

// Capability names a reputation-gated action.
type Capability string

const (
	CapabilityVote          Capability = "vote"
	CapabilityComment       Capability = "comment"
	CapabilityCreateTags    Capability = "create_tags"
	CapabilityModerate      Capability = "moderate"
	CapabilityCloseQuestion Capability = "close_questions"
)

// User represents a registered StackIt account.
type User struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Username             string         `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email                string         `gorm:"uniqueIndex;not null" json:"email"`
	Password             string         `gorm:"not null" json:"-"`
	Role                 Role           `gorm:"size:10;not null;default:user" json:"role"`
	Reputation           int            `gorm:"not null;default:0;index" json:"reputation"`
	Bio                  string         `gorm:"size:500" json:"bio"`
	Avatar               string         `json:"avatar"`
	IsBanned             bool           `gorm:"not null;default:false" json:"isBanned"`
	LastActive           time.Time      `json:"lastActive"`
	EmailVerified        bool           `gorm:"not null;default:false" json:"emailVerified"`
	PasswordResetToken   string         `gorm:"index" json:"-"`
	PasswordResetExpires *time.Time     `json:"-"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Can reports whether the user's reputation or role unlocks the capability.
func (u *User) Can(capability Capability) bool {
	if u == nil {
		return false
	}
	switch capability {
	case CapabilityVote:
		return u.Reputation >= ReputationToVote
	case CapabilityComment:
		return u.Reputation >= ReputationToComment
	case CapabilityCreateTags:
		return u.Reputation >= ReputationToCreateTags
	case CapabilityModerate:
		return u.IsAdmin() || u.Reputation >= ReputationToModerate
	case CapabilityCloseQuestion:
		return u.IsAdmin() || u.Reputation >= ReputationToCloseQuestion
	}
	return false
}

// RequiredReputation returns the reputation threshold of a capability.
func RequiredReputation(capability Capability) int {
	switch capability {
	case CapabilityVote:
		return ReputationToVote
	case CapabilityComment:
		return ReputationToComment
	case CapabilityCreateTags:
		return ReputationToCreateTags
	case CapabilityModerate:
		return ReputationToModerate
	case CapabilityCloseQuestion:
		return ReputationToCloseQuestion
	}
	return 0
}

// UserSummary is the author shape embedded in questions, answers and comments.
type UserSummary struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	Reputation int    `json:"reputation"`
	Avatar     string `json:"avatar"`
}

// Summary projects the user onto its public author shape.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:         u.ID,
		Username:   u.Username,
		Reputation: u.Reputation,
		Avatar:     u.Avatar,
	}
}

// UserStats aggregates a user's activity.
type UserStats struct {
	QuestionCount       int64     `json:"questionCount"`
	AnswerCount         int64     `json:"answerCount"`
	AcceptedAnswerCount int64     `json:"acceptedAnswerCount"`
	TotalVotes          int64     `json:"totalVotes"`
	Reputation          int       `json:"reputation"`
	JoinDate            time.Time `json:"joinDate"`
	LastActive          time.Time `json:"lastActive"`
}

// PublicUser is the profile shape shown to other users. It omits the email.
type PublicUser struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Role       Role      `json:"role"`
	Reputation int       `json:"reputation"`
	Bio        string    `json:"bio"`
	Avatar     string    `json:"avatar"`
	LastActive time.Time `json:"lastActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Public projects the user onto its public profile shape.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Role:       u.Role,
		Reputation: u.Reputation,
		Bio:        u.Bio,
		Avatar:     u.Avatar,
		LastActive: u.LastActive,
		CreatedAt:  u.CreatedAt,
	}
}

// UserProfile is the payload of GET /api/users/:username.
type UserProfile struct {
	User      *PublicUser      `json:"user"`
	Questions []*Question      `json:"questions"`
	Answers   []*AnswerPreview `json:"answers"`
	Stats     ProfileStats     `json:"stats"`
}

// ProfileStats are the counters shown on a public profile.
type ProfileStats struct {
	QuestionCount int64 `json:"questionCount"`
	AnswerCount   int64 `json:"answerCount"`
	Reputation    int   `json:"reputation"`
}

// AnswerPreview is a recent answer with the title of its question.
type AnswerPreview struct {
	ID            uint      `json:"id"`
	QuestionID    uint      `json:"questionId"`
	QuestionTitle string    `json:"questionTitle"`
	IsAccepted    bool      `json:"isAccepted"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UserSort enumerates admin user list orderings.
type UserSort string

const (
	UserSortReputation UserSort = "reputation"
	UserSortNewest     UserSort = "newest"
	UserSortOldest     UserSort = "oldest"
	UserSortUsername   UserSort = "username"
)

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Page   int
	Limit  int
	Sort   UserSort
	Search string
	Role   Role
}
