package models

import (
	"time"

	"gorm.io/gorm"
)

// Answer is a response to a question.
type Answer struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	QuestionID uint            `gorm:"not null;index" json:"questionId"`
	AuthorID   uint            `gorm:"not null;index" json:"authorId"`
	Author     *User           `gorm:"foreignKey:AuthorID" json:"-"`
	IsAccepted bool            `gorm:"not null;default:false;index" json:"isAccepted"`
	Comments   []AnswerComment `gorm:"foreignKey:AnswerID" json:"comments"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`

	AuthorInfo *UserSummary `gorm:"-" json:"author,omitempty"`
	VoteCount  int          `gorm:"-" json:"voteCount"`
	UserVote   *VoteType    `gorm:"-" json:"userVote"`
}

// IsAuthor reports whether userID wrote the answer.
func (a *Answer) IsAuthor(userID uint) bool {
	return a != nil && a.AuthorID == userID
}

// AnswerComment is a short remark attached to an answer. Comments are removed
// outright rather than soft deleted.
type AnswerComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AnswerID  uint      `gorm:"not null;index" json:"answerId"`
	AuthorID  uint      `gorm:"not null;index" json:"authorId"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"-"`
	Content   string    `gorm:"size:1000;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`

	AuthorInfo *UserSummary `gorm:"-" json:"author,omitempty"`
}

// AnswerSort enumerates answer list orderings.
type AnswerSort string

const (
	AnswerSortVotes  AnswerSort = "votes"
	AnswerSortNewest AnswerSort = "newest"
	AnswerSortOldest AnswerSort = "oldest"
)
