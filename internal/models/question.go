package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxQuestionTags bounds the number of tags a question may carry.
const MaxQuestionTags = 5

// Question is a titled problem statement that collects answers and votes.
type Question struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Title            string         `gorm:"size:200;not null" json:"title"`
	Description      string         `gorm:"type:text;not null" json:"description"`
	AuthorID         uint           `gorm:"not null;index" json:"authorId"`
	Author           *User          `gorm:"foreignKey:AuthorID" json:"-"`
	Tags             []Tag          `gorm:"many2many:question_tags;" json:"tags"`
	AcceptedAnswerID *uint          `gorm:"index" json:"acceptedAnswerId"`
	IsClosed         bool           `gorm:"not null;default:false" json:"isClosed"`
	Views            int            `gorm:"not null;default:0" json:"views"`
	LastActivity     time.Time      `gorm:"index" json:"lastActivity"`
	CreatedAt        time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Read-side fields filled in by the repository.
	AuthorInfo  *UserSummary `gorm:"-" json:"author,omitempty"`
	VoteCount   int          `gorm:"-" json:"voteCount"`
	AnswerCount int          `gorm:"-" json:"answerCount"`
	UserVote    *VoteType    `gorm:"-" json:"userVote"`
}

// IsAuthor reports whether userID wrote the question.
func (q *Question) IsAuthor(userID uint) bool {
	return q != nil && q.AuthorID == userID
}

// TagIDs lists the IDs of the attached tags.
func (q *Question) TagIDs() []uint {
	ids := make([]uint, 0, len(q.Tags))
	for _, t := range q.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// QuestionSort enumerates the list orderings.
type QuestionSort string

const (
	QuestionSortNewest   QuestionSort = "newest"
	QuestionSortOldest   QuestionSort = "oldest"
	QuestionSortVotes    QuestionSort = "votes"
	QuestionSortViews    QuestionSort = "views"
	QuestionSortActivity QuestionSort = "activity"
)

// IsValid reports whether s is a known ordering.
func (s QuestionSort) IsValid() bool {
	switch s {
	case QuestionSortNewest, QuestionSortOldest, QuestionSortVotes, QuestionSortViews, QuestionSortActivity:
		return true
	}
	return false
}

// QuestionFilter narrows a question listing.
type QuestionFilter struct {
	Page     int
	Limit    int
	Sort     QuestionSort
	Tag      string
	Search   string
	Author   string
	Answered *bool
	// ViewerID is used to fill UserVote; zero means anonymous.
	ViewerID uint
}

// Offset is the number of rows skipped for the requested page.
func (f QuestionFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// QuestionDetail is the payload of a single-question read.
type QuestionDetail struct {
	Question *Question `json:"question"`
	Answers  []*Answer `json:"answers"`
}
