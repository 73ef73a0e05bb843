package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultTagColor is applied when a tag is created without a color.
const DefaultTagColor = "#3b82f6"

// Tag labels questions and tracks how many live questions use it.
type Tag struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:20;uniqueIndex;not null" json:"name"`
	Description   string         `gorm:"size:500" json:"description"`
	Color         string         `gorm:"size:7;not null;default:'#3b82f6'" json:"color"`
	QuestionCount int            `gorm:"not null;default:0;index" json:"questionCount"`
	IsOfficial    bool           `gorm:"not null;default:false" json:"isOfficial"`
	CreatedByID   *uint          `gorm:"index" json:"createdById,omitempty"`
	CreatedBy     *User          `gorm:"foreignKey:CreatedByID" json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TagSort enumerates tag list orderings.
type TagSort string

const (
	TagSortName    TagSort = "name"
	TagSortPopular TagSort = "popular"
	TagSortNewest  TagSort = "newest"
)

// TagFilter narrows a tag listing.
type TagFilter struct {
	Page   int
	Limit  int
	Sort   TagSort
	Search string
}
