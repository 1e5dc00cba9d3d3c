package model

import (
	"time"

	"gorm.io/gorm"
)

type StoryStatus string

const (
	StoryStatusOngoing   StoryStatus = "ongoing"
	StoryStatusCompleted StoryStatus = "completed"
	StoryStatusHiatus    StoryStatus = "hiatus"
)

// Column limits shared by the story service and the bulk importer.
const (
	StoryTitleMaxLength       = 100
	StoryDescriptionMinLength = 10
	StoryDescriptionMaxLength = 1000
)

func (s StoryStatus) Valid() bool {
	switch s {
	case StoryStatusOngoing, StoryStatusCompleted, StoryStatusHiatus:
		return true
	}
	return false
}

type Story struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	AuthorID    uint        `gorm:"not null;index" json:"author_id"`
	Author      *Author     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title       string      `gorm:"type:varchar(100);not null" json:"title"`
	Description string      `gorm:"type:text;not null" json:"description"`
	CoverImage  string      `json:"cover_image"`
	Genres      StringArray `gorm:"type:text" json:"genres"`
	Tags        StringArray `gorm:"type:text" json:"tags"`
	Status      StoryStatus `gorm:"type:varchar(20);default:'ongoing';index" json:"status"`
	Views       int64       `gorm:"default:0;index" json:"views"`
	LikeCount   int         `gorm:"default:0" json:"like_count"`

	// Liked is set per request when the viewer is known.
	Liked *bool `gorm:"-" json:"liked,omitempty"`

	// Materialised from the story's reviews by the rating aggregator; never written by story edits.
	Rating      float64 `gorm:"not null;default:0;check:chk_stories_rating,rating >= 0 AND rating <= 5" json:"rating"`
	ReviewCount int     `gorm:"not null;default:0;check:chk_stories_review_count,review_count >= 0" json:"review_count"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Story) TableName() string {
	return "stories"
}

// StorySummary is the compact story card embedded in reviews, bookmarks and reading progress.
type StorySummary struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	CoverImage string `json:"cover_image"`
	AuthorID   uint   `json:"author_id"`
}

func (StorySummary) TableName() string {
	return "stories"
}

// StoryLike records one user's like; the pair is unique.
type StoryLike struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	StoryID uint `gorm:"not null;index:idx_story_user_like,unique" json:"story_id"`
	UserID  uint `gorm:"not null;index:idx_story_user_like,unique" json:"user_id"`
}

func (StoryLike) TableName() string {
	return "story_likes"
}
