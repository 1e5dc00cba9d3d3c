package model

import (
	"time"

	"gorm.io/gorm"
)

type Chapter struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	StoryID       uint           `gorm:"not null;index:idx_chapters_story_number" json:"story_id"`
	Story         *StorySummary  `gorm:"foreignKey:StoryID" json:"story,omitempty"`
	Title         string         `gorm:"type:varchar(100);not null" json:"title"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	ChapterNumber int            `gorm:"not null;index:idx_chapters_story_number" json:"chapter_number"`
	Published     bool           `gorm:"default:false;index" json:"published"`
	Views         int64          `gorm:"default:0" json:"views"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// ChapterSummary is embedded in reading progress entries.
type ChapterSummary struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	ChapterNumber int    `json:"chapter_number"`
}

func (ChapterSummary) TableName() string {
	return "chapters"
}
