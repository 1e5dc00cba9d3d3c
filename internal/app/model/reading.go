package model

import "time"

const ProgressComplete = 100

// ReadingProgress tracks how far a user got in one chapter of a story.
type ReadingProgress struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	UserID    uint            `gorm:"not null;index:idx_progress_user_story_chapter,unique" json:"user_id"`
	StoryID   uint            `gorm:"not null;index:idx_progress_user_story_chapter,unique" json:"story_id"`
	Story     *StorySummary   `gorm:"foreignKey:StoryID" json:"story,omitempty"`
	ChapterID uint            `gorm:"not null;index:idx_progress_user_story_chapter,unique" json:"chapter_id"`
	Chapter   *ChapterSummary `gorm:"foreignKey:ChapterID" json:"chapter,omitempty"`
	Progress  float64         `gorm:"default:0" json:"progress"` // percentage 0-100
	Completed bool            `gorm:"default:false" json:"completed"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (ReadingProgress) TableName() string {
	return "reading_progress"
}

type Bookmark struct {
	ID        uint          `gorm:"primarykey" json:"id"`
	UserID    uint          `gorm:"not null;index:idx_bookmark_user_story,unique" json:"user_id"`
	StoryID   uint          `gorm:"not null;index:idx_bookmark_user_story,unique" json:"story_id"`
	Story     *StorySummary `gorm:"foreignKey:StoryID" json:"story,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}
