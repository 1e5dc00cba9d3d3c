package model

import (
	"time"
)

const (
	MinReviewRating = 1
	MaxReviewRating = 5
)

// Review is one user's rating and comment on a story. At most one review exists per
// (user, story); the unique index turns a racing duplicate insert into a constraint error.
// Reviews are hard-deleted so the pair becomes free again.
type Review struct {
	ID      uint          `gorm:"primarykey" json:"id"`
	UserID  uint          `gorm:"not null;index:idx_review_user_story,unique" json:"user_id"`
	User    *Author       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	StoryID uint          `gorm:"not null;index:idx_review_user_story,unique;index" json:"story_id"`
	Story   *StorySummary `gorm:"foreignKey:StoryID" json:"story,omitempty"`
	Rating  int           `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment string        `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

func ValidRating(rating int) bool {
	return rating >= MinReviewRating && rating <= MaxReviewRating
}
