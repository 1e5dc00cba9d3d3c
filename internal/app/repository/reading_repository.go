package repository

import (
	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReadingRepository interface {
	WithTx(tx *gorm.DB) ReadingRepository

	ListProgress(userID uint) ([]model.ReadingProgress, error)
	FindProgress(userID, storyID, chapterID uint) (*model.ReadingProgress, error)
	SaveProgress(progress *model.ReadingProgress) error

	ListBookmarks(userID uint) ([]model.Bookmark, error)
	CreateBookmark(bookmark *model.Bookmark) error
	DeleteBookmark(userID, storyID uint) error

	DeleteByStory(storyID uint) error
}

type readingRepository struct {
	db *gorm.DB
}

func NewReadingRepository(db *gorm.DB) ReadingRepository {
	return &readingRepository{db: db}
}

func (r *readingRepository) WithTx(tx *gorm.DB) ReadingRepository {
	return &readingRepository{db: tx}
}

func (r *readingRepository) ListProgress(userID uint) ([]model.ReadingProgress, error) {
	progress := []model.ReadingProgress{}
	err := r.db.
		Preload("Story").
		Preload("Chapter").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&progress).Error
	if err != nil {
		logger.Error("Failed to list reading progress", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return progress, nil
}

func (r *readingRepository) FindProgress(userID, storyID, chapterID uint) (*model.ReadingProgress, error) {
	var progress model.ReadingProgress
	err := r.db.
		Where("user_id = ? AND story_id = ? AND chapter_id = ?", userID, storyID, chapterID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// SaveProgress inserts a new entry or overwrites an existing one by primary key.
func (r *readingRepository) SaveProgress(progress *model.ReadingProgress) error {
	if err := r.db.Omit("Story", "Chapter").Save(progress).Error; err != nil {
		logger.Error("Failed to save reading progress", err, map[string]interface{}{
			"user_id":    progress.UserID,
			"story_id":   progress.StoryID,
			"chapter_id": progress.ChapterID,
		})
		return err
	}
	return nil
}

func (r *readingRepository) ListBookmarks(userID uint) ([]model.Bookmark, error) {
	bookmarks := []model.Bookmark{}
	err := r.db.
		Preload("Story").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookmarks).Error
	return bookmarks, err
}

func (r *readingRepository) CreateBookmark(bookmark *model.Bookmark) error {
	return r.db.Omit("Story").Create(bookmark).Error
}

// DeleteBookmark returns gorm.ErrRecordNotFound when nothing was bookmarked.
func (r *readingRepository) DeleteBookmark(userID, storyID uint) error {
	result := r.db.Where("user_id = ? AND story_id = ?", userID, storyID).Delete(&model.Bookmark{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *readingRepository) DeleteByStory(storyID uint) error {
	if err := r.db.Where("story_id = ?", storyID).Delete(&model.ReadingProgress{}).Error; err != nil {
		return err
	}
	return r.db.Where("story_id = ?", storyID).Delete(&model.Bookmark{}).Error
}
