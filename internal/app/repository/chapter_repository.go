package repository

import (
	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"gorm.io/gorm"
)

type ChapterRepository interface {
	WithTx(tx *gorm.DB) ChapterRepository

	Create(chapter *model.Chapter) error
	FindByID(id uint) (*model.Chapter, error)
	ListPublishedByStory(storyID uint) ([]model.Chapter, error)
	MaxChapterNumber(storyID uint) (int, error)
	Update(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	DeleteByStory(storyID uint) error
	IncrementViews(id uint) error
}

type chapterRepository struct {
	db *gorm.DB
}

func NewChapterRepository(db *gorm.DB) ChapterRepository {
	return &chapterRepository{db: db}
}

func (r *chapterRepository) WithTx(tx *gorm.DB) ChapterRepository {
	return &chapterRepository{db: tx}
}

func (r *chapterRepository) Create(chapter *model.Chapter) error {
	logger.Debug("Creating chapter in database", map[string]interface{}{
		"story_id":       chapter.StoryID,
		"chapter_number": chapter.ChapterNumber,
	})

	if err := r.db.Omit("Story").Create(chapter).Error; err != nil {
		logger.Error("Failed to create chapter in database", err, map[string]interface{}{
			"story_id": chapter.StoryID,
		})
		return err
	}
	return nil
}

func (r *chapterRepository) FindByID(id uint) (*model.Chapter, error) {
	var chapter model.Chapter
	if err := r.db.Preload("Story").First(&chapter, id).Error; err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (r *chapterRepository) ListPublishedByStory(storyID uint) ([]model.Chapter, error) {
	chapters := []model.Chapter{}
	err := r.db.
		Where("story_id = ? AND published = ?", storyID, true).
		Order("chapter_number ASC").
		Find(&chapters).Error
	if err != nil {
		logger.Error("Failed to list published chapters", err, map[string]interface{}{
			"story_id": storyID,
		})
		return nil, err
	}
	return chapters, nil
}

// MaxChapterNumber returns 0 when the story has no chapters yet.
func (r *chapterRepository) MaxChapterNumber(storyID uint) (int, error) {
	var highest int
	err := r.db.Model(&model.Chapter{}).
		Where("story_id = ?", storyID).
		Select("COALESCE(MAX(chapter_number), 0)").
		Scan(&highest).Error
	return highest, err
}

func (r *chapterRepository) Update(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.Model(&model.Chapter{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		logger.Error("Failed to update chapter in database", err, map[string]interface{}{
			"chapter_id": id,
		})
		return err
	}
	return nil
}

func (r *chapterRepository) Delete(id uint) error {
	result := r.db.Delete(&model.Chapter{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *chapterRepository) DeleteByStory(storyID uint) error {
	return r.db.Where("story_id = ?", storyID).Delete(&model.Chapter{}).Error
}

func (r *chapterRepository) IncrementViews(id uint) error {
	return r.db.Model(&model.Chapter{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}
