package repository

import (
	"time"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) ReviewRepository

	Create(review *model.Review) error
	FindByID(id uint) (*model.Review, error)
	ExistsForUser(userID, storyID uint) (bool, error)
	ListByStory(storyID uint) ([]model.Review, error)
	ListByUser(userID uint) ([]model.Review, error)
	ListRatingsByStory(storyID uint) ([]int, error)
	Update(review *model.Review) error
	Delete(id uint) error
	DeleteByStory(storyID uint) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) WithTx(tx *gorm.DB) ReviewRepository {
	return &reviewRepository{db: tx}
}

func selectAuthorCard(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "avatar")
}

func (r *reviewRepository) Create(review *model.Review) error {
	logger.Debug("Creating review in database", map[string]interface{}{
		"user_id":  review.UserID,
		"story_id": review.StoryID,
		"rating":   review.Rating,
	})

	if err := r.db.Omit("User", "Story").Create(review).Error; err != nil {
		logger.Error("Failed to create review in database", err, map[string]interface{}{
			"user_id":  review.UserID,
			"story_id": review.StoryID,
		})
		return err
	}

	logger.Debug("Review created in database", map[string]interface{}{
		"review_id": review.ID,
	})
	return nil
}

func (r *reviewRepository) FindByID(id uint) (*model.Review, error) {
	var review model.Review
	err := r.db.Preload("User", selectAuthorCard).First(&review, id).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ExistsForUser(userID, storyID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Review{}).
		Where("user_id = ? AND story_id = ?", userID, storyID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByStory returns the story's reviews newest first, each with its author card.
func (r *reviewRepository) ListByStory(storyID uint) ([]model.Review, error) {
	reviews := []model.Review{}
	err := r.db.
		Preload("User", selectAuthorCard).
		Where("story_id = ?", storyID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&reviews).Error
	if err != nil {
		logger.Error("Failed to list reviews by story", err, map[string]interface{}{
			"story_id": storyID,
		})
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) ListByUser(userID uint) ([]model.Review, error) {
	reviews := []model.Review{}
	err := r.db.
		Preload("Story").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&reviews).Error
	if err != nil {
		logger.Error("Failed to list reviews by user", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) ListRatingsByStory(storyID uint) ([]int, error) {
	ratings := []int{}
	err := r.db.Model(&model.Review{}).
		Where("story_id = ?", storyID).
		Pluck("rating", &ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

// Update writes the mutable fields (rating, comment) of an existing review.
func (r *reviewRepository) Update(review *model.Review) error {
	review.UpdatedAt = time.Now()
	err := r.db.Model(&model.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]interface{}{
			"rating":     review.Rating,
			"comment":    review.Comment,
			"updated_at": review.UpdatedAt,
		}).Error
	if err != nil {
		logger.Error("Failed to update review in database", err, map[string]interface{}{
			"review_id": review.ID,
		})
		return err
	}
	return nil
}

func (r *reviewRepository) Delete(id uint) error {
	result := r.db.Delete(&model.Review{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete review from database", result.Error, map[string]interface{}{
			"review_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reviewRepository) DeleteByStory(storyID uint) error {
	return r.db.Where("story_id = ?", storyID).Delete(&model.Review{}).Error
}
