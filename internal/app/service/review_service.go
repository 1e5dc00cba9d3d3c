package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/internal/metrics"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"gorm.io/gorm"
)

const maxReviewCommentLength = 1000

var (
	ErrReviewNotFound      = errors.New("review not found")
	ErrReviewAlreadyExists = errors.New("you have already reviewed this story")
	ErrReviewForbidden     = errors.New("not authorized to modify this review")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrReviewCommentLength = errors.New("comment must be at most 1000 characters")
)

type CreateReviewInput struct {
	Rating  int
	Comment string
}

// UpdateReviewInput distinguishes absent fields (nil) from present ones.
type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

type ReviewService interface {
	GetStoryReviews(storyID uint) ([]model.Review, error)
	CreateReview(userID, storyID uint, input CreateReviewInput) (*model.Review, error)
	UpdateReview(reviewID, userID uint, input UpdateReviewInput) (*model.Review, error)
	DeleteReview(reviewID, userID uint) error
	GetUserReviews(userID uint) ([]model.Review, error)
}

type reviewService struct {
	db         *gorm.DB
	reviewRepo repository.ReviewRepository
	storyRepo  repository.StoryRepository
	aggregator RatingAggregator
}

func NewReviewService(
	db *gorm.DB,
	reviewRepo repository.ReviewRepository,
	storyRepo repository.StoryRepository,
	aggregator RatingAggregator,
) ReviewService {
	return &reviewService{
		db:         db,
		reviewRepo: reviewRepo,
		storyRepo:  storyRepo,
		aggregator: aggregator,
	}
}

// isUniqueViolation covers drivers that do not translate constraint errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// lockStory serialises review writes per story so each recompute sees every committed review.
func lockStory(stories repository.StoryRepository, storyID uint) error {
	if err := stories.LockByID(storyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStoryNotFound
		}
		return fmt.Errorf("lock story: %w", err)
	}
	return nil
}

// recordRecompute counts a transactional recompute once its outcome is final.
func recordRecompute(attempted bool, err error) {
	if attempted {
		metrics.RecordRecompute(err)
	}
}

func validateComment(comment string) error {
	if utf8.RuneCountInString(comment) > maxReviewCommentLength {
		return ErrReviewCommentLength
	}
	return nil
}

func (s *reviewService) GetStoryReviews(storyID uint) ([]model.Review, error) {
	exists, err := s.storyRepo.Exists(storyID)
	if err != nil {
		return nil, fmt.Errorf("check story: %w", err)
	}
	if !exists {
		return nil, ErrStoryNotFound
	}
	return s.reviewRepo.ListByStory(storyID)
}

func (s *reviewService) CreateReview(userID, storyID uint, input CreateReviewInput) (*model.Review, error) {
	logger.Info("Creating review", map[string]interface{}{
		"user_id":  userID,
		"story_id": storyID,
		"rating":   input.Rating,
	})

	if !model.ValidRating(input.Rating) {
		return nil, ErrInvalidRating
	}
	comment := strings.TrimSpace(input.Comment)
	if err := validateComment(comment); err != nil {
		return nil, err
	}

	review := &model.Review{
		UserID:  userID,
		StoryID: storyID,
		Rating:  input.Rating,
		Comment: comment,
	}

	recomputed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockStory(s.storyRepo.WithTx(tx), storyID); err != nil {
			return err
		}

		reviews := s.reviewRepo.WithTx(tx)
		already, err := reviews.ExistsForUser(userID, storyID)
		if err != nil {
			return fmt.Errorf("check existing review: %w", err)
		}
		if already {
			return ErrReviewAlreadyExists
		}

		if err := reviews.Create(review); err != nil {
			// a concurrent insert can still win the race past the check above
			if isUniqueViolation(err) {
				return ErrReviewAlreadyExists
			}
			return fmt.Errorf("create review: %w", err)
		}

		recomputed = true
		_, err = s.aggregator.WithTx(tx).RecomputeAggregate(storyID)
		return err
	})
	recordRecompute(recomputed, err)
	if err != nil {
		if errors.Is(err, ErrReviewAlreadyExists) || errors.Is(err, ErrStoryNotFound) {
			logger.Warn("Review creation rejected", map[string]interface{}{
				"user_id":  userID,
				"story_id": storyID,
				"reason":   err.Error(),
			})
		} else {
			logger.Error("Failed to create review", err, map[string]interface{}{
				"user_id":  userID,
				"story_id": storyID,
			})
		}
		return nil, err
	}

	logger.Info("Review created", map[string]interface{}{
		"review_id": review.ID,
		"story_id":  storyID,
	})
	return s.reload(review)
}

func (s *reviewService) UpdateReview(reviewID, userID uint, input UpdateReviewInput) (*model.Review, error) {
	if input.Rating != nil && !model.ValidRating(*input.Rating) {
		return nil, ErrInvalidRating
	}
	var comment *string
	if input.Comment != nil {
		trimmed := strings.TrimSpace(*input.Comment)
		if err := validateComment(trimmed); err != nil {
			return nil, err
		}
		comment = &trimmed
	}

	var review *model.Review
	recomputed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reviews := s.reviewRepo.WithTx(tx)

		owned, err := s.findOwned(reviews, reviewID, userID)
		if err != nil {
			return err
		}
		if err := lockStory(s.storyRepo.WithTx(tx), owned.StoryID); err != nil {
			return err
		}
		// re-read under the story lock so a concurrent edit is not overwritten
		review, err = s.findOwned(reviews, reviewID, userID)
		if err != nil {
			return err
		}

		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if comment != nil {
			review.Comment = *comment
		}

		if err := reviews.Update(review); err != nil {
			return fmt.Errorf("update review: %w", err)
		}

		recomputed = true
		_, err = s.aggregator.WithTx(tx).RecomputeAggregate(review.StoryID)
		return err
	})
	recordRecompute(recomputed, err)
	if err != nil {
		return nil, err
	}

	logger.Info("Review updated", map[string]interface{}{
		"review_id": reviewID,
		"user_id":   userID,
	})
	return s.reload(review)
}

func (s *reviewService) DeleteReview(reviewID, userID uint) error {
	recomputed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reviews := s.reviewRepo.WithTx(tx)

		review, err := s.findOwned(reviews, reviewID, userID)
		if err != nil {
			return err
		}
		if err := lockStory(s.storyRepo.WithTx(tx), review.StoryID); err != nil {
			return err
		}

		if err := reviews.Delete(review.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("delete review: %w", err)
		}

		recomputed = true
		_, err = s.aggregator.WithTx(tx).RecomputeAggregate(review.StoryID)
		return err
	})
	recordRecompute(recomputed, err)
	if err != nil {
		return err
	}

	logger.Info("Review deleted", map[string]interface{}{
		"review_id": reviewID,
		"user_id":   userID,
	})
	return nil
}

func (s *reviewService) GetUserReviews(userID uint) ([]model.Review, error) {
	return s.reviewRepo.ListByUser(userID)
}

func (s *reviewService) findOwned(reviews repository.ReviewRepository, reviewID, userID uint) (*model.Review, error) {
	review, err := reviews.FindByID(reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	if review.UserID != userID {
		logger.Warn("Review modification forbidden", map[string]interface{}{
			"review_id": reviewID,
			"owner_id":  review.UserID,
			"user_id":   userID,
		})
		return nil, ErrReviewForbidden
	}
	return review, nil
}

// reload returns the committed review with its author card, falling back to the
// in-memory copy when the read fails.
func (s *reviewService) reload(review *model.Review) (*model.Review, error) {
	fresh, err := s.reviewRepo.FindByID(review.ID)
	if err != nil {
		logger.Warn("Failed to reload review after write", map[string]interface{}{
			"review_id": review.ID,
			"error":     err.Error(),
		})
		return review, nil
	}
	return fresh, nil
}
