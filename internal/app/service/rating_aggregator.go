package service

import (
	"errors"
	"fmt"

	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/internal/metrics"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"gorm.io/gorm"
)

// Aggregate is the materialised rating summary of a story.
type Aggregate struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// RatingAggregator keeps Story.Rating and Story.ReviewCount equal to the mean and
// count of the story's current reviews. Every recompute reads the full review set,
// so it is idempotent and self-healing.
type RatingAggregator interface {
	// WithTx binds the aggregator to tx so a recompute commits with the
	// review mutation that triggered it. Bound recomputes leave the metric
	// to the caller, which knows whether the transaction committed.
	WithTx(tx *gorm.DB) RatingAggregator

	RecomputeAggregate(storyID uint) (Aggregate, error)

	// RecomputeAll recomputes every live story, continuing past failures.
	// It returns how many stories were recomputed and the joined failures.
	RecomputeAll() (int, error)
}

type ratingAggregator struct {
	reviewRepo repository.ReviewRepository
	storyRepo  repository.StoryRepository
	inTx       bool
}

func NewRatingAggregator(reviewRepo repository.ReviewRepository, storyRepo repository.StoryRepository) RatingAggregator {
	return &ratingAggregator{
		reviewRepo: reviewRepo,
		storyRepo:  storyRepo,
	}
}

func (a *ratingAggregator) WithTx(tx *gorm.DB) RatingAggregator {
	return &ratingAggregator{
		reviewRepo: a.reviewRepo.WithTx(tx),
		storyRepo:  a.storyRepo.WithTx(tx),
		inTx:       true,
	}
}

// computeAggregate returns 0/0 for an empty set, never NaN.
func computeAggregate(ratings []int) Aggregate {
	if len(ratings) == 0 {
		return Aggregate{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return Aggregate{
		Rating:      float64(sum) / float64(len(ratings)),
		ReviewCount: len(ratings),
	}
}

func (a *ratingAggregator) RecomputeAggregate(storyID uint) (agg Aggregate, err error) {
	defer func() {
		if !a.inTx {
			metrics.RecordRecompute(err)
		}
	}()

	ratings, err := a.reviewRepo.ListRatingsByStory(storyID)
	if err != nil {
		logger.Error("Failed to load ratings for aggregate", err, map[string]interface{}{
			"story_id": storyID,
		})
		return Aggregate{}, fmt.Errorf("load ratings for story %d: %w", storyID, err)
	}

	agg = computeAggregate(ratings)

	if err = a.storyRepo.UpdateAggregate(storyID, agg.Rating, agg.ReviewCount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Aggregate target story not found", map[string]interface{}{
				"story_id": storyID,
			})
			return Aggregate{}, ErrStoryNotFound
		}
		logger.Error("Failed to write story aggregate", err, map[string]interface{}{
			"story_id": storyID,
		})
		return Aggregate{}, fmt.Errorf("write aggregate for story %d: %w", storyID, err)
	}

	logger.Debug("Story aggregate recomputed", map[string]interface{}{
		"story_id":     storyID,
		"review_count": agg.ReviewCount,
		"rating":       agg.Rating,
	})
	return agg, nil
}

func (a *ratingAggregator) RecomputeAll() (int, error) {
	ids, err := a.storyRepo.ListIDs()
	if err != nil {
		return 0, fmt.Errorf("list stories: %w", err)
	}

	var errs []error
	done := 0
	for _, id := range ids {
		if _, err := a.RecomputeAggregate(id); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}

	logger.Info("Recomputed story aggregates", map[string]interface{}{
		"stories": len(ids),
		"ok":      done,
		"failed":  len(errs),
	})
	return done, errors.Join(errs...)
}
