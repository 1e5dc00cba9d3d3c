package controller

import (
	"errors"
	"net/http"

	"github.com/bookbee/bookbee-backend/internal/app/service"
	apperrors "github.com/bookbee/bookbee-backend/internal/errors"
	"github.com/bookbee/bookbee-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	reviewService service.ReviewService
}

func NewReviewController(reviewService service.ReviewService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
	}
}

type CreateReviewRequest struct {
	Rating  *int   `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

// respondReviewError maps review lifecycle failures onto HTTP replies.
func respondReviewError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrStoryNotFound):
		apperrors.NotFound(c, apperrors.StoryNotFound, "Story not found")
	case errors.Is(err, service.ErrReviewNotFound):
		apperrors.NotFound(c, apperrors.ReviewNotFound, "Review not found")
	case errors.Is(err, service.ErrReviewForbidden):
		apperrors.Forbidden(c, "Not authorized to modify this review")
	case errors.Is(err, service.ErrReviewAlreadyExists):
		apperrors.BadRequest(c, apperrors.ReviewAlreadyExists, "You have already reviewed this story")
	case errors.Is(err, service.ErrInvalidRating):
		apperrors.BadRequest(c, apperrors.ReviewInvalidRating, "Rating must be between 1 and 5")
	case errors.Is(err, service.ErrReviewCommentLength):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	default:
		middleware.GetLoggerFromContext(c).Error("Review operation failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
	}
}

// GetStoryReviews lists a story's reviews, newest first
// GET /api/stories/:id/reviews
func (ctrl *ReviewController) GetStoryReviews(c *gin.Context) {
	storyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reviews, err := ctrl.reviewService.GetStoryReviews(storyID)
	if err != nil {
		respondReviewError(c, err, "list reviews")
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// CreateReview posts the caller's review and refreshes the story rating
// POST /api/stories/:id/reviews
func (ctrl *ReviewController) CreateReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}
	storyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid review request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ReviewInvalidRating, "Please provide a rating between 1 and 5")
		return
	}

	review, err := ctrl.reviewService.CreateReview(userID, storyID, service.CreateReviewInput{
		Rating:  *req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondReviewError(c, err, "create review")
		return
	}

	c.JSON(http.StatusCreated, review)
}

// UpdateReview changes the rating and/or comment of the caller's review
// PUT /api/reviews/:id
func (ctrl *ReviewController) UpdateReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid review data")
		return
	}

	review, err := ctrl.reviewService.UpdateReview(reviewID, userID, service.UpdateReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondReviewError(c, err, "update review")
		return
	}

	c.JSON(http.StatusOK, review)
}

// DeleteReview removes the caller's review
// DELETE /api/reviews/:id
func (ctrl *ReviewController) DeleteReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.reviewService.DeleteReview(reviewID, userID); err != nil {
		respondReviewError(c, err, "delete review")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review removed"})
}

// GetMyReviews lists the caller's reviews with their stories
// GET /api/users/me/reviews
func (ctrl *ReviewController) GetMyReviews(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reviews, err := ctrl.reviewService.GetUserReviews(userID)
	if err != nil {
		respondReviewError(c, err, "list user reviews")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"count":   len(reviews),
	})
}
