package controller

import (
	"errors"
	"net/http"

	"github.com/bookbee/bookbee-backend/internal/app/service"
	apperrors "github.com/bookbee/bookbee-backend/internal/errors"
	"github.com/bookbee/bookbee-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type StoryController struct {
	storyService service.StoryService
}

func NewStoryController(storyService service.StoryService) *StoryController {
	return &StoryController{
		storyService: storyService,
	}
}

type CreateStoryRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	CoverImage  string   `json:"cover_image"`
	Genres      []string `json:"genres" binding:"required"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
}

// UpdateStoryRequest has no rating fields: the aggregate is derived from reviews.
type UpdateStoryRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	CoverImage  *string   `json:"cover_image"`
	Genres      *[]string `json:"genres"`
	Tags        *[]string `json:"tags"`
	Status      *string   `json:"status"`
}

func respondStoryError(c *gin.Context, err error, action string) {
	if respondValidation(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrStoryNotFound):
		apperrors.NotFound(c, apperrors.StoryNotFound, "Story not found")
	case errors.Is(err, service.ErrStoryForbidden):
		apperrors.Forbidden(c, "Not authorized to modify this story")
	case errors.Is(err, service.ErrStoryAlreadyLiked):
		apperrors.BadRequest(c, apperrors.StoryAlreadyLiked, "Story already liked")
	case errors.Is(err, service.ErrStoryNotLiked):
		apperrors.BadRequest(c, apperrors.StoryNotLiked, "Story has not been liked yet")
	default:
		middleware.GetLoggerFromContext(c).Error("Story operation failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
	}
}

// ListStories pages through stories, newest first
// GET /api/stories
func (ctrl *StoryController) ListStories(c *gin.Context) {
	page, err := ctrl.storyService.ListStories(pageFromQuery(c))
	if err != nil {
		respondStoryError(c, err, "list stories")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetStory returns one story and counts the view
// GET /api/stories/:id
func (ctrl *StoryController) GetStory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var viewerID *uint
	if userID, ok := middleware.GetUserID(c); ok {
		viewerID = &userID
	}

	story, err := ctrl.storyService.GetStory(id, viewerID)
	if err != nil {
		respondStoryError(c, err, "get story")
		return
	}
	c.JSON(http.StatusOK, story)
}

// CreateStory
// POST /api/stories
func (ctrl *StoryController) CreateStory(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid story request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide title, description and genres")
		return
	}

	story, err := ctrl.storyService.CreateStory(userID, service.CreateStoryInput{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		Genres:      req.Genres,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		respondStoryError(c, err, "create story")
		return
	}

	c.JSON(http.StatusCreated, story)
}

// UpdateStory
// PUT /api/stories/:id
func (ctrl *StoryController) UpdateStory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid story data")
		return
	}

	story, err := ctrl.storyService.UpdateStory(id, userID, service.UpdateStoryInput{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		Genres:      req.Genres,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		respondStoryError(c, err, "update story")
		return
	}

	c.JSON(http.StatusOK, story)
}

// DeleteStory removes the story with its chapters, reviews and reading data
// DELETE /api/stories/:id
func (ctrl *StoryController) DeleteStory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.storyService.DeleteStory(id, userID); err != nil {
		respondStoryError(c, err, "delete story")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Story removed"})
}

// GetUserStories
// GET /api/stories/user/:userId
func (ctrl *StoryController) GetUserStories(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	stories, err := ctrl.storyService.GetUserStories(userID)
	if err != nil {
		respondStoryError(c, err, "list user stories")
		return
	}
	c.JSON(http.StatusOK, stories)
}

// LikeStory
// POST /api/stories/:id/like
func (ctrl *StoryController) LikeStory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.storyService.LikeStory(id, userID); err != nil {
		respondStoryError(c, err, "like story")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Story liked"})
}

// UnlikeStory
// DELETE /api/stories/:id/like
func (ctrl *StoryController) UnlikeStory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.storyService.UnlikeStory(id, userID); err != nil {
		respondStoryError(c, err, "unlike story")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Story unliked"})
}
