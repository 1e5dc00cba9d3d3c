package controller

import (
	"errors"
	"net/http"

	"github.com/bookbee/bookbee-backend/internal/app/service"
	apperrors "github.com/bookbee/bookbee-backend/internal/errors"
	"github.com/bookbee/bookbee-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type ReadingController struct {
	readingService service.ReadingService
}

func NewReadingController(readingService service.ReadingService) *ReadingController {
	return &ReadingController{
		readingService: readingService,
	}
}

type UpdateProgressRequest struct {
	Progress *float64 `json:"progress" binding:"required"`
}

func respondReadingError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrStoryNotFound):
		apperrors.NotFound(c, apperrors.StoryNotFound, "Story not found")
	case errors.Is(err, service.ErrChapterNotFound):
		apperrors.NotFound(c, apperrors.ChapterNotFound, "Chapter not found")
	case errors.Is(err, service.ErrBookmarkNotFound):
		apperrors.NotFound(c, apperrors.BookmarkNotFound, "Bookmark not found")
	case errors.Is(err, service.ErrBookmarkAlreadyExists):
		apperrors.BadRequest(c, apperrors.BookmarkAlreadyExists, "Story already bookmarked")
	case errors.Is(err, service.ErrInvalidProgress):
		apperrors.BadRequest(c, apperrors.ProgressInvalid, "Progress must be between 0 and 100")
	default:
		middleware.GetLoggerFromContext(c).Error("Reading operation failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
	}
}

// GetProgress
// GET /api/reading/progress
func (ctrl *ReadingController) GetProgress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	progress, err := ctrl.readingService.GetProgress(userID)
	if err != nil {
		respondReadingError(c, err, "list progress")
		return
	}
	c.JSON(http.StatusOK, progress)
}

// UpdateProgress records how far the caller read a chapter
// PUT /api/reading/progress/:storyId/:chapterId
func (ctrl *ReadingController) UpdateProgress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	storyID, ok := parseIDParam(c, "storyId")
	if !ok {
		return
	}
	chapterID, ok := parseIDParam(c, "chapterId")
	if !ok {
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ProgressInvalid, "Please provide progress between 0 and 100")
		return
	}

	entry, err := ctrl.readingService.UpdateProgress(userID, storyID, chapterID, *req.Progress)
	if err != nil {
		respondReadingError(c, err, "update progress")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetBookmarks
// GET /api/reading/bookmarks
func (ctrl *ReadingController) GetBookmarks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	bookmarks, err := ctrl.readingService.GetBookmarks(userID)
	if err != nil {
		respondReadingError(c, err, "list bookmarks")
		return
	}
	c.JSON(http.StatusOK, bookmarks)
}

// AddBookmark
// POST /api/reading/bookmarks/:storyId
func (ctrl *ReadingController) AddBookmark(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	storyID, ok := parseIDParam(c, "storyId")
	if !ok {
		return
	}

	bookmark, err := ctrl.readingService.AddBookmark(userID, storyID)
	if err != nil {
		respondReadingError(c, err, "create bookmark")
		return
	}
	c.JSON(http.StatusCreated, bookmark)
}

// RemoveBookmark
// DELETE /api/reading/bookmarks/:storyId
func (ctrl *ReadingController) RemoveBookmark(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	storyID, ok := parseIDParam(c, "storyId")
	if !ok {
		return
	}

	if err := ctrl.readingService.RemoveBookmark(userID, storyID); err != nil {
		respondReadingError(c, err, "delete bookmark")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed"})
}
