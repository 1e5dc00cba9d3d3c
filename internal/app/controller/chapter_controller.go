package controller

import (
	"errors"
	"net/http"

	"github.com/bookbee/bookbee-backend/internal/app/service"
	apperrors "github.com/bookbee/bookbee-backend/internal/errors"
	"github.com/bookbee/bookbee-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type ChapterController struct {
	chapterService service.ChapterService
}

func NewChapterController(chapterService service.ChapterService) *ChapterController {
	return &ChapterController{
		chapterService: chapterService,
	}
}

type CreateChapterRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type UpdateChapterRequest struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	ChapterNumber *int    `json:"chapter_number"`
}

func respondChapterError(c *gin.Context, err error, action string) {
	if respondValidation(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrStoryNotFound):
		apperrors.NotFound(c, apperrors.StoryNotFound, "Story not found")
	case errors.Is(err, service.ErrChapterNotFound):
		apperrors.NotFound(c, apperrors.ChapterNotFound, "Chapter not found")
	case errors.Is(err, service.ErrChapterForbidden):
		apperrors.Forbidden(c, "Not authorized to modify this chapter")
	case errors.Is(err, service.ErrChapterAccessDenied):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.ChapterAccessDenied, "This chapter is not published yet")
	default:
		middleware.GetLoggerFromContext(c).Error("Chapter operation failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
	}
}

// ListChapters returns the published chapters of a story in reading order
// GET /api/stories/:id/chapters
func (ctrl *ChapterController) ListChapters(c *gin.Context) {
	storyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	chapters, err := ctrl.chapterService.ListPublished(storyID)
	if err != nil {
		respondChapterError(c, err, "list chapters")
		return
	}
	c.JSON(http.StatusOK, chapters)
}

// GetChapter works for guests; drafts are shown to the story author only
// GET /api/chapters/:id
func (ctrl *ChapterController) GetChapter(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var viewerID *uint
	if userID, ok := middleware.GetUserID(c); ok {
		viewerID = &userID
	}

	chapter, err := ctrl.chapterService.GetChapter(id, viewerID)
	if err != nil {
		respondChapterError(c, err, "get chapter")
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// CreateChapter appends a draft chapter to the story
// POST /api/stories/:id/chapters
func (ctrl *ChapterController) CreateChapter(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	storyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide title and content")
		return
	}

	chapter, err := ctrl.chapterService.CreateChapter(storyID, userID, req.Title, req.Content)
	if err != nil {
		respondChapterError(c, err, "create chapter")
		return
	}
	c.JSON(http.StatusCreated, chapter)
}

// UpdateChapter
// PUT /api/chapters/:id
func (ctrl *ChapterController) UpdateChapter(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid chapter data")
		return
	}

	chapter, err := ctrl.chapterService.UpdateChapter(id, userID, service.UpdateChapterInput{
		Title:         req.Title,
		Content:       req.Content,
		ChapterNumber: req.ChapterNumber,
	})
	if err != nil {
		respondChapterError(c, err, "update chapter")
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// DeleteChapter
// DELETE /api/chapters/:id
func (ctrl *ChapterController) DeleteChapter(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.chapterService.DeleteChapter(id, userID); err != nil {
		respondChapterError(c, err, "delete chapter")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chapter removed"})
}

// PublishChapter
// PUT /api/chapters/:id/publish
func (ctrl *ChapterController) PublishChapter(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.chapterService.PublishChapter(id, userID); err != nil {
		respondChapterError(c, err, "publish chapter")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chapter published"})
}
