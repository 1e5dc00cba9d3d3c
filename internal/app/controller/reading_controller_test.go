package controller

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/bookbee/bookbee-backend/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readingRouter(env *controllerEnv, userID uint) *gin.Engine {
	ctrl := NewReadingController(env.reading)
	router := gin.New()
	router.Use(actingAs(userID))
	router.GET("/progress", ctrl.GetProgress)
	router.PUT("/progress/:storyId/:chapterId", ctrl.UpdateProgress)
	router.GET("/bookmarks", ctrl.GetBookmarks)
	router.POST("/bookmarks/:storyId", ctrl.AddBookmark)
	router.DELETE("/bookmarks/:storyId", ctrl.RemoveBookmark)
	return router
}

func TestReadingController_Progress(t *testing.T) {
	env := setupControllerEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Long Read")
	chapter, err := env.chapters.CreateChapter(story.ID, author.ID, "One", strings.Repeat("text ", 10))
	require.NoError(t, err)

	router := readingRouter(env, reader.ID)
	path := fmt.Sprintf("/progress/%d/%d", story.ID, chapter.ID)

	w := doJSON(t, router, http.MethodPut, path, map[string]float64{"progress": 100})
	require.Equal(t, http.StatusOK, w.Code)
	var entry struct {
		Progress  float64 `json:"progress"`
		Completed bool    `json:"completed"`
	}
	decode(t, w, &entry)
	assert.True(t, entry.Completed)

	w = doJSON(t, router, http.MethodPut, path, map[string]float64{"progress": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ProgressInvalid, errorCode(t, w))

	w = doJSON(t, router, http.MethodPut, path, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	decode(t, w, &list)
	assert.Len(t, list, 1)
}

func TestReadingController_Bookmarks(t *testing.T) {
	env := setupControllerEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Marked")
	router := readingRouter(env, reader.ID)
	path := fmt.Sprintf("/bookmarks/%d", story.ID)

	assert.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, path, nil).Code)

	w := doJSON(t, router, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.BookmarkAlreadyExists, errorCode(t, w))

	w = doJSON(t, router, http.MethodGet, "/bookmarks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Marked")

	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodDelete, path, nil).Code)

	w = doJSON(t, router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.BookmarkNotFound, errorCode(t, w))

	w = doJSON(t, readingRouter(env, 0), http.MethodGet, "/bookmarks", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
