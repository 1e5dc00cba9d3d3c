package controller

import (
	"net/http"

	"github.com/bookbee/bookbee-backend/internal/app/service"
	apperrors "github.com/bookbee/bookbee-backend/internal/errors"
	"github.com/bookbee/bookbee-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type SearchController struct {
	searchService service.SearchService
}

func NewSearchController(searchService service.SearchService) *SearchController {
	return &SearchController{
		searchService: searchService,
	}
}

func respondSearchError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}
	middleware.GetLoggerFromContext(c).Error("Search failed", err)
	apperrors.InternalError(c, "")
}

// SearchStories filters by q, genre, status and author name
// GET /api/search/stories?q=&genre=&status=&author=&sort=&page=&limit=
func (ctrl *SearchController) SearchStories(c *gin.Context) {
	result, err := ctrl.searchService.SearchStories(service.SearchQuery{
		Q:      c.Query("q"),
		Genre:  c.Query("genre"),
		Status: c.Query("status"),
		Author: c.Query("author"),
		Sort:   c.Query("sort"),
		Page:   pageFromQuery(c),
	})
	if err != nil {
		respondSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStoriesByGenre
// GET /api/search/genres/:genre
func (ctrl *SearchController) GetStoriesByGenre(c *gin.Context) {
	result, err := ctrl.searchService.GetStoriesByGenre(c.Param("genre"), pageFromQuery(c))
	if err != nil {
		respondSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPopularStories
// GET /api/search/popular
func (ctrl *SearchController) GetPopularStories(c *gin.Context) {
	result, err := ctrl.searchService.GetPopularStories(pageFromQuery(c))
	if err != nil {
		respondSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
