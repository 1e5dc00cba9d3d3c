package router

import (
	"net/http"

	"github.com/bookbee/bookbee-backend/config"
	"github.com/bookbee/bookbee-backend/internal/app/controller"
	"github.com/bookbee/bookbee-backend/internal/metrics"
	"github.com/bookbee/bookbee-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authController    *controller.AuthController
	storyController   *controller.StoryController
	chapterController *controller.ChapterController
	reviewController  *controller.ReviewController
	readingController *controller.ReadingController
	searchController  *controller.SearchController
	authMiddleware    *middleware.AuthMiddleware
	rateLimiter       *middleware.RateLimiter
	config            *config.Config
}

// NewRouter wires the HTTP surface; rateLimiter may be nil to disable write throttling.
func NewRouter(
	authController *controller.AuthController,
	storyController *controller.StoryController,
	chapterController *controller.ChapterController,
	reviewController *controller.ReviewController,
	readingController *controller.ReadingController,
	searchController *controller.SearchController,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:    authController,
		storyController:   storyController,
		chapterController: chapterController,
		reviewController:  reviewController,
		readingController: readingController,
		searchController:  searchController,
		authMiddleware:    authMiddleware,
		rateLimiter:       rateLimiter,
		config:            cfg,
	}
}

// authed chains authentication and, when configured, per-user throttling before the handler.
func (r *Router) authed(handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{r.authMiddleware.Authenticate()}
	if r.rateLimiter != nil {
		chain = append(chain, r.rateLimiter.Handler())
	}
	return append(chain, handler)
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	if r.config.Metrics.Enabled {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "BookBee API is running",
		})
	})
	if r.config.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
		}

		users := api.Group("/users")
		{
			users.PUT("/profile", r.authed(r.authController.UpdateProfile)...)
			users.GET("/me/reviews", r.authMiddleware.Authenticate(), r.reviewController.GetMyReviews)
		}

		// story sub-resources share the :id wildcard
		stories := api.Group("/stories")
		{
			stories.GET("", r.storyController.ListStories)
			stories.GET("/user/:userId", r.storyController.GetUserStories)
			stories.GET("/:id", r.authMiddleware.OptionalAuthenticate(), r.storyController.GetStory)
			stories.POST("", r.authed(r.storyController.CreateStory)...)
			stories.PUT("/:id", r.authed(r.storyController.UpdateStory)...)
			stories.DELETE("/:id", r.authed(r.storyController.DeleteStory)...)
			stories.POST("/:id/like", r.authed(r.storyController.LikeStory)...)
			stories.DELETE("/:id/like", r.authed(r.storyController.UnlikeStory)...)

			stories.GET("/:id/reviews", r.reviewController.GetStoryReviews)
			stories.POST("/:id/reviews", r.authed(r.reviewController.CreateReview)...)

			stories.GET("/:id/chapters", r.chapterController.ListChapters)
			stories.POST("/:id/chapters", r.authed(r.chapterController.CreateChapter)...)
		}

		reviews := api.Group("/reviews")
		{
			reviews.PUT("/:id", r.authed(r.reviewController.UpdateReview)...)
			reviews.DELETE("/:id", r.authed(r.reviewController.DeleteReview)...)
		}

		chapters := api.Group("/chapters")
		{
			chapters.GET("/:id", r.authMiddleware.OptionalAuthenticate(), r.chapterController.GetChapter)
			chapters.PUT("/:id", r.authed(r.chapterController.UpdateChapter)...)
			chapters.DELETE("/:id", r.authed(r.chapterController.DeleteChapter)...)
			chapters.PUT("/:id/publish", r.authed(r.chapterController.PublishChapter)...)
		}

		reading := api.Group("/reading")
		reading.Use(r.authMiddleware.Authenticate())
		{
			reading.GET("/progress", r.readingController.GetProgress)
			reading.PUT("/progress/:storyId/:chapterId", r.readingController.UpdateProgress)
			reading.GET("/bookmarks", r.readingController.GetBookmarks)
			reading.POST("/bookmarks/:storyId", r.readingController.AddBookmark)
			reading.DELETE("/bookmarks/:storyId", r.readingController.RemoveBookmark)
		}

		search := api.Group("/search")
		{
			search.GET("/stories", r.searchController.SearchStories)
			search.GET("/genres/:genre", r.searchController.GetStoriesByGenre)
			search.GET("/popular", r.searchController.GetPopularStories)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
