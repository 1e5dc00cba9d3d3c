package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookbee/bookbee-backend/config"
	"github.com/bookbee/bookbee-backend/internal/app/controller"
	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/internal/app/service"
	"github.com/bookbee/bookbee-backend/internal/db"
	"github.com/bookbee/bookbee-backend/internal/middleware"
	"github.com/bookbee/bookbee-backend/internal/router"
	"github.com/bookbee/bookbee-backend/internal/scheduler"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	appredis "github.com/bookbee/bookbee-backend/pkg/redis"
)

const (
	shutdownTimeout        = 10 * time.Second
	rateLimitCleanupPeriod = time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Server.Environment == "development",
	})

	logger.Info("Starting BookBee Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Log.Level,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Token blacklist is optional; without Redis logout is client-side only
	var (
		revoker    service.TokenRevoker
		revocation middleware.RevocationChecker
	)
	if cfg.Redis.Enabled {
		if err := appredis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, token revocation disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer func() {
				if err := appredis.Close(); err != nil {
					logger.Error("Failed to close Redis connection", err)
				}
			}()
			blacklist := appredis.NewTokenBlacklist(appredis.GetClient())
			revoker = blacklist
			revocation = blacklist
		}
	}

	// Initialize repositories
	database := db.GetDB()
	userRepo := repository.NewUserRepository(database)
	storyRepo := repository.NewStoryRepository(database)
	chapterRepo := repository.NewChapterRepository(database)
	reviewRepo := repository.NewReviewRepository(database)
	readingRepo := repository.NewReadingRepository(database)

	// Initialize services
	aggregator := service.NewRatingAggregator(reviewRepo, storyRepo)
	authService := service.NewAuthService(
		userRepo,
		revoker,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	storyService := service.NewStoryService(database, storyRepo, chapterRepo, reviewRepo, readingRepo)
	chapterService := service.NewChapterService(database, chapterRepo, storyRepo)
	reviewService := service.NewReviewService(database, reviewRepo, storyRepo, aggregator)
	readingService := service.NewReadingService(database, readingRepo, storyRepo, chapterRepo)
	searchService := service.NewSearchService(storyRepo, userRepo)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, revocation)
	stop := make(chan struct{})
	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		rateLimiter = middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		rateLimiter.StartCleanup(rateLimitCleanupPeriod, stop)
	}

	// Setup router
	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewStoryController(storyService),
		controller.NewChapterController(chapterService),
		controller.NewReviewController(reviewService),
		controller.NewReadingController(readingService),
		controller.NewSearchController(searchService),
		authMiddleware,
		rateLimiter,
		cfg,
	)

	// Aggregate reconciler
	var reconciler *scheduler.AggregateReconciler
	if cfg.Scheduler.AggregateReconcileSchedule != "" {
		reconciler = scheduler.NewAggregateReconciler(aggregator, cfg.Scheduler.AggregateReconcileSchedule)
		if err := reconciler.Start(); err != nil {
			logger.Fatal("Failed to start aggregate reconciler", err)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	close(stop)
	if reconciler != nil {
		reconciler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
