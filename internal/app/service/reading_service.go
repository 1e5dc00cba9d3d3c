package service

import (
	"errors"
	"fmt"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrBookmarkNotFound      = errors.New("bookmark not found")
	ErrBookmarkAlreadyExists = errors.New("story already bookmarked")
	ErrInvalidProgress       = errors.New("progress must be between 0 and 100")
)

type ReadingService interface {
	GetProgress(userID uint) ([]model.ReadingProgress, error)
	UpdateProgress(userID, storyID, chapterID uint, progress float64) (*model.ReadingProgress, error)
	GetBookmarks(userID uint) ([]model.Bookmark, error)
	AddBookmark(userID, storyID uint) (*model.Bookmark, error)
	RemoveBookmark(userID, storyID uint) error
}

type readingService struct {
	db          *gorm.DB
	readingRepo repository.ReadingRepository
	storyRepo   repository.StoryRepository
	chapterRepo repository.ChapterRepository
}

func NewReadingService(
	db *gorm.DB,
	readingRepo repository.ReadingRepository,
	storyRepo repository.StoryRepository,
	chapterRepo repository.ChapterRepository,
) ReadingService {
	return &readingService{
		db:          db,
		readingRepo: readingRepo,
		storyRepo:   storyRepo,
		chapterRepo: chapterRepo,
	}
}

func (s *readingService) GetProgress(userID uint) ([]model.ReadingProgress, error) {
	return s.readingRepo.ListProgress(userID)
}

// UpdateProgress upserts the (user, story, chapter) entry. Once completed, an
// entry stays completed even if a lower progress is reported later.
func (s *readingService) UpdateProgress(userID, storyID, chapterID uint, progress float64) (*model.ReadingProgress, error) {
	if progress < 0 || progress > model.ProgressComplete {
		return nil, ErrInvalidProgress
	}

	chapter, err := s.chapterRepo.FindByID(chapterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChapterNotFound
		}
		return nil, err
	}
	if chapter.StoryID != storyID {
		return nil, ErrChapterNotFound
	}

	var entry *model.ReadingProgress
	err = s.db.Transaction(func(tx *gorm.DB) error {
		reading := s.readingRepo.WithTx(tx)

		existing, err := reading.FindProgress(userID, storyID, chapterID)
		switch {
		case err == nil:
			entry = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = &model.ReadingProgress{UserID: userID, StoryID: storyID, ChapterID: chapterID}
		default:
			return err
		}

		entry.Progress = progress
		if progress >= model.ProgressComplete {
			entry.Completed = true
		}
		return reading.SaveProgress(entry)
	})
	if err != nil {
		logger.Error("Failed to update reading progress", err, map[string]interface{}{
			"user_id":    userID,
			"story_id":   storyID,
			"chapter_id": chapterID,
		})
		return nil, fmt.Errorf("update progress: %w", err)
	}
	return entry, nil
}

func (s *readingService) GetBookmarks(userID uint) ([]model.Bookmark, error) {
	return s.readingRepo.ListBookmarks(userID)
}

func (s *readingService) AddBookmark(userID, storyID uint) (*model.Bookmark, error) {
	exists, err := s.storyRepo.Exists(storyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrStoryNotFound
	}

	bookmark := &model.Bookmark{UserID: userID, StoryID: storyID}
	if err := s.readingRepo.CreateBookmark(bookmark); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrBookmarkAlreadyExists
		}
		return nil, fmt.Errorf("create bookmark: %w", err)
	}

	logger.Info("Bookmark added", map[string]interface{}{
		"user_id":  userID,
		"story_id": storyID,
	})
	return bookmark, nil
}

func (s *readingService) RemoveBookmark(userID, storyID uint) error {
	if err := s.readingRepo.DeleteBookmark(userID, storyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookmarkNotFound
		}
		return fmt.Errorf("remove bookmark: %w", err)
	}
	return nil
}
