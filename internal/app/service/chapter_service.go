package service

import (
	"errors"
	"fmt"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	chapterTitleMax   = 100
	chapterContentMin = 20
)

var (
	ErrChapterNotFound     = errors.New("chapter not found")
	ErrChapterForbidden    = errors.New("not authorized to modify this chapter")
	ErrChapterAccessDenied = errors.New("chapter is not published")
)

type UpdateChapterInput struct {
	Title         *string
	Content       *string
	ChapterNumber *int
}

type ChapterService interface {
	ListPublished(storyID uint) ([]model.Chapter, error)
	// GetChapter hides unpublished chapters from everyone but the story author;
	// viewerID is nil for guests.
	GetChapter(id uint, viewerID *uint) (*model.Chapter, error)
	CreateChapter(storyID, userID uint, title, content string) (*model.Chapter, error)
	UpdateChapter(id, userID uint, input UpdateChapterInput) (*model.Chapter, error)
	DeleteChapter(id, userID uint) error
	PublishChapter(id, userID uint) error
}

type chapterService struct {
	db          *gorm.DB
	chapterRepo repository.ChapterRepository
	storyRepo   repository.StoryRepository
}

func NewChapterService(
	db *gorm.DB,
	chapterRepo repository.ChapterRepository,
	storyRepo repository.StoryRepository,
) ChapterService {
	return &chapterService{
		db:          db,
		chapterRepo: chapterRepo,
		storyRepo:   storyRepo,
	}
}

func (s *chapterService) ListPublished(storyID uint) ([]model.Chapter, error) {
	exists, err := s.storyRepo.Exists(storyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrStoryNotFound
	}
	return s.chapterRepo.ListPublishedByStory(storyID)
}

func (s *chapterService) find(id uint) (*model.Chapter, error) {
	chapter, err := s.chapterRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChapterNotFound
		}
		return nil, err
	}
	return chapter, nil
}

func isStoryAuthor(chapter *model.Chapter, userID uint) bool {
	return chapter.Story != nil && chapter.Story.AuthorID == userID
}

func (s *chapterService) GetChapter(id uint, viewerID *uint) (*model.Chapter, error) {
	chapter, err := s.find(id)
	if err != nil {
		return nil, err
	}

	if !chapter.Published {
		if viewerID == nil || !isStoryAuthor(chapter, *viewerID) {
			return nil, ErrChapterAccessDenied
		}
		return chapter, nil
	}

	if err := s.chapterRepo.IncrementViews(id); err != nil {
		logger.Warn("Failed to increment chapter views", map[string]interface{}{
			"chapter_id": id,
			"error":      err.Error(),
		})
	} else {
		chapter.Views++
	}
	return chapter, nil
}

func (s *chapterService) CreateChapter(storyID, userID uint, title, content string) (*model.Chapter, error) {
	title, err := checkLength("title", title, 1, chapterTitleMax)
	if err != nil {
		return nil, err
	}
	content, err = checkLength("content", content, chapterContentMin, 0)
	if err != nil {
		return nil, err
	}

	chapter := &model.Chapter{
		StoryID: storyID,
		Title:   title,
		Content: content,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		story, err := s.storyRepo.WithTx(tx).FindByID(storyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStoryNotFound
			}
			return err
		}
		if story.AuthorID != userID {
			return ErrChapterForbidden
		}

		chapters := s.chapterRepo.WithTx(tx)
		highest, err := chapters.MaxChapterNumber(storyID)
		if err != nil {
			return fmt.Errorf("next chapter number: %w", err)
		}
		chapter.ChapterNumber = highest + 1

		return chapters.Create(chapter)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Chapter created", map[string]interface{}{
		"chapter_id":     chapter.ID,
		"story_id":       storyID,
		"chapter_number": chapter.ChapterNumber,
	})
	return chapter, nil
}

func (s *chapterService) findOwned(id, userID uint) (*model.Chapter, error) {
	chapter, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !isStoryAuthor(chapter, userID) {
		logger.Warn("Chapter modification forbidden", map[string]interface{}{
			"chapter_id": id,
			"user_id":    userID,
		})
		return nil, ErrChapterForbidden
	}
	return chapter, nil
}

func (s *chapterService) UpdateChapter(id, userID uint, input UpdateChapterInput) (*model.Chapter, error) {
	if _, err := s.findOwned(id, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		title, err := checkLength("title", *input.Title, 1, chapterTitleMax)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if input.Content != nil {
		content, err := checkLength("content", *input.Content, chapterContentMin, 0)
		if err != nil {
			return nil, err
		}
		updates["content"] = content
	}
	if input.ChapterNumber != nil {
		if *input.ChapterNumber < 1 {
			return nil, invalid("chapter_number", "must be positive")
		}
		updates["chapter_number"] = *input.ChapterNumber
	}

	if err := s.chapterRepo.Update(id, updates); err != nil {
		return nil, fmt.Errorf("update chapter: %w", err)
	}
	return s.find(id)
}

func (s *chapterService) DeleteChapter(id, userID uint) error {
	if _, err := s.findOwned(id, userID); err != nil {
		return err
	}
	if err := s.chapterRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChapterNotFound
		}
		return fmt.Errorf("delete chapter: %w", err)
	}

	logger.Info("Chapter deleted", map[string]interface{}{
		"chapter_id": id,
		"user_id":    userID,
	})
	return nil
}

func (s *chapterService) PublishChapter(id, userID uint) error {
	if _, err := s.findOwned(id, userID); err != nil {
		return err
	}
	if err := s.chapterRepo.Update(id, map[string]interface{}{"published": true}); err != nil {
		return fmt.Errorf("publish chapter: %w", err)
	}

	logger.Info("Chapter published", map[string]interface{}{
		"chapter_id": id,
	})
	return nil
}
