package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"github.com/bookbee/bookbee-backend/pkg/util"
	"gorm.io/gorm"
)

const (
	storyTitleMax       = model.StoryTitleMaxLength
	storyDescriptionMin = model.StoryDescriptionMinLength
	storyDescriptionMax = model.StoryDescriptionMaxLength
)

var (
	ErrStoryNotFound     = errors.New("story not found")
	ErrStoryForbidden    = errors.New("not authorized to modify this story")
	ErrStoryAlreadyLiked = errors.New("story already liked")
	ErrStoryNotLiked     = errors.New("story has not been liked yet")
)

type CreateStoryInput struct {
	Title       string
	Description string
	CoverImage  string
	Genres      []string
	Tags        []string
	Status      string
}

// UpdateStoryInput applies only non-nil fields; the rating aggregate is not editable.
type UpdateStoryInput struct {
	Title       *string
	Description *string
	CoverImage  *string
	Genres      *[]string
	Tags        *[]string
	Status      *string
}

// StoryPage is one page of a story listing.
type StoryPage struct {
	Stories []model.Story `json:"stories"`
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
	Total   int64         `json:"total"`
}

func newStoryPage(stories []model.Story, total int64, page util.Page) *StoryPage {
	info := util.NewPageInfo(total, page.Page, page.Limit)
	return &StoryPage{
		Stories: stories,
		Page:    info.Page,
		Pages:   info.Pages,
		Total:   info.Total,
	}
}

type StoryService interface {
	ListStories(page util.Page) (*StoryPage, error)
	GetStory(id uint, viewerID *uint) (*model.Story, error)
	CreateStory(authorID uint, input CreateStoryInput) (*model.Story, error)
	UpdateStory(id, userID uint, input UpdateStoryInput) (*model.Story, error)
	DeleteStory(id, userID uint) error
	GetUserStories(userID uint) ([]model.Story, error)
	LikeStory(id, userID uint) error
	UnlikeStory(id, userID uint) error
}

type storyService struct {
	db          *gorm.DB
	storyRepo   repository.StoryRepository
	chapterRepo repository.ChapterRepository
	reviewRepo  repository.ReviewRepository
	readingRepo repository.ReadingRepository
}

func NewStoryService(
	db *gorm.DB,
	storyRepo repository.StoryRepository,
	chapterRepo repository.ChapterRepository,
	reviewRepo repository.ReviewRepository,
	readingRepo repository.ReadingRepository,
) StoryService {
	return &storyService{
		db:          db,
		storyRepo:   storyRepo,
		chapterRepo: chapterRepo,
		reviewRepo:  reviewRepo,
		readingRepo: readingRepo,
	}
}

func validateGenres(genres []string) (model.StringArray, error) {
	normalized := model.StringArray(genres).Normalize()
	if len(normalized) == 0 {
		return nil, invalid("genres", "at least one genre is required")
	}
	return normalized, nil
}

func parseStatus(status string) (model.StoryStatus, error) {
	st := model.StoryStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return "", invalid("status", "must be one of ongoing, completed, hiatus")
	}
	return st, nil
}

func (s *storyService) ListStories(page util.Page) (*StoryPage, error) {
	stories, total, err := s.storyRepo.FindWithFilter(repository.StoryFilter{
		SortBy: repository.StorySortNewest,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nil, err
	}
	return newStoryPage(stories, total, page), nil
}

// GetStory returns the story with its author and counts the view. A known viewer
// also gets whether they have liked the story.
func (s *storyService) GetStory(id uint, viewerID *uint) (*model.Story, error) {
	story, err := s.storyRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		logger.Error("Failed to get story", err, map[string]interface{}{
			"story_id": id,
		})
		return nil, err
	}

	if err := s.storyRepo.IncrementViews(id); err != nil {
		logger.Warn("Failed to increment story views", map[string]interface{}{
			"story_id": id,
			"error":    err.Error(),
		})
	} else {
		story.Views++
	}

	if viewerID != nil {
		liked, err := s.storyRepo.HasLiked(id, *viewerID)
		if err != nil {
			logger.Warn("Failed to check story like", map[string]interface{}{
				"story_id": id,
				"user_id":  *viewerID,
				"error":    err.Error(),
			})
		} else {
			story.Liked = &liked
		}
	}
	return story, nil
}

func (s *storyService) CreateStory(authorID uint, input CreateStoryInput) (*model.Story, error) {
	title, err := checkLength("title", input.Title, 1, storyTitleMax)
	if err != nil {
		return nil, err
	}
	description, err := checkLength("description", input.Description, storyDescriptionMin, storyDescriptionMax)
	if err != nil {
		return nil, err
	}
	genres, err := validateGenres(input.Genres)
	if err != nil {
		return nil, err
	}
	status := model.StoryStatusOngoing
	if input.Status != "" {
		if status, err = parseStatus(input.Status); err != nil {
			return nil, err
		}
	}

	story := &model.Story{
		AuthorID:    authorID,
		Title:       title,
		Description: description,
		CoverImage:  strings.TrimSpace(input.CoverImage),
		Genres:      genres,
		Tags:        model.StringArray(input.Tags).Normalize(),
		Status:      status,
	}
	if err := s.storyRepo.Create(story); err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}

	logger.Info("Story created", map[string]interface{}{
		"story_id":  story.ID,
		"author_id": authorID,
	})
	return s.storyRepo.FindByID(story.ID)
}

func (s *storyService) findOwned(id, userID uint) (*model.Story, error) {
	story, err := s.storyRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	if story.AuthorID != userID {
		logger.Warn("Story modification forbidden", map[string]interface{}{
			"story_id":  id,
			"author_id": story.AuthorID,
			"user_id":   userID,
		})
		return nil, ErrStoryForbidden
	}
	return story, nil
}

func (s *storyService) UpdateStory(id, userID uint, input UpdateStoryInput) (*model.Story, error) {
	if _, err := s.findOwned(id, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		title, err := checkLength("title", *input.Title, 1, storyTitleMax)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if input.Description != nil {
		description, err := checkLength("description", *input.Description, storyDescriptionMin, storyDescriptionMax)
		if err != nil {
			return nil, err
		}
		updates["description"] = description
	}
	if input.CoverImage != nil {
		updates["cover_image"] = strings.TrimSpace(*input.CoverImage)
	}
	if input.Genres != nil {
		genres, err := validateGenres(*input.Genres)
		if err != nil {
			return nil, err
		}
		updates["genres"] = genres
	}
	if input.Tags != nil {
		updates["tags"] = model.StringArray(*input.Tags).Normalize()
	}
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		updates["status"] = status
	}

	if err := s.storyRepo.Update(id, updates); err != nil {
		return nil, fmt.Errorf("update story: %w", err)
	}

	logger.Info("Story updated", map[string]interface{}{
		"story_id": id,
		"fields":   len(updates),
	})
	return s.storyRepo.FindByID(id)
}

// DeleteStory removes the story together with its chapters, reviews, bookmarks
// and reading progress.
func (s *storyService) DeleteStory(id, userID uint) error {
	if _, err := s.findOwned(id, userID); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// same lock order as review writes: story row first, then its reviews
		if err := lockStory(s.storyRepo.WithTx(tx), id); err != nil {
			return err
		}
		if err := s.chapterRepo.WithTx(tx).DeleteByStory(id); err != nil {
			return fmt.Errorf("delete chapters: %w", err)
		}
		if err := s.reviewRepo.WithTx(tx).DeleteByStory(id); err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		if err := s.readingRepo.WithTx(tx).DeleteByStory(id); err != nil {
			return fmt.Errorf("delete reading data: %w", err)
		}
		if err := s.storyRepo.WithTx(tx).Delete(id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStoryNotFound
			}
			return fmt.Errorf("delete story: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete story", err, map[string]interface{}{
			"story_id": id,
		})
		return err
	}

	logger.Info("Story deleted", map[string]interface{}{
		"story_id": id,
		"user_id":  userID,
	})
	return nil
}

func (s *storyService) GetUserStories(userID uint) ([]model.Story, error) {
	return s.storyRepo.FindByAuthor(userID)
}

func (s *storyService) LikeStory(id, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		stories := s.storyRepo.WithTx(tx)

		exists, err := stories.Exists(id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrStoryNotFound
		}

		liked, err := stories.HasLiked(id, userID)
		if err != nil {
			return err
		}
		if liked {
			return ErrStoryAlreadyLiked
		}

		if err := stories.AddLike(id, userID); err != nil {
			if isUniqueViolation(err) {
				return ErrStoryAlreadyLiked
			}
			return fmt.Errorf("like story: %w", err)
		}
		return nil
	})
}

func (s *storyService) UnlikeStory(id, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		stories := s.storyRepo.WithTx(tx)

		exists, err := stories.Exists(id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrStoryNotFound
		}

		removed, err := stories.RemoveLike(id, userID)
		if err != nil {
			return fmt.Errorf("unlike story: %w", err)
		}
		if !removed {
			return ErrStoryNotLiked
		}
		return nil
	})
}
