package service

import (
	"errors"
	"strings"

	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"github.com/bookbee/bookbee-backend/pkg/util"
	"gorm.io/gorm"
)

type SearchQuery struct {
	Q      string
	Genre  string
	Status string
	Author string // matched against user names
	Sort   string
	Page   util.Page
}

type SearchService interface {
	SearchStories(query SearchQuery) (*StoryPage, error)
	GetStoriesByGenre(genre string, page util.Page) (*StoryPage, error)
	GetPopularStories(page util.Page) (*StoryPage, error)
}

type searchService struct {
	storyRepo repository.StoryRepository
	userRepo  repository.UserRepository
}

func NewSearchService(storyRepo repository.StoryRepository, userRepo repository.UserRepository) SearchService {
	return &searchService{
		storyRepo: storyRepo,
		userRepo:  userRepo,
	}
}

func (s *searchService) find(filter repository.StoryFilter, page util.Page) (*StoryPage, error) {
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	stories, total, err := s.storyRepo.FindWithFilter(filter)
	if err != nil {
		return nil, err
	}
	return newStoryPage(stories, total, page), nil
}

func (s *searchService) SearchStories(query SearchQuery) (*StoryPage, error) {
	filter := repository.StoryFilter{
		Search: strings.TrimSpace(query.Q),
		Genre:  strings.TrimSpace(query.Genre),
		SortBy: repository.ParseStorySort(query.Sort),
	}

	if status := strings.TrimSpace(query.Status); status != "" {
		st, err := parseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}

	// an author name that matches nobody leaves the result unfiltered
	if name := strings.TrimSpace(query.Author); name != "" {
		user, err := s.userRepo.FindFirstByName(name)
		switch {
		case err == nil:
			filter.AuthorID = &user.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			logger.Debug("Author filter matched no user", map[string]interface{}{
				"author": name,
			})
		default:
			return nil, err
		}
	}

	return s.find(filter, query.Page)
}

func (s *searchService) GetStoriesByGenre(genre string, page util.Page) (*StoryPage, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, invalid("genre", "is required")
	}
	return s.find(repository.StoryFilter{Genre: genre, SortBy: repository.StorySortNewest}, page)
}

func (s *searchService) GetPopularStories(page util.Page) (*StoryPage, error) {
	return s.find(repository.StoryFilter{SortBy: repository.StorySortPopular}, page)
}
