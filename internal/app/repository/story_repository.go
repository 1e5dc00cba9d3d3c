package repository

import (
	"encoding/json"
	"strings"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StorySort string

const (
	StorySortNewest  StorySort = "newest"
	StorySortOldest  StorySort = "oldest"
	StorySortPopular StorySort = "popular"
	StorySortRating  StorySort = "rating"
)

// ParseStorySort falls back to newest for unknown keys.
func ParseStorySort(s string) StorySort {
	switch StorySort(strings.ToLower(s)) {
	case StorySortOldest:
		return StorySortOldest
	case StorySortPopular:
		return StorySortPopular
	case StorySortRating:
		return StorySortRating
	default:
		return StorySortNewest
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere in a column; use with ESCAPE '\'.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

type StoryFilter struct {
	Search   string // matched against title, description and tags
	Genre    string
	Status   model.StoryStatus
	AuthorID *uint
	SortBy   StorySort
	Limit    int
	Offset   int
}

type StoryRepository interface {
	WithTx(tx *gorm.DB) StoryRepository

	Create(story *model.Story) error
	CreateInBatches(stories []model.Story, batchSize int) error
	FindByID(id uint) (*model.Story, error)
	Exists(id uint) (bool, error)

	// LockByID takes a row lock on the live story until the surrounding transaction ends.
	// Returns gorm.ErrRecordNotFound when no live story has the id.
	LockByID(id uint) error
	FindWithFilter(filter StoryFilter) ([]model.Story, int64, error)
	FindByAuthor(authorID uint) ([]model.Story, error)
	ListIDs() ([]uint, error)
	Update(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	IncrementViews(id uint) error

	// UpdateAggregate overwrites the materialised rating and review count.
	// Returns gorm.ErrRecordNotFound when no live story has the id.
	UpdateAggregate(id uint, rating float64, reviewCount int) error

	AddLike(storyID, userID uint) error
	RemoveLike(storyID, userID uint) (bool, error)
	HasLiked(storyID, userID uint) (bool, error)
}

type storyRepository struct {
	db *gorm.DB
}

func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) WithTx(tx *gorm.DB) StoryRepository {
	return &storyRepository{db: tx}
}

func (r *storyRepository) Create(story *model.Story) error {
	logger.Debug("Creating story in database", map[string]interface{}{
		"author_id": story.AuthorID,
		"title":     story.Title,
	})

	if err := r.db.Omit("Author").Create(story).Error; err != nil {
		logger.Error("Failed to create story in database", err, map[string]interface{}{
			"author_id": story.AuthorID,
			"title":     story.Title,
		})
		return err
	}

	logger.Debug("Story created in database", map[string]interface{}{
		"story_id": story.ID,
	})
	return nil
}

func (r *storyRepository) CreateInBatches(stories []model.Story, batchSize int) error {
	if len(stories) == 0 {
		return nil
	}
	return r.db.Omit("Author").CreateInBatches(stories, batchSize).Error
}

func (r *storyRepository) FindByID(id uint) (*model.Story, error) {
	var story model.Story
	err := r.db.Preload("Author").First(&story, id).Error
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *storyRepository) Exists(id uint) (bool, error) {
	var count int64
	if err := r.db.Model(&model.Story{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *storyRepository) LockByID(id uint) error {
	var story model.Story
	return r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&story, id).Error
}

func (r *storyRepository) FindWithFilter(filter StoryFilter) ([]model.Story, int64, error) {
	logger.Debug("Finding stories with filter", map[string]interface{}{
		"search":    filter.Search,
		"genre":     filter.Genre,
		"status":    filter.Status,
		"author_id": filter.AuthorID,
		"sort_by":   filter.SortBy,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})

	query := r.db.Model(&model.Story{})

	if filter.Search != "" {
		like := containsPattern(strings.ToLower(filter.Search))
		query = query.Where(
			`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`,
			like, like, like,
		)
	}
	if filter.Genre != "" {
		// genres are stored as a JSON array, so match the quoted element
		quoted, _ := json.Marshal(strings.ToLower(filter.Genre))
		query = query.Where(`LOWER(genres) LIKE ? ESCAPE '\'`, containsPattern(string(quoted)))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AuthorID != nil {
		query = query.Where("author_id = ?", *filter.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count stories", err)
		return nil, 0, err
	}

	switch filter.SortBy {
	case StorySortOldest:
		query = query.Order("created_at ASC").Order("id ASC")
	case StorySortPopular:
		query = query.Order("views DESC").Order("created_at DESC").Order("id DESC")
	case StorySortRating:
		query = query.Order("rating DESC").Order("review_count DESC").Order("id DESC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	stories := []model.Story{}
	if err := query.Preload("Author").Find(&stories).Error; err != nil {
		logger.Error("Failed to find stories with filter", err)
		return nil, 0, err
	}

	return stories, total, nil
}

func (r *storyRepository) FindByAuthor(authorID uint) ([]model.Story, error) {
	stories := []model.Story{}
	err := r.db.Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&stories).Error
	return stories, err
}

func (r *storyRepository) ListIDs() ([]uint, error) {
	ids := []uint{}
	err := r.db.Model(&model.Story{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *storyRepository) Update(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	logger.Debug("Updating story in database", map[string]interface{}{
		"story_id": id,
		"fields":   len(updates),
	})

	if err := r.db.Model(&model.Story{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		logger.Error("Failed to update story in database", err, map[string]interface{}{
			"story_id": id,
		})
		return err
	}
	return nil
}

// Delete soft-deletes the story and drops its likes.
func (r *storyRepository) Delete(id uint) error {
	if err := r.db.Where("story_id = ?", id).Delete(&model.StoryLike{}).Error; err != nil {
		return err
	}
	result := r.db.Delete(&model.Story{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete story from database", result.Error, map[string]interface{}{
			"story_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *storyRepository) IncrementViews(id uint) error {
	return r.db.Model(&model.Story{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

func (r *storyRepository) UpdateAggregate(id uint, rating float64, reviewCount int) error {
	result := r.db.Model(&model.Story{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"rating":       rating,
			"review_count": reviewCount,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *storyRepository) AddLike(storyID, userID uint) error {
	like := &model.StoryLike{StoryID: storyID, UserID: userID}
	if err := r.db.Create(like).Error; err != nil {
		return err
	}
	return r.db.Model(&model.Story{}).
		Where("id = ?", storyID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error
}

// RemoveLike reports false when the user had not liked the story.
func (r *storyRepository) RemoveLike(storyID, userID uint) (bool, error) {
	result := r.db.Where("story_id = ? AND user_id = ?", storyID, userID).Delete(&model.StoryLike{})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	err := r.db.Model(&model.Story{}).
		Where("id = ? AND like_count > 0", storyID).
		UpdateColumn("like_count", gorm.Expr("like_count - ?", 1)).Error
	return true, err
}

func (r *storyRepository) HasLiked(storyID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.StoryLike{}).
		Where("story_id = ? AND user_id = ?", storyID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
