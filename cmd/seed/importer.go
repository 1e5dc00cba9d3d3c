package main

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const importBatchSize = 500

var requiredColumns = []string{"title", "description", "genres", "author_email"}

// storyRow is one sheet row keyed by lower-cased header name.
type storyRow struct {
	line   int
	fields map[string]string
}

func (r storyRow) get(column string) string {
	return strings.TrimSpace(r.fields[column])
}

func splitList(s string) model.StringArray {
	return model.StringArray(strings.Split(s, ",")).Normalize()
}

// readStoryRows reads the first sheet; the first row names the columns.
func readStoryRows(filePath string) ([]storyRow, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("no data found in XLSX file")
	}

	header := make([]string, len(rows[0]))
	present := make(map[string]bool, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(name))
		present[header[i]] = true
	}
	for _, col := range requiredColumns {
		if !present[col] {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	out := make([]storyRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(header))
		for j, cell := range row {
			if j < len(header) {
				fields[header[j]] = cell
			}
		}
		out = append(out, storyRow{line: i + 2, fields: fields})
	}
	return out, nil
}

type storyImporter struct {
	userRepo  repository.UserRepository
	storyRepo repository.StoryRepository
	authors   map[string]uint
}

func newStoryImporter(userRepo repository.UserRepository, storyRepo repository.StoryRepository) *storyImporter {
	return &storyImporter{
		userRepo:  userRepo,
		storyRepo: storyRepo,
		authors:   make(map[string]uint),
	}
}

func (im *storyImporter) authorID(email string) (uint, error) {
	email = strings.ToLower(email)
	if id, ok := im.authors[email]; ok {
		return id, nil
	}
	user, err := im.userRepo.FindByEmail(email)
	if err != nil {
		return 0, err
	}
	im.authors[email] = user.ID
	return user.ID, nil
}

// fitsColumns reports whether title and description respect the story column limits.
func fitsColumns(title, description string) bool {
	if utf8.RuneCountInString(title) > model.StoryTitleMaxLength {
		return false
	}
	n := utf8.RuneCountInString(description)
	return n >= model.StoryDescriptionMinLength && n <= model.StoryDescriptionMaxLength
}

// build converts rows into stories, skipping rows that are incomplete, too long
// or name an unknown author.
func (im *storyImporter) build(rows []storyRow) ([]model.Story, int, error) {
	stories := make([]model.Story, 0, len(rows))
	skipped := 0

	for _, row := range rows {
		title, description := row.get("title"), row.get("description")
		genres := splitList(row.get("genres"))
		if title == "" || description == "" || len(genres) == 0 {
			logger.Warn("Skipping incomplete row", map[string]interface{}{"line": row.line})
			skipped++
			continue
		}
		if !fitsColumns(title, description) {
			logger.Warn("Skipping row outside story length limits", map[string]interface{}{
				"line":               row.line,
				"title_length":       utf8.RuneCountInString(title),
				"description_length": utf8.RuneCountInString(description),
			})
			skipped++
			continue
		}

		status := model.StoryStatus(strings.ToLower(row.get("status")))
		if status == "" {
			status = model.StoryStatusOngoing
		}
		if !status.Valid() {
			logger.Warn("Skipping row with unknown status", map[string]interface{}{
				"line":   row.line,
				"status": status,
			})
			skipped++
			continue
		}

		authorID, err := im.authorID(row.get("author_email"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("Skipping row with unknown author", map[string]interface{}{
					"line":  row.line,
					"email": row.get("author_email"),
				})
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("resolve author on line %d: %w", row.line, err)
		}

		stories = append(stories, model.Story{
			AuthorID:    authorID,
			Title:       title,
			Description: description,
			CoverImage:  row.get("cover_image"),
			Genres:      genres,
			Tags:        splitList(row.get("tags")),
			Status:      status,
		})
	}
	return stories, skipped, nil
}

func (im *storyImporter) save(stories []model.Story) error {
	if len(stories) == 0 {
		return nil
	}
	return im.storyRepo.CreateInBatches(stories, importBatchSize)
}
