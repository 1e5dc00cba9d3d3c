package repository

import (
	"fmt"
	"testing"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createUser(t *testing.T, testDB *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@bookbee.test", name),
		PasswordHash: "hashedpassword",
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func createStory(t *testing.T, testDB *gorm.DB, authorID uint, title string) *model.Story {
	t.Helper()
	story := &model.Story{
		AuthorID:    authorID,
		Title:       title,
		Description: "A story long enough to pass validation",
		Genres:      model.StringArray{"Fantasy"},
		Status:      model.StoryStatusOngoing,
	}
	require.NoError(t, testDB.Create(story).Error)
	return story
}
