package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		wantCode string
	}{
		{name: "Nil error", err: nil, context: "get story", wantCode: InternalServerError},
		{name: "Review not found", err: gorm.ErrRecordNotFound, context: "update review", wantCode: ReviewNotFound},
		{name: "Story not found", err: fmt.Errorf("wrap: %w", gorm.ErrRecordNotFound), context: "get story", wantCode: StoryNotFound},
		{name: "Translated duplicate review", err: gorm.ErrDuplicatedKey, context: "create review", wantCode: ReviewAlreadyExists},
		{
			name:     "Postgres duplicate email",
			err:      errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`),
			context:  "register",
			wantCode: AuthEmailAlreadyExists,
		},
		{name: "SQLite duplicate bookmark", err: errors.New("UNIQUE constraint failed: bookmarks.user_id, bookmarks.story_id"), context: "add bookmark", wantCode: BookmarkAlreadyExists},
		{name: "Rating check", err: errors.New(`new row violates check constraint "chk_reviews_rating"`), context: "create review", wantCode: ReviewInvalidRating},
		{name: "Foreign key", err: errors.New("violates foreign key constraint"), context: "create chapter", wantCode: ResourceNotFound},
		{name: "Unknown", err: errors.New("boom"), context: "delete story", wantCode: InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestForbiddenUsesOwnerOnlyCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Forbidden(c, "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), AuthzOwnerOnly)
	assert.Contains(t, w.Body.String(), "Not authorized")
}
