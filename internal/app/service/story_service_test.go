package service

import (
	"strings"
	"testing"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryService_CreateStory_Validation(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")

	valid := CreateStoryInput{
		Title:       "The Long Road",
		Description: "Ten or more characters",
		Genres:      []string{"Drama"},
	}

	tests := []struct {
		name      string
		mutate    func(in *CreateStoryInput)
		wantField string
	}{
		{name: "Valid", mutate: func(in *CreateStoryInput) {}},
		{name: "Missing title", mutate: func(in *CreateStoryInput) { in.Title = "   " }, wantField: "title"},
		{name: "Title too long", mutate: func(in *CreateStoryInput) { in.Title = strings.Repeat("t", 101) }, wantField: "title"},
		{name: "Short description", mutate: func(in *CreateStoryInput) { in.Description = "short" }, wantField: "description"},
		{name: "No genres", mutate: func(in *CreateStoryInput) { in.Genres = []string{" "} }, wantField: "genres"},
		{name: "Bad status", mutate: func(in *CreateStoryInput) { in.Status = "abandoned" }, wantField: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			story, err := env.stories.CreateStory(author.ID, in)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, model.StoryStatusOngoing, story.Status)
				assert.Zero(t, story.Rating)
				assert.Zero(t, story.ReviewCount)
				require.NotNil(t, story.Author)
				assert.Equal(t, "author", story.Author.Name)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestStoryService_GetStoryCountsViews(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	story := env.story(t, author.ID, "Viewed")

	first, err := env.stories.GetStory(story.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Views)

	second, err := env.stories.GetStory(story.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Views)

	_, err = env.stories.GetStory(9999, nil)
	assert.ErrorIs(t, err, ErrStoryNotFound)
}

func TestStoryService_UpdateStory(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	other := env.user(t, "other")
	story := env.story(t, author.ID, "Original")

	updated, err := env.stories.UpdateStory(story.ID, author.ID, UpdateStoryInput{
		Status: strPtr("completed"),
		Tags:   strsPtr([]string{}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Original", updated.Title)
	assert.Equal(t, model.StoryStatusCompleted, updated.Status)
	assert.Empty(t, updated.Tags)
	assert.Equal(t, model.StringArray{"Fantasy"}, updated.Genres)

	_, err = env.stories.UpdateStory(story.ID, other.ID, UpdateStoryInput{Title: strPtr("Hijacked")})
	assert.ErrorIs(t, err, ErrStoryForbidden)

	_, err = env.stories.UpdateStory(9999, author.ID, UpdateStoryInput{Title: strPtr("Ghost")})
	assert.ErrorIs(t, err, ErrStoryNotFound)

	_, err = env.stories.UpdateStory(story.ID, author.ID, UpdateStoryInput{Genres: strsPtr(nil)})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestStoryService_UpdateStoryKeepsAggregate(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Rated")

	_, err := env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = env.stories.UpdateStory(story.ID, author.ID, UpdateStoryInput{Title: strPtr("Renamed")})
	require.NoError(t, err)

	rating, count := env.aggregateOf(t, story.ID)
	assert.Equal(t, 4.0, rating)
	assert.Equal(t, 1, count)
}

func TestStoryService_DeleteStoryCascades(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Doomed")

	_, err := env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 3})
	require.NoError(t, err)
	_, err = env.chapters.CreateChapter(story.ID, author.ID, "One", strings.Repeat("c", 30))
	require.NoError(t, err)
	_, err = env.reading.AddBookmark(reader.ID, story.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.stories.DeleteStory(story.ID, reader.ID), ErrStoryForbidden)
	require.NoError(t, env.stories.DeleteStory(story.ID, author.ID))

	_, err = env.stories.GetStory(story.ID, nil)
	assert.ErrorIs(t, err, ErrStoryNotFound)

	reviews, err := env.reviews.GetUserReviews(reader.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	bookmarks, err := env.reading.GetBookmarks(reader.ID)
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
}

func TestStoryService_Likes(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Liked")

	require.NoError(t, env.stories.LikeStory(story.ID, reader.ID))
	assert.ErrorIs(t, env.stories.LikeStory(story.ID, reader.ID), ErrStoryAlreadyLiked)

	require.NoError(t, env.stories.UnlikeStory(story.ID, reader.ID))
	assert.ErrorIs(t, env.stories.UnlikeStory(story.ID, reader.ID), ErrStoryNotLiked)

	assert.ErrorIs(t, env.stories.LikeStory(9999, reader.ID), ErrStoryNotFound)
}

func TestStoryService_GetStoryReportsViewerLike(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Liked")
	require.NoError(t, env.stories.LikeStory(story.ID, reader.ID))

	anonymous, err := env.stories.GetStory(story.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, anonymous.Liked)

	asReader, err := env.stories.GetStory(story.ID, uintPtr(reader.ID))
	require.NoError(t, err)
	require.NotNil(t, asReader.Liked)
	assert.True(t, *asReader.Liked)
	assert.Equal(t, 1, asReader.LikeCount)

	asAuthor, err := env.stories.GetStory(story.ID, uintPtr(author.ID))
	require.NoError(t, err)
	require.NotNil(t, asAuthor.Liked)
	assert.False(t, *asAuthor.Liked)
}

func TestStoryService_ListStoriesPaginates(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	for _, title := range []string{"One", "Two", "Three"} {
		env.story(t, author.ID, title)
	}

	page, err := env.stories.ListStories(util.Paginate("2", "2"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Stories, 1)
	assert.Equal(t, "One", page.Stories[0].Title)

	mine, err := env.stories.GetUserStories(author.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}
