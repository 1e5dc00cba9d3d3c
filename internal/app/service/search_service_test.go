package service

import (
	"testing"

	"github.com/bookbee/bookbee-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchService_SearchStories(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	_, err := env.stories.CreateStory(alice.ID, CreateStoryInput{
		Title: "Sky Pirates", Description: "Airships and treasure maps",
		Genres: []string{"Adventure"}, Tags: []string{"steampunk"},
	})
	require.NoError(t, err)
	_, err = env.stories.CreateStory(bob.ID, CreateStoryInput{
		Title: "Quiet Harbor", Description: "A slow romance by the sea",
		Genres: []string{"Romance"}, Status: "completed",
	})
	require.NoError(t, err)

	page := util.Paginate("", "")

	tests := []struct {
		name       string
		query      SearchQuery
		wantTitles []string
	}{
		{name: "No filters newest first", query: SearchQuery{}, wantTitles: []string{"Quiet Harbor", "Sky Pirates"}},
		{name: "Text in title", query: SearchQuery{Q: "pirates"}, wantTitles: []string{"Sky Pirates"}},
		{name: "Text in tags", query: SearchQuery{Q: "STEAM"}, wantTitles: []string{"Sky Pirates"}},
		{name: "Genre", query: SearchQuery{Genre: "Romance"}, wantTitles: []string{"Quiet Harbor"}},
		{name: "Status", query: SearchQuery{Status: "completed"}, wantTitles: []string{"Quiet Harbor"}},
		{name: "Author name", query: SearchQuery{Author: "ALI"}, wantTitles: []string{"Sky Pirates"}},
		{name: "Unknown author is ignored", query: SearchQuery{Author: "zed"}, wantTitles: []string{"Quiet Harbor", "Sky Pirates"}},
		{name: "Oldest first", query: SearchQuery{Sort: "oldest"}, wantTitles: []string{"Sky Pirates", "Quiet Harbor"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.query.Page = page
			result, err := env.search.SearchStories(tt.query)
			require.NoError(t, err)

			titles := make([]string, 0, len(result.Stories))
			for _, s := range result.Stories {
				titles = append(titles, s.Title)
			}
			assert.Equal(t, tt.wantTitles, titles)
			assert.Equal(t, int64(len(tt.wantTitles)), result.Total)
		})
	}

	_, err = env.search.SearchStories(SearchQuery{Status: "lost", Page: page})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSearchService_PopularAndGenre(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	quiet := env.story(t, author.ID, "Quiet")
	loud := env.story(t, author.ID, "Loud")

	for i := 0; i < 3; i++ {
		_, err := env.stories.GetStory(loud.ID, nil)
		require.NoError(t, err)
	}

	popular, err := env.search.GetPopularStories(util.Paginate("1", "10"))
	require.NoError(t, err)
	require.Len(t, popular.Stories, 2)
	assert.Equal(t, loud.ID, popular.Stories[0].ID)
	assert.Equal(t, quiet.ID, popular.Stories[1].ID)

	byGenre, err := env.search.GetStoriesByGenre("fantasy", util.Paginate("1", "1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), byGenre.Total)
	assert.Equal(t, 2, byGenre.Pages)
	assert.Len(t, byGenre.Stories, 1)
}
