package service

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bookbee/bookbee-backend/internal/app/model"
	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReviewService_Lifecycle(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	u1 := env.user(t, "u1")
	u2 := env.user(t, "u2")
	story := env.story(t, author.ID, "Scenario")

	rating, count := env.aggregateOf(t, story.ID)
	require.Zero(t, rating)
	require.Zero(t, count)

	// A: first review
	r1, err := env.reviews.CreateReview(u1.ID, story.ID, CreateReviewInput{Rating: 4, Comment: "good"})
	require.NoError(t, err)
	require.NotNil(t, r1.User)
	assert.Equal(t, "u1", r1.User.Name)
	rating, count = env.aggregateOf(t, story.ID)
	assert.Equal(t, 4.0, rating)
	assert.Equal(t, 1, count)

	// B: second user
	r2, err := env.reviews.CreateReview(u2.ID, story.ID, CreateReviewInput{Rating: 2, Comment: "meh"})
	require.NoError(t, err)
	rating, count = env.aggregateOf(t, story.ID)
	assert.Equal(t, 3.0, rating)
	assert.Equal(t, 2, count)

	// C: u1 raises their rating
	updated, err := env.reviews.UpdateReview(r1.ID, u1.ID, UpdateReviewInput{Rating: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "good", updated.Comment)
	rating, count = env.aggregateOf(t, story.ID)
	assert.Equal(t, 3.5, rating)
	assert.Equal(t, 2, count)

	// D: u2 deletes
	require.NoError(t, env.reviews.DeleteReview(r2.ID, u2.ID))
	rating, count = env.aggregateOf(t, story.ID)
	assert.Equal(t, 5.0, rating)
	assert.Equal(t, 1, count)

	// E: u1 deletes, back to the empty set
	require.NoError(t, env.reviews.DeleteReview(r1.ID, u1.ID))
	rating, count = env.aggregateOf(t, story.ID)
	assert.Zero(t, rating)
	assert.Zero(t, count)
}

func TestReviewService_CreateReview_Rejections(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Guarded")

	_, err := env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 3})
	require.NoError(t, err)

	tests := []struct {
		name    string
		storyID uint
		input   CreateReviewInput
		wantErr error
	}{
		{name: "Second review by same user", storyID: story.ID, input: CreateReviewInput{Rating: 5}, wantErr: ErrReviewAlreadyExists},
		{name: "Missing story", storyID: 9999, input: CreateReviewInput{Rating: 5}, wantErr: ErrStoryNotFound},
		{name: "Rating too low", storyID: story.ID, input: CreateReviewInput{Rating: 0}, wantErr: ErrInvalidRating},
		{name: "Rating too high", storyID: story.ID, input: CreateReviewInput{Rating: 6}, wantErr: ErrInvalidRating},
		{name: "Comment too long", storyID: story.ID, input: CreateReviewInput{Rating: 4, Comment: strings.Repeat("x", 1001)}, wantErr: ErrReviewCommentLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reviews.CreateReview(reader.ID, tt.storyID, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// rejected attempts leave the aggregate untouched
	rating, count := env.aggregateOf(t, story.ID)
	assert.Equal(t, 3.0, rating)
	assert.Equal(t, 1, count)
}

func TestReviewService_OnlyAuthorMayMutate(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	owner := env.user(t, "owner")
	intruder := env.user(t, "intruder")
	story := env.story(t, author.ID, "Owned")

	review, err := env.reviews.CreateReview(owner.ID, story.ID, CreateReviewInput{Rating: 4, Comment: "mine"})
	require.NoError(t, err)

	_, err = env.reviews.UpdateReview(review.ID, intruder.ID, UpdateReviewInput{Rating: intPtr(1)})
	assert.ErrorIs(t, err, ErrReviewForbidden)

	err = env.reviews.DeleteReview(review.ID, intruder.ID)
	assert.ErrorIs(t, err, ErrReviewForbidden)

	_, err = env.reviews.UpdateReview(9999, owner.ID, UpdateReviewInput{Rating: intPtr(1)})
	assert.ErrorIs(t, err, ErrReviewNotFound)

	assert.ErrorIs(t, env.reviews.DeleteReview(9999, owner.ID), ErrReviewNotFound)

	rating, count := env.aggregateOf(t, story.ID)
	assert.Equal(t, 4.0, rating)
	assert.Equal(t, 1, count)
}

func TestReviewService_UpdateReview_PartialFields(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Partial")

	review, err := env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 3, Comment: "first take"})
	require.NoError(t, err)

	// an explicit empty comment is applied, not treated as absent
	updated, err := env.reviews.UpdateReview(review.ID, reader.ID, UpdateReviewInput{Comment: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Comment)
	assert.Equal(t, 3, updated.Rating)

	// no fields at all still succeeds and keeps the aggregate consistent
	updated, err = env.reviews.UpdateReview(review.ID, reader.ID, UpdateReviewInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)

	_, err = env.reviews.UpdateReview(review.ID, reader.ID, UpdateReviewInput{Rating: intPtr(9)})
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestReviewService_DeleteThenReviewAgain(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Again")

	first, err := env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 1})
	require.NoError(t, err)
	require.NoError(t, env.reviews.DeleteReview(first.ID, reader.ID))

	_, err = env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 5})
	require.NoError(t, err)

	rating, count := env.aggregateOf(t, story.ID)
	assert.Equal(t, 5.0, rating)
	assert.Equal(t, 1, count)
}

func TestReviewService_GetStoryReviews(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	story := env.story(t, author.ID, "Listed")

	reviews, err := env.reviews.GetStoryReviews(story.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	for _, name := range []string{"early", "late"} {
		u := env.user(t, name)
		_, err := env.reviews.CreateReview(u.ID, story.ID, CreateReviewInput{Rating: 4})
		require.NoError(t, err)
	}

	reviews, err = env.reviews.GetStoryReviews(story.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "late", reviews[0].User.Name)
	assert.Equal(t, "early", reviews[1].User.Name)

	_, err = env.reviews.GetStoryReviews(9999)
	assert.ErrorIs(t, err, ErrStoryNotFound)
}

func TestReviewService_GetUserReviews(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	a := env.story(t, author.ID, "First Story")
	b := env.story(t, author.ID, "Second Story")

	for _, s := range []*model.Story{a, b} {
		_, err := env.reviews.CreateReview(reader.ID, s.ID, CreateReviewInput{Rating: 5})
		require.NoError(t, err)
	}

	reviews, err := env.reviews.GetUserReviews(reader.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "Second Story", reviews[0].Story.Title)

	none, err := env.reviews.GetUserReviews(author.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

type failingAggregator struct{}

func (a failingAggregator) WithTx(*gorm.DB) RatingAggregator { return a }
func (failingAggregator) RecomputeAggregate(uint) (Aggregate, error) {
	return Aggregate{}, errors.New("aggregate write failed")
}
func (failingAggregator) RecomputeAll() (int, error) { return 0, nil }

func TestReviewService_AggregateFailureRollsBackMutation(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Atomic")

	broken := NewReviewService(env.db, env.reviewRepo, env.storyRepo, failingAggregator{})

	_, err := broken.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 5})
	require.Error(t, err)

	exists, err := env.reviewRepo.ExistsForUser(reader.ID, story.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	review, err := env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 2})
	require.NoError(t, err)

	_, err = broken.UpdateReview(review.ID, reader.ID, UpdateReviewInput{Rating: intPtr(5)})
	require.Error(t, err)
	require.Error(t, broken.DeleteReview(review.ID, reader.ID))

	found, err := env.reviewRepo.FindByID(review.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Rating)

	rating, count := env.aggregateOf(t, story.ID)
	assert.Equal(t, 2.0, rating)
	assert.Equal(t, 1, count)
}

// callLog records repository calls in order across goroutines.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	calls := l.calls
	l.calls = nil
	return calls
}

type recordingStories struct {
	repository.StoryRepository
	log *callLog
}

func (r recordingStories) WithTx(tx *gorm.DB) repository.StoryRepository {
	return recordingStories{r.StoryRepository.WithTx(tx), r.log}
}

func (r recordingStories) LockByID(id uint) error {
	r.log.add("lock story")
	return r.StoryRepository.LockByID(id)
}

type recordingReviews struct {
	repository.ReviewRepository
	log *callLog
}

func (r recordingReviews) WithTx(tx *gorm.DB) repository.ReviewRepository {
	return recordingReviews{r.ReviewRepository.WithTx(tx), r.log}
}

func (r recordingReviews) ListRatingsByStory(storyID uint) ([]int, error) {
	r.log.add("read ratings")
	return r.ReviewRepository.ListRatingsByStory(storyID)
}

func TestReviewService_LocksStoryBeforeReadingRatings(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Serialised")

	log := &callLog{}
	stories := recordingStories{env.storyRepo, log}
	reviews := recordingReviews{env.reviewRepo, log}
	svc := NewReviewService(env.db, reviews, stories, NewRatingAggregator(reviews, stories))
	want := []string{"lock story", "read ratings"}

	review, err := svc.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, want, log.take())

	_, err = svc.UpdateReview(review.ID, reader.ID, UpdateReviewInput{Rating: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, want, log.take())

	require.NoError(t, svc.DeleteReview(review.ID, reader.ID))
	assert.Equal(t, want, log.take())

	_, err = svc.CreateReview(reader.ID, 9999, CreateReviewInput{Rating: 3})
	assert.ErrorIs(t, err, ErrStoryNotFound)
	assert.Equal(t, []string{"lock story"}, log.take())
}

func TestReviewService_ConcurrentCreatesKeepAggregate(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	story := env.story(t, author.ID, "Crowded")

	const readers = 8
	users := make([]*model.User, readers)
	for i := range users {
		users[i] = env.user(t, fmt.Sprintf("reader%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, readers)
	sum := 0
	for i, u := range users {
		rating := i%5 + 1
		sum += rating
		wg.Add(1)
		go func(userID uint, rating int) {
			defer wg.Done()
			_, err := env.reviews.CreateReview(userID, story.ID, CreateReviewInput{Rating: rating})
			errs <- err
		}(u.ID, rating)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rating, count := env.aggregateOf(t, story.ID)
	assert.Equal(t, readers, count)
	assert.InDelta(t, float64(sum)/readers, rating, 1e-9)
}

// blindReviews hides existing reviews from the pre-insert check.
type blindReviews struct {
	repository.ReviewRepository
}

func (r blindReviews) WithTx(tx *gorm.DB) repository.ReviewRepository {
	return blindReviews{r.ReviewRepository.WithTx(tx)}
}

func (blindReviews) ExistsForUser(uint, uint) (bool, error) { return false, nil }

func TestReviewService_UniqueIndexRejectsDuplicate(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Once Only")

	reviews := blindReviews{env.reviewRepo}
	svc := NewReviewService(env.db, reviews, env.storyRepo, NewRatingAggregator(reviews, env.storyRepo))

	_, err := svc.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = svc.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 2})
	assert.ErrorIs(t, err, ErrReviewAlreadyExists)

	rating, count := env.aggregateOf(t, story.ID)
	assert.Equal(t, 4.0, rating)
	assert.Equal(t, 1, count)
}

// recomputeCount reads rating_recompute_total for result from the metrics endpoint.
func recomputeCount(t *testing.T, result string) float64 {
	t.Helper()
	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	prefix := fmt.Sprintf(`rating_recompute_total{result="%s"} `, result)
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if strings.HasPrefix(line, prefix) {
			v, err := strconv.ParseFloat(strings.TrimPrefix(line, prefix), 64)
			require.NoError(t, err)
			return v
		}
	}
	return 0
}

// lateFailure recomputes for real and then fails, so the transaction rolls back
// after a successful recompute.
type lateFailure struct {
	inner RatingAggregator
}

func (a lateFailure) WithTx(tx *gorm.DB) RatingAggregator { return lateFailure{a.inner.WithTx(tx)} }
func (a lateFailure) RecomputeAggregate(storyID uint) (Aggregate, error) {
	if _, err := a.inner.RecomputeAggregate(storyID); err != nil {
		return Aggregate{}, err
	}
	return Aggregate{}, errors.New("commit refused")
}
func (a lateFailure) RecomputeAll() (int, error) { return a.inner.RecomputeAll() }

func TestReviewService_RecomputeMetricFollowsCommit(t *testing.T) {
	env := setupTestEnv(t)
	author := env.user(t, "author")
	reader := env.user(t, "reader")
	story := env.story(t, author.ID, "Counted")

	successBefore := recomputeCount(t, metrics.ResultSuccess)
	errorBefore := recomputeCount(t, metrics.ResultError)

	rolledBack := NewReviewService(env.db, env.reviewRepo, env.storyRepo, lateFailure{env.aggregator})
	_, err := rolledBack.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 5})
	require.Error(t, err)
	assert.Equal(t, successBefore, recomputeCount(t, metrics.ResultSuccess))
	assert.Equal(t, errorBefore+1, recomputeCount(t, metrics.ResultError))

	_, err = env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, successBefore+1, recomputeCount(t, metrics.ResultSuccess))

	_, err = env.reviews.CreateReview(reader.ID, story.ID, CreateReviewInput{Rating: 1})
	require.ErrorIs(t, err, ErrReviewAlreadyExists)
	assert.Equal(t, successBefore+1, recomputeCount(t, metrics.ResultSuccess))
	assert.Equal(t, errorBefore+1, recomputeCount(t, metrics.ResultError))
}
