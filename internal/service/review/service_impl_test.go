package review

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/domain/srs"
)

type reviewEnv struct {
	svc    Service
	mock   sqlmock.Sqlmock
	cards  *memFlashcardStore
	states *memCardStateStore
	items  *memReviewItemStore
}

func newReviewEnv(t *testing.T, newPerSession int) *reviewEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &reviewEnv{
		mock:   mock,
		cards:  newMemFlashcardStore(),
		states: newMemCardStateStore(),
		items:  &memReviewItemStore{},
	}
	env.svc = NewService(db, env.cards, env.states, env.items, srs.NewDefaultService(), newPerSession, nil)
	return env
}

// seedCard creates a card plus scheduling state shaped by the mutate hook.
func (e *reviewEnv) seedCard(t *testing.T, userID uuid.UUID, mutate func(*domain.UserFlashcardState)) *domain.Flashcard {
	t.Helper()

	card, err := domain.NewFlashcard(userID, "front", "back", domain.CardTypeConcept)
	require.NoError(t, err)
	require.NoError(t, e.cards.Create(context.Background(), card))

	state, err := domain.NewUserFlashcardState(userID, card.ID)
	require.NoError(t, err)
	if mutate != nil {
		mutate(state)
	}
	require.NoError(t, e.states.Upsert(context.Background(), state))
	return card
}

func TestGetQueue_BucketsAreDisjoint(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()
	now := time.Now().UTC()

	learning := env.seedCard(t, userID, func(s *domain.UserFlashcardState) {
		s.Repetitions = 2
		s.IntervalDays = 5
		s.LastReviewedAt = now.AddDate(0, 0, -5)
		s.DueAt = now.Add(-time.Hour)
	})
	mature := env.seedCard(t, userID, func(s *domain.UserFlashcardState) {
		s.Repetitions = 6
		s.IntervalDays = 40
		s.LastReviewedAt = now.AddDate(0, 0, -40)
		s.DueAt = now.Add(-time.Hour)
	})
	fresh := env.seedCard(t, userID, nil)

	// Not due and past the young threshold: in no bucket.
	env.seedCard(t, userID, func(s *domain.UserFlashcardState) {
		s.Repetitions = 6
		s.IntervalDays = 40
		s.LastReviewedAt = now.AddDate(0, 0, -10)
		s.DueAt = now.AddDate(0, 0, 30)
	})
	// Suspended cards never enter any bucket.
	env.seedCard(t, userID, func(s *domain.UserFlashcardState) {
		s.Suspended = true
	})

	queue, err := env.svc.GetQueue(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, queue.Learning, 1)
	assert.Equal(t, learning.ID, queue.Learning[0].Card.ID)
	assert.Equal(t, srs.MaturityLearning, queue.Learning[0].Maturity)

	require.Len(t, queue.Due, 1)
	assert.Equal(t, mature.ID, queue.Due[0].Card.ID)
	assert.Equal(t, srs.MaturityMature, queue.Due[0].Maturity)

	require.Len(t, queue.New, 1)
	assert.Equal(t, fresh.ID, queue.New[0].Card.ID)
	assert.Equal(t, srs.MaturityNew, queue.New[0].Maturity)
}

func TestGetQueue_LapsedCardSurfacesWhenDue(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()
	now := time.Now().UTC()

	// An "again" grade resets repetitions to zero but the card has been
	// reviewed, so it is not new. Once due it belongs to the due bucket.
	lapsed := env.seedCard(t, userID, func(s *domain.UserFlashcardState) {
		s.Repetitions = 0
		s.LapseCount = 1
		s.IntervalDays = 0
		s.LastReviewedAt = now.Add(-time.Hour)
		s.DueAt = now.Add(-30 * time.Minute)
	})

	queue, err := env.svc.GetQueue(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, queue.Due, 1)
	assert.Equal(t, lapsed.ID, queue.Due[0].Card.ID)
	assert.Empty(t, queue.Learning)
	assert.Empty(t, queue.New)
}

func TestGetQueue_NewBucketIsCapped(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 2)
	userID := uuid.New()
	for i := 0; i < 5; i++ {
		env.seedCard(t, userID, nil)
	}

	queue, err := env.svc.GetQueue(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, queue.New, 2)
}

func TestGradeCard_GoodAdvancesState(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()
	card := env.seedCard(t, userID, nil)

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	next, err := env.svc.GradeCard(context.Background(), userID, card.ID, domain.ReviewGradeGood)
	require.NoError(t, err)

	assert.Equal(t, 1, next.Repetitions)
	assert.Equal(t, 1, next.IntervalDays)

	persisted, err := env.states.Get(context.Background(), userID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, next.Repetitions, persisted.Repetitions)
	assert.Equal(t, next.DueAt, persisted.DueAt)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestGradeCard_RejectsInvalidGrade(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()
	card := env.seedCard(t, userID, nil)

	_, err := env.svc.GradeCard(context.Background(), userID, card.ID, domain.ReviewGrade("amazing"))
	assert.ErrorIs(t, err, ErrInvalidGrade)
}

func TestGradeCard_UnknownCard(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)

	_, err := env.svc.GradeCard(context.Background(), uuid.New(), uuid.New(), domain.ReviewGradeGood)
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestGradeCard_OtherUsersCard(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	owner := uuid.New()
	card := env.seedCard(t, owner, nil)

	_, err := env.svc.GradeCard(context.Background(), uuid.New(), card.ID, domain.ReviewGradeGood)
	assert.ErrorIs(t, err, ErrCardNotOwned)
}

func TestPreviewCard_DoesNotTouchState(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()
	card := env.seedCard(t, userID, nil)

	before, err := env.states.Get(context.Background(), userID, card.ID)
	require.NoError(t, err)

	preview, err := env.svc.PreviewCard(context.Background(), userID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "10m", preview.Again)
	assert.Equal(t, "1d", preview.Good)

	after, err := env.states.Get(context.Background(), userID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCreateCard_StateEntersNewQueue(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	card, err := env.svc.CreateCard(context.Background(), CreateCardRequest{
		UserID: userID,
		Front:  "What does the select statement block on?",
		Back:   "The first ready communication case.",
		Type:   domain.CardTypeConcept,
		Tags:   map[string]string{"topic": "channels"},
	})
	require.NoError(t, err)

	state, err := env.states.Get(context.Background(), userID, card.ID)
	require.NoError(t, err)
	assert.True(t, state.IsNew())

	queue, err := env.svc.GetQueue(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, queue.New, 1)
	assert.Equal(t, card.ID, queue.New[0].Card.ID)
}

func TestCreateCards_BulkSeedsDeckAtomically(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	cards, err := env.svc.CreateCards(context.Background(), []CreateCardRequest{
		{UserID: userID, Front: "What blocks a select?", Back: "No ready case.", Type: domain.CardTypeConcept},
		{UserID: userID, Front: "What closes a channel?", Back: "The sender.", Type: domain.CardTypeConcept},
		{UserID: userID, Front: "What is a nil map write?", Back: "A panic.", Type: domain.CardTypeConcept},
	})
	require.NoError(t, err)
	require.Len(t, cards, 3)

	for _, card := range cards {
		state, err := env.states.Get(context.Background(), userID, card.ID)
		require.NoError(t, err)
		assert.True(t, state.IsNew(), "seeded cards start in the new queue")
	}

	queue, err := env.svc.GetQueue(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, queue.New, 3)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateCards_InvalidCardRejectsWholeBatch(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()

	// No transaction expectations: validation fails before any write.
	_, err := env.svc.CreateCards(context.Background(), []CreateCardRequest{
		{UserID: userID, Front: "valid front", Back: "valid back", Type: domain.CardTypeConcept},
		{UserID: userID, Front: "", Back: "missing front", Type: domain.CardTypeConcept},
	})
	require.Error(t, err)
	assert.Empty(t, env.cards.cards)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateCards_EmptyBatchIsANoOp(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)

	cards, err := env.svc.CreateCards(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestCreateCard_RejectsInvalidCard(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)

	_, err := env.svc.CreateCard(context.Background(), CreateCardRequest{
		UserID: uuid.New(),
		Front:  "",
		Back:   "back",
		Type:   domain.CardTypeConcept,
	})
	assert.Error(t, err)
}

func TestSuspendCard_RemovesFromQueuesUntilUnsuspended(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()
	card := env.seedCard(t, userID, nil)

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	require.NoError(t, env.svc.SuspendCard(context.Background(), userID, card.ID))

	queue, err := env.svc.GetQueue(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, queue.New)

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	require.NoError(t, env.svc.UnsuspendCard(context.Background(), userID, card.ID))

	queue, err = env.svc.GetQueue(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, queue.New, 1)
}

func TestGetStats_CountsBucketsAndSuspended(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()
	now := time.Now().UTC()

	env.seedCard(t, userID, nil)
	env.seedCard(t, userID, func(s *domain.UserFlashcardState) {
		s.Repetitions = 2
		s.IntervalDays = 5
		s.LastReviewedAt = now.AddDate(0, 0, -5)
		s.DueAt = now.Add(-time.Minute)
	})
	env.seedCard(t, userID, func(s *domain.UserFlashcardState) {
		s.Repetitions = 8
		s.IntervalDays = 60
		s.LastReviewedAt = now.AddDate(0, 0, -10)
		s.DueAt = now.AddDate(0, 0, 50)
	})
	env.seedCard(t, userID, func(s *domain.UserFlashcardState) {
		s.Suspended = true
	})

	stats, err := env.svc.GetStats(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.Learning)
	assert.Equal(t, 1, stats.Mature)
	assert.Equal(t, 1, stats.Suspended)
	// The new card and the learning card are due; the suspended one is
	// not counted at all.
	assert.Equal(t, 2, stats.DueNow)
}

func TestListDueLessonReviews(t *testing.T) {
	t.Parallel()

	env := newReviewEnv(t, 10)
	userID := uuid.New()
	lessonID := uuid.New()
	now := time.Now().UTC()

	past, err := domain.NewReviewItem(userID, lessonID, now.Add(-time.Hour))
	require.NoError(t, err)
	future, err := domain.NewReviewItem(userID, lessonID, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.NoError(t, env.items.CreateMultiple(context.Background(), []*domain.ReviewItem{past, future}))

	due, err := env.svc.ListDueLessonReviews(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)
}
