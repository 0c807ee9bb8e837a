package submission

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/catalog"
	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/oracle"
	"github.com/praxislabs/mastery-api/internal/store"
)

// The fakes below keep everything in memory and treat WithTx as a no-op,
// so the service's transactional flow can be exercised against a sqlmock
// database without a real Postgres.

type fakeSubmissionStore struct {
	subs map[uuid.UUID]*domain.Submission
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{subs: make(map[uuid.UUID]*domain.Submission)}
}

func (f *fakeSubmissionStore) Create(_ context.Context, sub *domain.Submission) error {
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeSubmissionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Submission, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, store.ErrSubmissionNotFound
	}
	cp := *sub
	if sub.DefenseMeta != nil {
		meta := *sub.DefenseMeta
		cp.DefenseMeta = &meta
	}
	return &cp, nil
}

func (f *fakeSubmissionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeSubmissionStore) Update(_ context.Context, sub *domain.Submission) error {
	if _, ok := f.subs[sub.ID]; !ok {
		return store.ErrSubmissionNotFound
	}
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeSubmissionStore) CountPassedForLesson(_ context.Context, userID, lessonID, excludeID uuid.UUID) (int, error) {
	count := 0
	for _, sub := range f.subs {
		if sub.ID == excludeID || sub.UserID != userID || sub.Status != domain.SubmissionStatusPassed {
			continue
		}
		if sub.LessonID != nil && *sub.LessonID == lessonID {
			count++
		}
	}
	return count, nil
}

func (f *fakeSubmissionStore) CountPassedForQuest(_ context.Context, userID, questID, excludeID uuid.UUID) (int, error) {
	count := 0
	for _, sub := range f.subs {
		if sub.ID == excludeID || sub.UserID != userID || sub.Status != domain.SubmissionStatusPassed {
			continue
		}
		if sub.QuestID != nil && *sub.QuestID == questID {
			count++
		}
	}
	return count, nil
}

func (f *fakeSubmissionStore) WithTx(_ *sql.Tx) store.SubmissionStore { return f }

var _ store.SubmissionStore = (*fakeSubmissionStore)(nil)

type fakeReviewItemStore struct {
	items []*domain.ReviewItem
}

func (f *fakeReviewItemStore) CreateMultiple(_ context.Context, items []*domain.ReviewItem) error {
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeReviewItemStore) CountForLesson(_ context.Context, userID, lessonID uuid.UUID) (int, error) {
	count := 0
	for _, item := range f.items {
		if item.UserID == userID && item.LessonID == lessonID {
			count++
		}
	}
	return count, nil
}

func (f *fakeReviewItemStore) ListDue(_ context.Context, userID uuid.UUID, asOf time.Time) ([]*domain.ReviewItem, error) {
	var due []*domain.ReviewItem
	for _, item := range f.items {
		if item.UserID == userID && !item.DueAt.After(asOf) {
			due = append(due, item)
		}
	}
	return due, nil
}

func (f *fakeReviewItemStore) WithTx(_ *sql.Tx) store.ReviewItemStore { return f }

var _ store.ReviewItemStore = (*fakeReviewItemStore)(nil)

type fakeFlashcardStore struct {
	cards []*domain.Flashcard
}

func (f *fakeFlashcardStore) Create(_ context.Context, card *domain.Flashcard) error {
	cp := *card
	f.cards = append(f.cards, &cp)
	return nil
}

func (f *fakeFlashcardStore) CreateMultiple(ctx context.Context, cards []*domain.Flashcard) error {
	for _, card := range cards {
		if err := f.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeFlashcardStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	for _, card := range f.cards {
		if card.ID == id {
			cp := *card
			return &cp, nil
		}
	}
	return nil, store.ErrCardNotFound
}

func (f *fakeFlashcardStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Flashcard, error) {
	var out []*domain.Flashcard
	for _, card := range f.cards {
		if card.UserID == userID {
			out = append(out, card)
		}
	}
	return out, nil
}

func (f *fakeFlashcardStore) WithTx(_ *sql.Tx) store.FlashcardStore { return f }

var _ store.FlashcardStore = (*fakeFlashcardStore)(nil)

type fakeCardStateStore struct {
	states map[string]*domain.UserFlashcardState
}

func newFakeCardStateStore() *fakeCardStateStore {
	return &fakeCardStateStore{states: make(map[string]*domain.UserFlashcardState)}
}

func stateKey(userID, cardID uuid.UUID) string {
	return userID.String() + "/" + cardID.String()
}

func (f *fakeCardStateStore) Get(_ context.Context, userID, cardID uuid.UUID) (*domain.UserFlashcardState, error) {
	state, ok := f.states[stateKey(userID, cardID)]
	if !ok {
		return nil, store.ErrCardStateNotFound
	}
	cp := *state
	return &cp, nil
}

func (f *fakeCardStateStore) GetForUpdate(ctx context.Context, userID, cardID uuid.UUID) (*domain.UserFlashcardState, error) {
	return f.Get(ctx, userID, cardID)
}

func (f *fakeCardStateStore) Upsert(_ context.Context, state *domain.UserFlashcardState) error {
	cp := *state
	f.states[stateKey(state.UserID, state.CardID)] = &cp
	return nil
}

func (f *fakeCardStateStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.UserFlashcardState, error) {
	var out []*domain.UserFlashcardState
	for _, state := range f.states {
		if state.UserID == userID {
			out = append(out, state)
		}
	}
	return out, nil
}

func (f *fakeCardStateStore) ListLearning(_ context.Context, _ uuid.UUID, _ int) ([]*domain.UserFlashcardState, error) {
	return nil, nil
}

func (f *fakeCardStateStore) ListDue(_ context.Context, _ uuid.UUID, _ time.Time, _ int) ([]*domain.UserFlashcardState, error) {
	return nil, nil
}

func (f *fakeCardStateStore) ListNew(_ context.Context, _ uuid.UUID, _ int) ([]*domain.UserFlashcardState, error) {
	return nil, nil
}

func (f *fakeCardStateStore) CountDueByUser(_ context.Context, _ time.Time) ([]store.DueCount, error) {
	return nil, nil
}

func (f *fakeCardStateStore) WithTx(_ *sql.Tx) store.CardStateStore { return f }

var _ store.CardStateStore = (*fakeCardStateStore)(nil)

type fakeCatalog struct {
	lessons map[uuid.UUID]*catalog.Lesson
	quests  map[uuid.UUID]*catalog.Quest
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		lessons: make(map[uuid.UUID]*catalog.Lesson),
		quests:  make(map[uuid.UUID]*catalog.Quest),
	}
}

func (f *fakeCatalog) GetLesson(_ context.Context, id uuid.UUID) (*catalog.Lesson, error) {
	lesson, ok := f.lessons[id]
	if !ok {
		return nil, store.ErrLessonNotFound
	}
	return lesson, nil
}

func (f *fakeCatalog) GetQuest(_ context.Context, id uuid.UUID) (*catalog.Quest, error) {
	quest, ok := f.quests[id]
	if !ok {
		return nil, store.ErrQuestNotFound
	}
	return quest, nil
}

var _ catalog.Catalog = (*fakeCatalog)(nil)

// scriptedTutor is a deterministic oracle with call counters.
type scriptedTutor struct {
	challenge     oracle.Challenge
	evaluation    oracle.Evaluation
	generateCalls int
	evaluateCalls int
	failGenerate  bool
}

func (t *scriptedTutor) GenerateChallenge(_ context.Context, _ oracle.ChallengeRequest) (*oracle.Challenge, error) {
	t.generateCalls++
	if t.failGenerate {
		return nil, errors.New("tutor unavailable")
	}
	cp := t.challenge
	return &cp, nil
}

func (t *scriptedTutor) EvaluateDefense(_ context.Context, _ oracle.EvaluationRequest) (*oracle.Evaluation, error) {
	t.evaluateCalls++
	cp := t.evaluation
	return &cp, nil
}

var _ oracle.Oracle = (*scriptedTutor)(nil)

// fakeProgressionStore backs the ledger in service tests. The distinct
// passed-lesson count is derived from the submission store the same way the
// SQL store derives it, so the write ordering inside the resolving
// transaction stays observable.
type fakeProgressionStore struct {
	records     map[string]*domain.ProgressionRecord
	aggregates  map[uuid.UUID]*domain.UserAggregate
	subs        *fakeSubmissionStore
	lessonParts map[uuid.UUID]uuid.UUID
}

func newFakeProgressionStore(subs *fakeSubmissionStore) *fakeProgressionStore {
	return &fakeProgressionStore{
		records:     make(map[string]*domain.ProgressionRecord),
		aggregates:  make(map[uuid.UUID]*domain.UserAggregate),
		subs:        subs,
		lessonParts: make(map[uuid.UUID]uuid.UUID),
	}
}

func progressionKey(userID, partID uuid.UUID) string {
	return userID.String() + "/" + partID.String()
}

func (f *fakeProgressionStore) GetRecord(_ context.Context, userID, partID uuid.UUID) (*domain.ProgressionRecord, error) {
	rec, ok := f.records[progressionKey(userID, partID)]
	if !ok {
		return nil, store.ErrProgressionNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeProgressionStore) GetLatestRecord(_ context.Context, userID uuid.UUID) (*domain.ProgressionRecord, error) {
	var latest *domain.ProgressionRecord
	for _, rec := range f.records {
		if rec.UserID != userID {
			continue
		}
		if latest == nil || rec.LastActivityAt.After(latest.LastActivityAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, store.ErrProgressionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeProgressionStore) UpsertRecord(_ context.Context, rec *domain.ProgressionRecord) error {
	cp := *rec
	f.records[progressionKey(rec.UserID, rec.PartID)] = &cp
	return nil
}

func (f *fakeProgressionStore) CountDistinctPassedLessons(_ context.Context, userID, partID uuid.UUID) (int, error) {
	seen := make(map[uuid.UUID]struct{})
	for _, sub := range f.subs.subs {
		if sub.UserID != userID || sub.Status != domain.SubmissionStatusPassed || sub.LessonID == nil {
			continue
		}
		if f.lessonParts[*sub.LessonID] != partID {
			continue
		}
		seen[*sub.LessonID] = struct{}{}
	}
	return len(seen), nil
}

func (f *fakeProgressionStore) GetAggregate(_ context.Context, userID uuid.UUID) (*domain.UserAggregate, error) {
	agg, ok := f.aggregates[userID]
	if !ok {
		return nil, store.ErrAggregateNotFound
	}
	cp := *agg
	return &cp, nil
}

func (f *fakeProgressionStore) UpsertAggregate(_ context.Context, agg *domain.UserAggregate) error {
	cp := *agg
	f.aggregates[agg.UserID] = &cp
	return nil
}

func (f *fakeProgressionStore) WithTx(_ *sql.Tx) store.ProgressionStore { return f }

var _ store.ProgressionStore = (*fakeProgressionStore)(nil)
