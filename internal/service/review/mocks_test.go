package review

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/store"
)

// memCardStateStore mirrors the SQL bucket predicates in memory so queue
// assembly can be tested without Postgres. WithTx is a no-op; the service's
// transactions run against a sqlmock database.
type memCardStateStore struct {
	states map[string]*domain.UserFlashcardState
}

func newMemCardStateStore() *memCardStateStore {
	return &memCardStateStore{states: make(map[string]*domain.UserFlashcardState)}
}

func stateKey(userID, cardID uuid.UUID) string {
	return userID.String() + "/" + cardID.String()
}

func (m *memCardStateStore) Get(_ context.Context, userID, cardID uuid.UUID) (*domain.UserFlashcardState, error) {
	state, ok := m.states[stateKey(userID, cardID)]
	if !ok {
		return nil, store.ErrCardStateNotFound
	}
	cp := *state
	return &cp, nil
}

func (m *memCardStateStore) GetForUpdate(ctx context.Context, userID, cardID uuid.UUID) (*domain.UserFlashcardState, error) {
	return m.Get(ctx, userID, cardID)
}

func (m *memCardStateStore) Upsert(_ context.Context, state *domain.UserFlashcardState) error {
	cp := *state
	m.states[stateKey(state.UserID, state.CardID)] = &cp
	return nil
}

func (m *memCardStateStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.UserFlashcardState, error) {
	var out []*domain.UserFlashcardState
	for _, state := range m.states {
		if state.UserID == userID {
			cp := *state
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCardStateStore) ListLearning(_ context.Context, userID uuid.UUID, youngThresholdDays int) ([]*domain.UserFlashcardState, error) {
	return m.filter(userID, func(s *domain.UserFlashcardState) bool {
		return s.Repetitions > 0 && s.IntervalDays < youngThresholdDays
	}), nil
}

func (m *memCardStateStore) ListDue(_ context.Context, userID uuid.UUID, asOf time.Time, youngThresholdDays int) ([]*domain.UserFlashcardState, error) {
	return m.filter(userID, func(s *domain.UserFlashcardState) bool {
		learning := s.Repetitions > 0 && s.IntervalDays < youngThresholdDays
		return !s.DueAt.After(asOf) && !learning && !s.LastReviewedAt.IsZero()
	}), nil
}

func (m *memCardStateStore) ListNew(_ context.Context, userID uuid.UUID, limit int) ([]*domain.UserFlashcardState, error) {
	fresh := m.filter(userID, func(s *domain.UserFlashcardState) bool {
		return s.IsNew()
	})
	if len(fresh) > limit {
		fresh = fresh[:limit]
	}
	return fresh, nil
}

func (m *memCardStateStore) CountDueByUser(_ context.Context, asOf time.Time) ([]store.DueCount, error) {
	counts := make(map[uuid.UUID]int)
	for _, state := range m.states {
		if !state.Suspended && !state.DueAt.After(asOf) {
			counts[state.UserID]++
		}
	}
	out := make([]store.DueCount, 0, len(counts))
	for userID, due := range counts {
		out = append(out, store.DueCount{UserID: userID, Due: due})
	}
	return out, nil
}

func (m *memCardStateStore) WithTx(_ *sql.Tx) store.CardStateStore { return m }

func (m *memCardStateStore) filter(userID uuid.UUID, keep func(*domain.UserFlashcardState) bool) []*domain.UserFlashcardState {
	var out []*domain.UserFlashcardState
	for _, state := range m.states {
		if state.UserID != userID || state.Suspended || !keep(state) {
			continue
		}
		cp := *state
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out
}

var _ store.CardStateStore = (*memCardStateStore)(nil)

type memFlashcardStore struct {
	cards map[uuid.UUID]*domain.Flashcard
}

func newMemFlashcardStore() *memFlashcardStore {
	return &memFlashcardStore{cards: make(map[uuid.UUID]*domain.Flashcard)}
}

func (m *memFlashcardStore) Create(_ context.Context, card *domain.Flashcard) error {
	cp := *card
	m.cards[card.ID] = &cp
	return nil
}

func (m *memFlashcardStore) CreateMultiple(ctx context.Context, cards []*domain.Flashcard) error {
	for _, card := range cards {
		if err := m.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

func (m *memFlashcardStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	card, ok := m.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	cp := *card
	return &cp, nil
}

func (m *memFlashcardStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Flashcard, error) {
	var out []*domain.Flashcard
	for _, card := range m.cards {
		if card.UserID == userID {
			cp := *card
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memFlashcardStore) WithTx(_ *sql.Tx) store.FlashcardStore { return m }

var _ store.FlashcardStore = (*memFlashcardStore)(nil)

type memReviewItemStore struct {
	items []*domain.ReviewItem
}

func (m *memReviewItemStore) CreateMultiple(_ context.Context, items []*domain.ReviewItem) error {
	m.items = append(m.items, items...)
	return nil
}

func (m *memReviewItemStore) CountForLesson(_ context.Context, userID, lessonID uuid.UUID) (int, error) {
	count := 0
	for _, item := range m.items {
		if item.UserID == userID && item.LessonID == lessonID {
			count++
		}
	}
	return count, nil
}

func (m *memReviewItemStore) ListDue(_ context.Context, userID uuid.UUID, asOf time.Time) ([]*domain.ReviewItem, error) {
	var due []*domain.ReviewItem
	for _, item := range m.items {
		if item.UserID == userID && !item.DueAt.After(asOf) {
			due = append(due, item)
		}
	}
	return due, nil
}

func (m *memReviewItemStore) WithTx(_ *sql.Tx) store.ReviewItemStore { return m }

var _ store.ReviewItemStore = (*memReviewItemStore)(nil)
