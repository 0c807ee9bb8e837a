package review

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/domain/srs"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
	"github.com/praxislabs/mastery-api/internal/store"
)

// defaultNewCardsPerSession caps the new bucket when no limit is configured.
const defaultNewCardsPerSession = 10

type service struct {
	db            *sql.DB
	flashcards    store.FlashcardStore
	cardStates    store.CardStateStore
	reviewItems   store.ReviewItemStore
	srs           srs.Service
	newPerSession int
	logger        *slog.Logger
}

// NewService creates the review engine. newPerSession caps how many
// never-reviewed cards enter a single session; zero or negative falls back
// to the default.
func NewService(
	db *sql.DB,
	flashcards store.FlashcardStore,
	cardStates store.CardStateStore,
	reviewItems store.ReviewItemStore,
	scheduler srs.Service,
	newPerSession int,
	log *slog.Logger,
) Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if flashcards == nil {
		panic("flashcards cannot be nil")
	}
	if cardStates == nil {
		panic("cardStates cannot be nil")
	}
	if reviewItems == nil {
		panic("reviewItems cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if newPerSession <= 0 {
		newPerSession = defaultNewCardsPerSession
	}
	if log == nil {
		log = slog.Default()
	}

	return &service{
		db:            db,
		flashcards:    flashcards,
		cardStates:    cardStates,
		reviewItems:   reviewItems,
		srs:           scheduler,
		newPerSession: newPerSession,
		logger:        log.With(slog.String("component", "review_service")),
	}
}

var _ Service = (*service)(nil)

// GetQueue implements Service.GetQueue.
func (s *service) GetQueue(ctx context.Context, userID uuid.UUID) (*Queue, error) {
	now := time.Now().UTC()
	threshold := s.srs.YoungThresholdDays()

	learning, err := s.cardStates.ListLearning(ctx, userID, threshold)
	if err != nil {
		return nil, newServiceError("get_queue", "failed to list learning cards", err)
	}
	due, err := s.cardStates.ListDue(ctx, userID, now, threshold)
	if err != nil {
		return nil, newServiceError("get_queue", "failed to list due cards", err)
	}
	fresh, err := s.cardStates.ListNew(ctx, userID, s.newPerSession)
	if err != nil {
		return nil, newServiceError("get_queue", "failed to list new cards", err)
	}

	cards, err := s.cardsByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	queue := &Queue{
		Learning: s.attach(cards, learning),
		Due:      s.attach(cards, due),
		New:      s.attach(cards, fresh),
	}
	return queue, nil
}

// GradeCard implements Service.GradeCard. The locked read and the write of
// the new state share one transaction so two concurrent grades of the same
// card serialize instead of both applying to the stale state.
func (s *service) GradeCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
	grade domain.ReviewGrade,
) (*domain.UserFlashcardState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !domain.IsValidReviewGrade(grade) {
		return nil, ErrInvalidGrade
	}
	if _, err := s.ownedCard(ctx, userID, cardID); err != nil {
		return nil, err
	}

	var next *domain.UserFlashcardState
	txErr := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cardStates := s.cardStates.WithTx(tx)

		state, err := cardStates.GetForUpdate(ctx, userID, cardID)
		if err != nil {
			if errors.Is(err, store.ErrCardStateNotFound) {
				return ErrCardStateNotFound
			}
			return newServiceError("grade_card", "failed to lock card state", err)
		}

		next, err = s.srs.Grade(state, grade, time.Now().UTC())
		if err != nil {
			return newServiceError("grade_card", "failed to compute next state", err)
		}
		if err := cardStates.Upsert(ctx, next); err != nil {
			return newServiceError("grade_card", "failed to save card state", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info("card graded",
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()),
		slog.String("grade", string(grade)),
		slog.Int("interval_days", next.IntervalDays),
		slog.Int("repetitions", next.Repetitions))
	return next, nil
}

// PreviewCard implements Service.PreviewCard.
func (s *service) PreviewCard(ctx context.Context, userID, cardID uuid.UUID) (*srs.Preview, error) {
	if _, err := s.ownedCard(ctx, userID, cardID); err != nil {
		return nil, err
	}

	state, err := s.cardStates.Get(ctx, userID, cardID)
	if err != nil {
		if errors.Is(err, store.ErrCardStateNotFound) {
			return nil, ErrCardStateNotFound
		}
		return nil, newServiceError("preview_card", "failed to load card state", err)
	}

	preview, err := s.srs.PreviewIntervals(state, time.Now().UTC())
	if err != nil {
		return nil, newServiceError("preview_card", "failed to compute preview", err)
	}
	return preview, nil
}

// CreateCard implements Service.CreateCard. The card and its scheduling
// state are created together so the card enters the new queue atomically.
func (s *service) CreateCard(ctx context.Context, req CreateCardRequest) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := domain.NewFlashcard(req.UserID, req.Front, req.Back, req.Type)
	if err != nil {
		return nil, err
	}
	card.Hint = req.Hint
	card.Tags = req.Tags
	card.SourceRef = req.SourceRef

	txErr := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.flashcards.WithTx(tx).Create(ctx, card); err != nil {
			return newServiceError("create_card", "failed to save card", err)
		}
		state, err := domain.NewUserFlashcardState(req.UserID, card.ID)
		if err != nil {
			return newServiceError("create_card", "failed to build card state", err)
		}
		if err := s.cardStates.WithTx(tx).Upsert(ctx, state); err != nil {
			return newServiceError("create_card", "failed to save card state", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info("card created",
		slog.String("user_id", req.UserID.String()),
		slog.String("card_id", card.ID.String()),
		slog.String("type", string(card.Type)))
	return card, nil
}

// CreateCards implements Service.CreateCards. The whole batch is built and
// validated before anything is written so a bad card cannot leave a partial
// deck behind.
func (s *service) CreateCards(ctx context.Context, reqs []CreateCardRequest) ([]*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(reqs) == 0 {
		return nil, nil
	}

	cards := make([]*domain.Flashcard, 0, len(reqs))
	states := make([]*domain.UserFlashcardState, 0, len(reqs))
	for _, req := range reqs {
		card, err := domain.NewFlashcard(req.UserID, req.Front, req.Back, req.Type)
		if err != nil {
			return nil, err
		}
		card.Hint = req.Hint
		card.Tags = req.Tags
		card.SourceRef = req.SourceRef

		state, err := domain.NewUserFlashcardState(req.UserID, card.ID)
		if err != nil {
			return nil, newServiceError("create_cards", "failed to build card state", err)
		}
		cards = append(cards, card)
		states = append(states, state)
	}

	txErr := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.flashcards.WithTx(tx).CreateMultiple(ctx, cards); err != nil {
			return newServiceError("create_cards", "failed to save cards", err)
		}
		cardStates := s.cardStates.WithTx(tx)
		for _, state := range states {
			if err := cardStates.Upsert(ctx, state); err != nil {
				return newServiceError("create_cards", "failed to save card state", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info("cards seeded in bulk",
		slog.String("user_id", reqs[0].UserID.String()),
		slog.Int("count", len(cards)))
	return cards, nil
}

// BrowseCards implements Service.BrowseCards.
func (s *service) BrowseCards(ctx context.Context, userID uuid.UUID) ([]QueueCard, error) {
	states, err := s.cardStates.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("browse_cards", "failed to list card states", err)
	}

	cards, err := s.cardsByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.attach(cards, states), nil
}

// SuspendCard implements Service.SuspendCard.
func (s *service) SuspendCard(ctx context.Context, userID, cardID uuid.UUID) error {
	return s.setSuspended(ctx, userID, cardID, true)
}

// UnsuspendCard implements Service.UnsuspendCard.
func (s *service) UnsuspendCard(ctx context.Context, userID, cardID uuid.UUID) error {
	return s.setSuspended(ctx, userID, cardID, false)
}

func (s *service) setSuspended(ctx context.Context, userID, cardID uuid.UUID, suspended bool) error {
	if _, err := s.ownedCard(ctx, userID, cardID); err != nil {
		return err
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cardStates := s.cardStates.WithTx(tx)

		state, err := cardStates.GetForUpdate(ctx, userID, cardID)
		if err != nil {
			if errors.Is(err, store.ErrCardStateNotFound) {
				return ErrCardStateNotFound
			}
			return newServiceError("suspend_card", "failed to lock card state", err)
		}

		state.Suspended = suspended
		state.UpdatedAt = time.Now().UTC()
		if err := cardStates.Upsert(ctx, state); err != nil {
			return newServiceError("suspend_card", "failed to save card state", err)
		}
		return nil
	})
}

// GetStats implements Service.GetStats.
func (s *service) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	states, err := s.cardStates.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("get_stats", "failed to list card states", err)
	}

	now := time.Now().UTC()
	stats := &Stats{}
	for _, state := range states {
		if state.Suspended {
			stats.Suspended++
			continue
		}
		switch s.srs.Maturity(state) {
		case srs.MaturityNew:
			stats.New++
		case srs.MaturityLearning:
			stats.Learning++
		case srs.MaturityMature:
			stats.Mature++
		}
		if !state.DueAt.After(now) {
			stats.DueNow++
		}
	}
	return stats, nil
}

// ListDueLessonReviews implements Service.ListDueLessonReviews.
func (s *service) ListDueLessonReviews(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewItem, error) {
	items, err := s.reviewItems.ListDue(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, newServiceError("list_due_reviews", "failed to list due review items", err)
	}
	return items, nil
}

// ownedCard loads a card and checks ownership.
func (s *service) ownedCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.Flashcard, error) {
	card, err := s.flashcards.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, newServiceError("get_card", "failed to load card", err)
	}
	if card.UserID != userID {
		return nil, ErrCardNotOwned
	}
	return card, nil
}

// cardsByID loads the user's cards keyed by ID for queue assembly.
func (s *service) cardsByID(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]*domain.Flashcard, error) {
	cards, err := s.flashcards.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("get_queue", "failed to list cards", err)
	}

	byID := make(map[uuid.UUID]*domain.Flashcard, len(cards))
	for _, card := range cards {
		byID[card.ID] = card
	}
	return byID, nil
}

func (s *service) attach(cards map[uuid.UUID]*domain.Flashcard, states []*domain.UserFlashcardState) []QueueCard {
	out := make([]QueueCard, 0, len(states))
	for _, state := range states {
		card, ok := cards[state.CardID]
		if !ok {
			continue
		}
		out = append(out, QueueCard{
			Card:     card,
			State:    state,
			Maturity: s.srs.Maturity(state),
		})
	}
	return out
}
