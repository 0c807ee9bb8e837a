package reminder

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/store"
)

// countsOnlyStore stubs the one CardStateStore method the digest uses.
type countsOnlyStore struct {
	counts []store.DueCount
	err    error
}

func (s *countsOnlyStore) CountDueByUser(_ context.Context, _ time.Time) ([]store.DueCount, error) {
	return s.counts, s.err
}

func (s *countsOnlyStore) Get(_ context.Context, _, _ uuid.UUID) (*domain.UserFlashcardState, error) {
	return nil, store.ErrCardStateNotFound
}

func (s *countsOnlyStore) GetForUpdate(_ context.Context, _, _ uuid.UUID) (*domain.UserFlashcardState, error) {
	return nil, store.ErrCardStateNotFound
}

func (s *countsOnlyStore) Upsert(_ context.Context, _ *domain.UserFlashcardState) error { return nil }

func (s *countsOnlyStore) ListByUser(_ context.Context, _ uuid.UUID) ([]*domain.UserFlashcardState, error) {
	return nil, nil
}

func (s *countsOnlyStore) ListLearning(_ context.Context, _ uuid.UUID, _ int) ([]*domain.UserFlashcardState, error) {
	return nil, nil
}

func (s *countsOnlyStore) ListDue(_ context.Context, _ uuid.UUID, _ time.Time, _ int) ([]*domain.UserFlashcardState, error) {
	return nil, nil
}

func (s *countsOnlyStore) ListNew(_ context.Context, _ uuid.UUID, _ int) ([]*domain.UserFlashcardState, error) {
	return nil, nil
}

func (s *countsOnlyStore) WithTx(_ *sql.Tx) store.CardStateStore { return s }

var _ store.CardStateStore = (*countsOnlyStore)(nil)

// recordingNotifier captures digest notifications.
type recordingNotifier struct {
	mu      sync.Mutex
	entries map[string]int
	err     error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{entries: make(map[string]int)}
}

func (n *recordingNotifier) NotifyDueCards(_ context.Context, userID string, dueCount int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.entries[userID] = dueCount
	return nil
}

func TestDigestRun_NotifiesUsersWithDueCards(t *testing.T) {
	t.Parallel()

	alice := uuid.New()
	bob := uuid.New()
	idle := uuid.New()

	cardStates := &countsOnlyStore{counts: []store.DueCount{
		{UserID: alice, Due: 4},
		{UserID: bob, Due: 1},
		{UserID: idle, Due: 0},
	}}
	notifier := newRecordingNotifier()

	NewDigest(cardStates, notifier, "08:00", nil).Run()

	assert.Equal(t, 4, notifier.entries[alice.String()])
	assert.Equal(t, 1, notifier.entries[bob.String()])
	assert.NotContains(t, notifier.entries, idle.String(), "zero-due users get no notification")
}

func TestDigestRun_StoreFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	cardStates := &countsOnlyStore{err: errors.New("connection reset")}
	notifier := newRecordingNotifier()

	// Must not panic; the next scheduled run will retry.
	NewDigest(cardStates, notifier, "08:00", nil).Run()
	assert.Empty(t, notifier.entries)
}

func TestDigestRun_NotifierFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	cardStates := &countsOnlyStore{counts: []store.DueCount{
		{UserID: uuid.New(), Due: 3},
	}}
	notifier := newRecordingNotifier()
	notifier.err = errors.New("channel unavailable")

	NewDigest(cardStates, notifier, "08:00", nil).Run()
	assert.Empty(t, notifier.entries)
}

func TestNewDigest_FallsBackOnBadTime(t *testing.T) {
	t.Parallel()

	d := NewDigest(&countsOnlyStore{}, newRecordingNotifier(), "25:99", nil)
	assert.Equal(t, defaultDigestTime, d.digestTime)

	d = NewDigest(&countsOnlyStore{}, newRecordingNotifier(), "", nil)
	assert.Equal(t, defaultDigestTime, d.digestTime)
}
