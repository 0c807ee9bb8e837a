// Package reminder runs the daily review digest: once a day it counts each
// user's due flashcards and hands the counts to a notifier. Delivery (mail,
// push, chat) belongs to the platform's messaging subsystem.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/praxislabs/mastery-api/internal/store"
)

// defaultDigestTime is used when no digest time is configured.
const defaultDigestTime = "08:00"

// Notifier receives one digest entry per user with due cards.
type Notifier interface {
	NotifyDueCards(ctx context.Context, userID string, dueCount int) error
}

// LogNotifier is the default Notifier: it only logs the digest. Useful in
// development and as a stand-in until a real channel is wired.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{logger: log.With(slog.String("component", "digest_notifier"))}
}

// NotifyDueCards implements Notifier.
func (n *LogNotifier) NotifyDueCards(_ context.Context, userID string, dueCount int) error {
	n.logger.Info("review digest",
		slog.String("user_id", userID),
		slog.Int("due_cards", dueCount))
	return nil
}

// Digest schedules and runs the daily due-card digest.
type Digest struct {
	scheduler  *gocron.Scheduler
	cardStates store.CardStateStore
	notifier   Notifier
	digestTime string
	logger     *slog.Logger
}

// NewDigest creates the digest job. digestTime is a "HH:MM" wall-clock time
// in UTC; invalid or empty values fall back to the default.
func NewDigest(cardStates store.CardStateStore, notifier Notifier, digestTime string, log *slog.Logger) *Digest {
	if cardStates == nil {
		panic("cardStates cannot be nil")
	}
	if notifier == nil {
		panic("notifier cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if _, err := time.Parse("15:04", digestTime); err != nil {
		digestTime = defaultDigestTime
	}

	return &Digest{
		scheduler:  gocron.NewScheduler(time.UTC),
		cardStates: cardStates,
		notifier:   notifier,
		digestTime: digestTime,
		logger:     log.With(slog.String("component", "review_digest")),
	}
}

// Start schedules the daily run and returns immediately.
func (d *Digest) Start() error {
	if _, err := d.scheduler.Every(1).Day().At(d.digestTime).Do(d.Run); err != nil {
		return err
	}
	d.scheduler.StartAsync()

	d.logger.Info("review digest scheduled", slog.String("at", d.digestTime))
	return nil
}

// Stop terminates the scheduled job.
func (d *Digest) Stop() {
	d.scheduler.Stop()
}

// Run executes one digest pass. Exposed so an operator endpoint or test can
// trigger it outside the schedule.
func (d *Digest) Run() {
	ctx := context.Background()

	counts, err := d.cardStates.CountDueByUser(ctx, time.Now().UTC())
	if err != nil {
		d.logger.Error("failed to count due cards", slog.String("error", err.Error()))
		return
	}

	notified := 0
	for _, count := range counts {
		if count.Due == 0 {
			continue
		}
		if err := d.notifier.NotifyDueCards(ctx, count.UserID.String(), count.Due); err != nil {
			d.logger.Error("failed to notify user",
				slog.String("user_id", count.UserID.String()),
				slog.String("error", err.Error()))
			continue
		}
		notified++
	}

	d.logger.Info("review digest complete",
		slog.Int("users_with_due_cards", len(counts)),
		slog.Int("notified", notified))
}
