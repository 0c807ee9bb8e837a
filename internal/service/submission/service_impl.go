package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/catalog"
	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/oracle"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
	"github.com/praxislabs/mastery-api/internal/progression"
	"github.com/praxislabs/mastery-api/internal/proof"
	"github.com/praxislabs/mastery-api/internal/schedule"
	"github.com/praxislabs/mastery-api/internal/store"
)

// maxRemediationCards caps how many oracle-suggested flashcards a single
// failed defense may create.
const maxRemediationCards = 2

type service struct {
	db          *sql.DB
	submissions store.SubmissionStore
	reviewItems store.ReviewItemStore
	flashcards  store.FlashcardStore
	cardStates  store.CardStateStore
	catalog     catalog.Catalog
	oracle      oracle.Oracle
	ledger      *progression.Ledger
	logger      *slog.Logger
}

// NewService creates the submission engine. The oracle is expected to be
// the failover wrapper so challenge generation and grading never block on
// the remote tutor's availability.
func NewService(
	db *sql.DB,
	submissions store.SubmissionStore,
	reviewItems store.ReviewItemStore,
	flashcards store.FlashcardStore,
	cardStates store.CardStateStore,
	cat catalog.Catalog,
	tutor oracle.Oracle,
	ledger *progression.Ledger,
	log *slog.Logger,
) Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if submissions == nil {
		panic("submissions cannot be nil")
	}
	if reviewItems == nil {
		panic("reviewItems cannot be nil")
	}
	if flashcards == nil {
		panic("flashcards cannot be nil")
	}
	if cardStates == nil {
		panic("cardStates cannot be nil")
	}
	if cat == nil {
		panic("catalog cannot be nil")
	}
	if tutor == nil {
		panic("oracle cannot be nil")
	}
	if ledger == nil {
		panic("ledger cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &service{
		db:          db,
		submissions: submissions,
		reviewItems: reviewItems,
		flashcards:  flashcards,
		cardStates:  cardStates,
		catalog:     cat,
		oracle:      tutor,
		ledger:      ledger,
		logger:      log.With(slog.String("component", "submission_service")),
	}
}

var _ Service = (*service)(nil)

// target bundles the catalog data the engine needs regardless of whether a
// lesson or a quest is being proved.
type target struct {
	kind               domain.TargetType
	id                 uuid.UUID
	partID             uuid.UUID
	title              string
	xpReward           int
	reviewScheduleDays []int
	proofRules         proof.Rules
}

// SubmitProof implements Service.SubmitProof.
func (s *service) SubmitProof(ctx context.Context, req SubmitProofRequest) (*SubmitProofResponse, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sub, err := domain.NewSubmission(req.UserID, req.LessonID, req.QuestID, req.ProofText, req.UploadRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	tgt, err := s.resolveTarget(ctx, sub)
	if err != nil {
		return nil, err
	}

	result, err := proof.Check(req.ProofText, tgt.proofRules)
	if err != nil {
		return nil, NewSubmitProofError("failed to check proof", err)
	}
	if req.ManualPassOverride {
		result = proof.Result{Passed: true, Message: "Manual pass override accepted."}
	}

	now := time.Now().UTC()

	if !result.Passed {
		// A failed automatic check is terminal immediately. No defense is
		// issued and nothing in the ledger moves.
		if rerr := sub.Resolve(domain.DefenseVerdictFail, "", result.Message, now); rerr != nil {
			return nil, NewSubmitProofError("failed to resolve submission", rerr)
		}
		if cerr := s.submissions.Create(ctx, sub); cerr != nil {
			return nil, NewSubmitProofError("failed to save failed submission", cerr)
		}

		log.Info("proof validation failed",
			slog.String("submission_id", sub.ID.String()),
			slog.String("target_type", string(tgt.kind)),
			slog.String("target_id", tgt.id.String()))
		return &SubmitProofResponse{
			SubmissionID: sub.ID,
			Status:       sub.Status,
			Message:      result.Message,
		}, nil
	}

	challenge, err := s.oracle.GenerateChallenge(ctx, oracle.ChallengeRequest{
		ProofText:    req.ProofText,
		CodeSnapshot: req.CodeSnapshot,
		TargetType:   tgt.kind,
		TargetTitle:  tgt.title,
	})
	if err != nil {
		return nil, NewSubmitProofError("failed to generate defense challenge", err)
	}

	if err := sub.IssueChallenge(challenge.Message, challenge.CoachMode, now); err != nil {
		return nil, NewSubmitProofError("failed to issue defense challenge", err)
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, NewSubmitProofError("failed to save pending submission", err)
	}

	log.Info("defense challenge issued",
		slog.String("submission_id", sub.ID.String()),
		slog.String("target_type", string(tgt.kind)),
		slog.String("target_id", tgt.id.String()))
	return &SubmitProofResponse{
		SubmissionID: sub.ID,
		Status:       sub.Status,
		Message:      challenge.Message,
	}, nil
}

// ContinueDefense implements Service.ContinueDefense.
func (s *service) ContinueDefense(ctx context.Context, req ContinueDefenseRequest) (*ContinueDefenseResponse, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sub, err := s.GetSubmission(ctx, req.UserID, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	if sub.IsResolved() {
		return resolvedResponse(sub, 0), nil
	}
	if req.AnswerText == "" {
		return nil, ErrEmptyAnswer
	}

	tgt, err := s.resolveTarget(ctx, sub)
	if err != nil {
		return nil, err
	}

	challengeQuestion := ""
	if sub.DefenseMeta != nil {
		challengeQuestion = sub.DefenseMeta.ChallengeQuestion
	}

	// Grading happens before the transaction opens so the row lock is not
	// held across an external call. The locked re-read below makes a lost
	// race resolve idempotently instead of double grading.
	eval, err := s.oracle.EvaluateDefense(ctx, oracle.EvaluationRequest{
		ProofText:         sub.ProofText,
		ChallengeQuestion: challengeQuestion,
		AnswerText:        req.AnswerText,
		CodeSnapshot:      req.CodeSnapshot,
		TargetType:        tgt.kind,
		TargetTitle:       tgt.title,
	})
	if err != nil {
		return nil, NewContinueDefenseError("failed to evaluate defense answer", err)
	}
	verdict := eval.Verdict
	if verdict != domain.DefenseVerdictPass {
		verdict = domain.DefenseVerdictFail
	}

	var resp *ContinueDefenseResponse
	txErr := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		submissions := s.submissions.WithTx(tx)

		locked, err := submissions.GetForUpdate(ctx, req.SubmissionID)
		if err != nil {
			if errors.Is(err, store.ErrSubmissionNotFound) {
				return ErrSubmissionNotFound
			}
			return NewContinueDefenseError("failed to lock submission", err)
		}
		if locked.IsResolved() {
			resp = resolvedResponse(locked, 0)
			return nil
		}

		now := time.Now().UTC()
		if err := locked.Resolve(verdict, req.AnswerText, eval.Message, now); err != nil {
			return NewContinueDefenseError("failed to resolve submission", err)
		}

		// The terminal status must be persisted before the pass side effects:
		// the ledger recounts distinct passed lessons from the submissions
		// table, and that recount has to see this row as passed.
		if err := submissions.Update(ctx, locked); err != nil {
			return NewContinueDefenseError("failed to persist resolved submission", err)
		}

		awarded := 0
		created := 0
		if verdict == domain.DefenseVerdictPass {
			awarded, err = s.applyPass(ctx, tx, locked, tgt, now)
			if err != nil {
				return err
			}
			if awarded > 0 {
				locked.XPAwarded = awarded
				if err := submissions.Update(ctx, locked); err != nil {
					return NewContinueDefenseError("failed to record awarded XP", err)
				}
			}
		} else {
			created, err = s.createRemediationCards(ctx, tx, locked, eval.Flashcards)
			if err != nil {
				return err
			}
		}

		resp = resolvedResponse(locked, created)
		resp.NextActions = eval.NextActions
		if resp.CoachMode == "" {
			resp.CoachMode = eval.CoachMode
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info("defense resolved",
		slog.String("submission_id", req.SubmissionID.String()),
		slog.String("status", string(resp.Status)),
		slog.String("verdict", string(resp.Verdict)),
		slog.Int("xp_awarded", resp.XPAwarded),
		slog.Int("flashcards_created", resp.FlashcardsCreated))
	return resp, nil
}

// GetSubmission implements Service.GetSubmission.
func (s *service) GetSubmission(ctx context.Context, userID, submissionID uuid.UUID) (*domain.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, NewContinueDefenseError("failed to load submission", err)
	}
	if sub.UserID != userID {
		return nil, ErrNotOwned
	}
	return sub, nil
}

// applyPass runs the pass side effects inside the resolving transaction:
// first-pass detection, the progression ledger, and the one-time review
// schedule. Returns the XP awarded, zero on a repeat pass.
func (s *service) applyPass(
	ctx context.Context,
	tx *sql.Tx,
	sub *domain.Submission,
	tgt target,
	now time.Time,
) (int, error) {
	submissions := s.submissions.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	var (
		prior int
		err   error
	)
	if tgt.kind == domain.TargetTypeLesson {
		prior, err = submissions.CountPassedForLesson(ctx, sub.UserID, tgt.id, sub.ID)
	} else {
		prior, err = submissions.CountPassedForQuest(ctx, sub.UserID, tgt.id, sub.ID)
	}
	if err != nil {
		return 0, NewContinueDefenseError("failed to detect first pass", err)
	}
	firstPass := prior == 0

	var result *progression.PassResult
	if tgt.kind == domain.TargetTypeLesson {
		result, err = ledger.ApplyLessonPass(ctx, sub.UserID, tgt.partID, tgt.xpReward, firstPass, now)
	} else {
		result, err = ledger.ApplyQuestPass(ctx, sub.UserID, tgt.partID, tgt.xpReward, firstPass, now)
	}
	if err != nil {
		return 0, NewContinueDefenseError("failed to apply progression", err)
	}

	if firstPass && tgt.kind == domain.TargetTypeLesson {
		if err := s.createReviewSchedule(ctx, tx, sub.UserID, tgt, now); err != nil {
			return 0, err
		}
	}

	return result.XPAwarded, nil
}

// createReviewSchedule creates the lesson's review items exactly once. The
// existence check guards against replayed pass events.
func (s *service) createReviewSchedule(
	ctx context.Context,
	tx *sql.Tx,
	userID uuid.UUID,
	tgt target,
	now time.Time,
) error {
	reviewItems := s.reviewItems.WithTx(tx)

	existing, err := reviewItems.CountForLesson(ctx, userID, tgt.id)
	if err != nil {
		return NewContinueDefenseError("failed to check existing review schedule", err)
	}
	if existing > 0 {
		return nil
	}

	items, err := schedule.Generate(userID, tgt.id, now, tgt.reviewScheduleDays)
	if err != nil {
		return NewContinueDefenseError("failed to generate review schedule", err)
	}
	if err := reviewItems.CreateMultiple(ctx, items); err != nil {
		return NewContinueDefenseError("failed to save review schedule", err)
	}
	return nil
}

// createRemediationCards creates up to maxRemediationCards flashcards from
// the oracle's suggestions after a failed defense, each with fresh
// scheduling state so it enters the new queue.
func (s *service) createRemediationCards(
	ctx context.Context,
	tx *sql.Tx,
	sub *domain.Submission,
	suggestions []oracle.CardSuggestion,
) (int, error) {
	flashcards := s.flashcards.WithTx(tx)
	cardStates := s.cardStates.WithTx(tx)

	created := 0
	for _, sugg := range suggestions {
		if created >= maxRemediationCards {
			break
		}
		if sugg.Front == "" || sugg.Back == "" {
			continue
		}

		card, err := domain.NewFlashcard(sub.UserID, sugg.Front, sugg.Back, domain.CardTypeConcept)
		if err != nil {
			continue
		}
		card.SourceRef = sub.ID.String()
		if sugg.Tag != "" {
			card.Tags = map[string]string{"topic": sugg.Tag}
		}

		if err := flashcards.Create(ctx, card); err != nil {
			return created, NewContinueDefenseError("failed to save remediation flashcard", err)
		}
		state, err := domain.NewUserFlashcardState(sub.UserID, card.ID)
		if err != nil {
			return created, NewContinueDefenseError("failed to build flashcard state", err)
		}
		if err := cardStates.Upsert(ctx, state); err != nil {
			return created, NewContinueDefenseError("failed to save flashcard state", err)
		}
		created++
	}

	return created, nil
}

func (s *service) resolveTarget(ctx context.Context, sub *domain.Submission) (target, error) {
	switch sub.TargetType() {
	case domain.TargetTypeLesson:
		lesson, err := s.catalog.GetLesson(ctx, sub.TargetID())
		if err != nil {
			if errors.Is(err, store.ErrLessonNotFound) {
				return target{}, ErrTargetNotFound
			}
			return target{}, NewSubmitProofError("failed to load lesson", err)
		}
		return target{
			kind:               domain.TargetTypeLesson,
			id:                 lesson.ID,
			partID:             lesson.PartID,
			title:              lesson.Title,
			xpReward:           lesson.XPReward,
			reviewScheduleDays: lesson.ReviewScheduleDays,
			proofRules:         lesson.ProofRules,
		}, nil

	default:
		quest, err := s.catalog.GetQuest(ctx, sub.TargetID())
		if err != nil {
			if errors.Is(err, store.ErrQuestNotFound) {
				return target{}, ErrTargetNotFound
			}
			return target{}, NewSubmitProofError("failed to load quest", err)
		}
		return target{
			kind:       domain.TargetTypeQuest,
			id:         quest.ID,
			partID:     quest.PartID,
			title:      quest.Title,
			xpReward:   quest.XPReward,
			proofRules: quest.ProofRules,
		}, nil
	}
}

func resolvedResponse(sub *domain.Submission, flashcardsCreated int) *ContinueDefenseResponse {
	resp := &ContinueDefenseResponse{
		Status:            sub.Status,
		Verdict:           domain.DefenseVerdictFail,
		FlashcardsCreated: flashcardsCreated,
		XPAwarded:         sub.XPAwarded,
	}
	if sub.Status == domain.SubmissionStatusPassed {
		resp.Verdict = domain.DefenseVerdictPass
	}
	if sub.DefenseMeta != nil {
		resp.Message = sub.DefenseMeta.Feedback
		resp.CoachMode = sub.DefenseMeta.CoachMode
		if sub.DefenseMeta.LastVerdict != domain.DefenseVerdictPending {
			resp.Verdict = sub.DefenseMeta.LastVerdict
		}
	}
	return resp
}
