package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus represents the state of a proof submission.
type SubmissionStatus string

// Possible submission status values. A submission starts pending and moves
// exactly once to passed or failed; both are terminal.
const (
	SubmissionStatusPending SubmissionStatus = "pending"
	SubmissionStatusPassed  SubmissionStatus = "passed"
	SubmissionStatusFailed  SubmissionStatus = "failed"
)

// DefenseVerdict represents the outcome of grading a defense answer.
type DefenseVerdict string

// Possible defense verdict values.
const (
	DefenseVerdictPending DefenseVerdict = "pending"
	DefenseVerdictPass    DefenseVerdict = "pass"
	DefenseVerdictFail    DefenseVerdict = "fail"
)

// Submission-specific validation errors
var (
	// ErrSubmissionIDEmpty is returned when a submission ID is empty or nil.
	ErrSubmissionIDEmpty = errors.New("submission ID cannot be empty")

	// ErrSubmissionUserIDEmpty is returned when a submission's user ID is empty or nil.
	ErrSubmissionUserIDEmpty = errors.New("submission user ID cannot be empty")

	// ErrSubmissionTargetMissing is returned when neither a lesson nor a quest is targeted.
	ErrSubmissionTargetMissing = errors.New("submission must target a lesson or a quest")

	// ErrSubmissionTargetConflict is returned when both a lesson and a quest are targeted.
	ErrSubmissionTargetConflict = errors.New("submission cannot target both a lesson and a quest")

	// ErrSubmissionProofEmpty is returned when a submission has neither proof text nor an upload.
	ErrSubmissionProofEmpty = errors.New("submission requires proof text or an upload reference")
)

// TargetType identifies which kind of content unit a submission proves.
type TargetType string

const (
	TargetTypeLesson TargetType = "lesson"
	TargetTypeQuest  TargetType = "quest"
)

// DefenseMeta carries the defense interrogation state attached to a
// submission. It is written exactly once when the challenge is issued and
// once more when the answer is graded, then never touched again.
type DefenseMeta struct {
	ChallengeQuestion string         `json:"challenge_question"`
	CoachMode         string         `json:"coach_mode,omitempty"`
	LastVerdict       DefenseVerdict `json:"last_verdict"`
	Answer            string         `json:"answer,omitempty"`
	Feedback          string         `json:"feedback,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Submission represents one attempt at proving mastery of a lesson or a
// quest (never both). Resolved submissions are immutable and are kept
// forever as an audit trail.
type Submission struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	LessonID    *uuid.UUID       `json:"lesson_id,omitempty"`
	QuestID     *uuid.UUID       `json:"quest_id,omitempty"`
	Status      SubmissionStatus `json:"status"`
	ProofText   string           `json:"proof_text,omitempty"`
	UploadRef   string           `json:"upload_ref,omitempty"`
	DefenseMeta *DefenseMeta     `json:"defense_meta,omitempty"`
	XPAwarded   int              `json:"xp_awarded"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewSubmission creates a new Submission targeting exactly one of a lesson
// or a quest. It generates the submission ID and timestamps and validates
// the target and proof invariants. The status must be set by the caller
// (the submission engine) before persisting.
func NewSubmission(
	userID uuid.UUID,
	lessonID, questID *uuid.UUID,
	proofText, uploadRef string,
) (*Submission, error) {
	now := time.Now().UTC()
	sub := &Submission{
		ID:        uuid.New(),
		UserID:    userID,
		LessonID:  lessonID,
		QuestID:   questID,
		Status:    SubmissionStatusPending,
		ProofText: proofText,
		UploadRef: uploadRef,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}

	return sub, nil
}

// Validate checks if the Submission has valid data.
// Returns an error if any field fails validation.
func (s *Submission) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSubmissionIDEmpty
	}

	if s.UserID == uuid.Nil {
		return ErrSubmissionUserIDEmpty
	}

	hasLesson := s.LessonID != nil && *s.LessonID != uuid.Nil
	hasQuest := s.QuestID != nil && *s.QuestID != uuid.Nil

	if !hasLesson && !hasQuest {
		return ErrSubmissionTargetMissing
	}
	if hasLesson && hasQuest {
		return ErrSubmissionTargetConflict
	}

	if s.ProofText == "" && s.UploadRef == "" {
		return ErrSubmissionProofEmpty
	}

	switch s.Status {
	case SubmissionStatusPending, SubmissionStatusPassed, SubmissionStatusFailed:
	default:
		return ErrInvalidSubmissionStatus
	}

	return nil
}

// TargetType reports whether the submission proves a lesson or a quest.
func (s *Submission) TargetType() TargetType {
	if s.LessonID != nil && *s.LessonID != uuid.Nil {
		return TargetTypeLesson
	}
	return TargetTypeQuest
}

// TargetID returns the ID of the lesson or quest the submission targets.
func (s *Submission) TargetID() uuid.UUID {
	if s.LessonID != nil && *s.LessonID != uuid.Nil {
		return *s.LessonID
	}
	if s.QuestID != nil {
		return *s.QuestID
	}
	return uuid.Nil
}

// IsResolved reports whether the submission has reached a terminal status.
func (s *Submission) IsResolved() bool {
	return s.Status == SubmissionStatusPassed || s.Status == SubmissionStatusFailed
}

// IssueChallenge attaches defense metadata for a freshly issued challenge
// and leaves the submission pending. Returns ErrSubmissionResolved if the
// submission is already terminal.
func (s *Submission) IssueChallenge(question, coachMode string, now time.Time) error {
	if s.IsResolved() {
		return ErrSubmissionResolved
	}

	s.DefenseMeta = &DefenseMeta{
		ChallengeQuestion: question,
		CoachMode:         coachMode,
		LastVerdict:       DefenseVerdictPending,
		CreatedAt:         now,
	}
	s.UpdatedAt = now
	return nil
}

// Resolve flips a pending submission to its terminal status and records the
// graded answer on the defense metadata. The pending→terminal transition
// happens exactly once; calling Resolve on a resolved submission fails.
func (s *Submission) Resolve(verdict DefenseVerdict, answer, feedback string, now time.Time) error {
	if s.IsResolved() {
		return ErrSubmissionResolved
	}
	if verdict != DefenseVerdictPass && verdict != DefenseVerdictFail {
		return ErrInvalidSubmissionStatus
	}

	if s.DefenseMeta == nil {
		s.DefenseMeta = &DefenseMeta{CreatedAt: now}
	}
	s.DefenseMeta.LastVerdict = verdict
	s.DefenseMeta.Answer = answer
	s.DefenseMeta.Feedback = feedback

	if verdict == DefenseVerdictPass {
		s.Status = SubmissionStatusPassed
	} else {
		s.Status = SubmissionStatusFailed
	}
	s.UpdatedAt = now
	return nil
}
