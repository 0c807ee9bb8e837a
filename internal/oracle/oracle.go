// Package oracle defines the boundary to the external tutor reasoning
// service that phrases defense challenges and grades free-text answers.
//
// The oracle is an untrusted, fallible dependency: every call site goes
// through the failover wrapper, which bounds latency with a timeout and
// degrades to the deterministic local implementation on any error. The
// engine's state machine therefore never depends on the remote service's
// uptime for liveness.
package oracle

import (
	"context"
	"errors"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// Common oracle errors.
var (
	// ErrUnavailable is returned when the remote oracle cannot be reached
	// or times out.
	ErrUnavailable = errors.New("tutor oracle unavailable")

	// ErrInvalidResponse is returned when the remote oracle responds with
	// content that cannot be parsed.
	ErrInvalidResponse = errors.New("invalid tutor oracle response")
)

// ChallengeRequest asks the oracle to produce one probing question for a
// validated proof.
type ChallengeRequest struct {
	ProofText    string
	CodeSnapshot string
	TargetType   domain.TargetType
	TargetTitle  string
}

// Challenge is one short, non-leading comprehension question.
type Challenge struct {
	Message   string `json:"message"`
	CoachMode string `json:"coach_mode,omitempty"`
}

// EvaluationRequest asks the oracle to grade a learner's free-text
// explanation against the challenge it previously issued.
type EvaluationRequest struct {
	ProofText         string
	ChallengeQuestion string
	AnswerText        string
	CodeSnapshot      string
	TargetType        domain.TargetType
	TargetTitle       string
}

// CardSuggestion is a remediation flashcard proposed by the oracle after a
// failed defense.
type CardSuggestion struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Tag   string `json:"tag,omitempty"`
}

// Evaluation is the oracle's verdict on a defense answer.
type Evaluation struct {
	Verdict     domain.DefenseVerdict `json:"verdict"`
	Message     string                `json:"message,omitempty"`
	CoachMode   string                `json:"coach_mode,omitempty"`
	Flashcards  []CardSuggestion      `json:"flashcards_to_create,omitempty"`
	NextActions []string              `json:"next_actions,omitempty"`
}

// Oracle generates defense challenges and grades defense answers.
type Oracle interface {
	// GenerateChallenge produces exactly one comprehension question
	// targeting the submitted proof.
	GenerateChallenge(ctx context.Context, req ChallengeRequest) (*Challenge, error)

	// EvaluateDefense grades a free-text explanation against the challenge.
	// Implementations must return a pass or fail verdict; a pending verdict
	// from the remote service is treated as malformed by callers.
	EvaluateDefense(ctx context.Context, req EvaluationRequest) (*Evaluation, error)
}
