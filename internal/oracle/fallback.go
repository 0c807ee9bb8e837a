package oracle

import (
	"context"
	"regexp"
	"strings"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// FallbackChallengeMessage is the fixed local challenge used when the
// remote oracle cannot produce a question.
const FallbackChallengeMessage = "Explain why your proof shows the goal is met; include one failure case."

// fallbackCoachMode tags responses produced without the remote oracle.
const fallbackCoachMode = "local"

// fallbackMinAnswerLength is the minimum answer length the heuristic
// evaluator accepts.
const fallbackMinAnswerLength = 100

// fallbackMinKeywords is how many distinct reasoning keywords an answer
// must contain to pass the heuristic evaluator.
const fallbackMinKeywords = 2

// reasoningKeywords matches words that imply causal or failure reasoning.
// The heuristic is deliberately strict: degrading to stricter-but-available
// beats degrading to unavailable.
var reasoningKeywords = regexp.MustCompile(`\b(because|if|failure|fails?|retry|retries|timeout|error)\b`)

// Fallback is the deterministic local stand-in for the remote oracle. It
// is infallible and never returns an error.
type Fallback struct{}

// NewFallback creates the local fallback oracle.
func NewFallback() *Fallback {
	return &Fallback{}
}

var _ Oracle = (*Fallback)(nil)

// GenerateChallenge implements Oracle.GenerateChallenge with the fixed
// local challenge template.
func (f *Fallback) GenerateChallenge(_ context.Context, _ ChallengeRequest) (*Challenge, error) {
	return &Challenge{
		Message:   FallbackChallengeMessage,
		CoachMode: fallbackCoachMode,
	}, nil
}

// EvaluateDefense implements Oracle.EvaluateDefense with a deterministic
// heuristic: the answer passes only if it is at least 100 characters long
// and contains at least two distinct keywords implying causal or failure
// reasoning.
func (f *Fallback) EvaluateDefense(_ context.Context, req EvaluationRequest) (*Evaluation, error) {
	answer := strings.ToLower(req.AnswerText)

	distinct := make(map[string]struct{})
	for _, match := range reasoningKeywords.FindAllString(answer, -1) {
		distinct[match] = struct{}{}
	}

	if len(req.AnswerText) >= fallbackMinAnswerLength && len(distinct) >= fallbackMinKeywords {
		return &Evaluation{
			Verdict:   domain.DefenseVerdictPass,
			Message:   "Your explanation demonstrates causal reasoning about the proof.",
			CoachMode: fallbackCoachMode,
		}, nil
	}

	return &Evaluation{
		Verdict:   domain.DefenseVerdictFail,
		Message:   "Your explanation needs more depth: describe why the proof meets the goal and walk through at least one failure case.",
		CoachMode: fallbackCoachMode,
		NextActions: []string{
			"Revisit the lesson material",
			"Re-submit with a fuller explanation",
		},
	}, nil
}
