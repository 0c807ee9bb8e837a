// Package proof implements the declarative proof-of-work validator.
// Checking is pure and synchronous: proof text goes in, a pass/fail result
// with an explanation comes out.
package proof

import (
	"errors"
	"fmt"
	"regexp"
)

// Mode selects how a target's proof rules are evaluated.
type Mode string

const (
	// ModeManual always fails the automatic check; a human must override.
	ModeManual Mode = "manual"

	// ModeRegex passes when the proof matches at least one pattern.
	ModeRegex Mode = "regex"

	// ModeManualOrRegex behaves like ModeRegex for the automatic check but
	// signals to reviewers that a manual override is also acceptable.
	ModeManualOrRegex Mode = "manual_or_regex"
)

// Rules are the declarative proof requirements attached to a lesson or quest.
type Rules struct {
	Mode          Mode     `json:"mode"`
	RegexPatterns []string `json:"regex_patterns,omitempty"`
	Instructions  string   `json:"instructions,omitempty"`
}

// Result is the outcome of checking a proof against its rules.
type Result struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// ErrInvalidMode is returned when rules carry an unknown mode.
var ErrInvalidMode = errors.New("invalid proof rules mode")

// Check evaluates proof text against the given rules. Patterns are matched
// case-sensitively as unanchored substring searches. Invalid patterns are
// skipped rather than failing the whole check, so one bad rule cannot lock
// a learner out.
func Check(proofText string, rules Rules) (Result, error) {
	switch rules.Mode {
	case ModeManual:
		msg := "This proof requires manual review by an instructor."
		if rules.Instructions != "" {
			msg = fmt.Sprintf("%s %s", msg, rules.Instructions)
		}
		return Result{Passed: false, Message: msg}, nil

	case ModeRegex, ModeManualOrRegex:
		for _, pattern := range rules.RegexPatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			if re.MatchString(proofText) {
				return Result{
					Passed:  true,
					Message: fmt.Sprintf("Proof matched expected pattern %q.", pattern),
				}, nil
			}
		}

		msg := "Proof did not match any expected pattern."
		if rules.Instructions != "" {
			msg = fmt.Sprintf("%s %s", msg, rules.Instructions)
		}
		return Result{Passed: false, Message: msg}, nil

	default:
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMode, rules.Mode)
	}
}
