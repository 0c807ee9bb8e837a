package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_RegexMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		proof    string
		rules    Rules
		passed   bool
		contains string
	}{
		{
			name:     "matching pattern passes",
			proof:    "output: 42",
			rules:    Rules{Mode: ModeRegex, RegexPatterns: []string{"42"}},
			passed:   true,
			contains: "42",
		},
		{
			name:     "non-matching pattern fails",
			proof:    "output: 42",
			rules:    Rules{Mode: ModeRegex, RegexPatterns: []string{"99"}},
			passed:   false,
			contains: "did not match",
		},
		{
			name:   "any of several patterns suffices",
			proof:  "tests passed: ok",
			rules:  Rules{Mode: ModeRegex, RegexPatterns: []string{"FAIL", "ok"}},
			passed: true,
		},
		{
			name:   "matching is case sensitive",
			proof:  "OK",
			rules:  Rules{Mode: ModeRegex, RegexPatterns: []string{"ok"}},
			passed: false,
		},
		{
			name:   "invalid pattern is skipped not fatal",
			proof:  "result: 7",
			rules:  Rules{Mode: ModeRegex, RegexPatterns: []string{"[", "7"}},
			passed: true,
		},
		{
			name:     "failure echoes instructions",
			proof:    "nothing useful",
			rules:    Rules{Mode: ModeRegex, RegexPatterns: []string{"42"}, Instructions: "Paste the program output."},
			passed:   false,
			contains: "Paste the program output.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result, err := Check(tc.proof, tc.rules)
			require.NoError(t, err)
			assert.Equal(t, tc.passed, result.Passed)
			if tc.contains != "" {
				assert.Contains(t, result.Message, tc.contains)
			}
		})
	}
}

func TestCheck_ManualModeAlwaysFails(t *testing.T) {
	t.Parallel()

	result, err := Check("anything at all", Rules{
		Mode:         ModeManual,
		Instructions: "Schedule a review with your mentor.",
	})
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "manual review")
	assert.Contains(t, result.Message, "Schedule a review with your mentor.")
}

func TestCheck_ManualOrRegexBehavesLikeRegex(t *testing.T) {
	t.Parallel()

	result, err := Check("output: 42", Rules{Mode: ModeManualOrRegex, RegexPatterns: []string{"42"}})
	require.NoError(t, err)
	assert.True(t, result.Passed)

	result, err = Check("output: 41", Rules{Mode: ModeManualOrRegex, RegexPatterns: []string{"42"}})
	require.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestCheck_UnknownModeIsAnError(t *testing.T) {
	t.Parallel()

	_, err := Check("proof", Rules{Mode: "telepathy"})
	assert.ErrorIs(t, err, ErrInvalidMode)
}
