// Package gemini implements the tutor oracle interface using Google's
// Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"google.golang.org/genai"

	"github.com/praxislabs/mastery-api/internal/config"
	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/oracle"
)

// GeminiOracle implements the oracle.Oracle interface by asking a Gemini
// model to phrase defense challenges and grade defense answers. It never
// handles its own degradation; the oracle.Failover wrapper owns timeouts
// and fallback selection.
type GeminiOracle struct {
	logger            *slog.Logger
	client            *genai.Client
	model             string
	challengeTemplate *template.Template
	evaluateTemplate  *template.Template
}

// challengeSchema is the JSON shape the model is instructed to return for
// challenge generation.
type challengeSchema struct {
	Message   string `json:"message"`
	CoachMode string `json:"coach_mode"`
}

// evaluationSchema is the JSON shape the model is instructed to return for
// defense grading.
type evaluationSchema struct {
	Verdict     string `json:"verdict"`
	Message     string `json:"message"`
	CoachMode   string `json:"coach_mode"`
	Flashcards  []struct {
		Front string `json:"front"`
		Back  string `json:"back"`
		Tag   string `json:"tag"`
	} `json:"flashcards_to_create"`
	NextActions []string `json:"next_actions"`
}

const challengePromptText = `You are a strict but fair programming tutor.
A learner submitted the following proof of work for the {{.TargetType}} "{{.TargetTitle}}":

--- PROOF ---
{{.ProofText}}
{{if .CodeSnapshot}}--- CODE ---
{{.CodeSnapshot}}
{{end}}---

Ask exactly ONE short, non-leading comprehension question that a learner who
merely copied the solution could not answer. Respond with JSON only:
{"message": "<the question>", "coach_mode": "<one word describing your tone>"}`

const evaluatePromptText = `You are a strict but fair programming tutor grading a defense answer.
Target: {{.TargetType}} "{{.TargetTitle}}"

--- PROOF ---
{{.ProofText}}
--- QUESTION ---
{{.ChallengeQuestion}}
--- ANSWER ---
{{.AnswerText}}
{{if .CodeSnapshot}}--- CODE ---
{{.CodeSnapshot}}
{{end}}---

Decide whether the answer demonstrates genuine understanding. Respond with JSON only:
{"verdict": "pass" or "fail", "message": "<one sentence of feedback>",
"coach_mode": "<one word>", "flashcards_to_create": [{"front": "...", "back": "...", "tag": "..."}],
"next_actions": ["..."]}
Suggest at most two flashcards, and only for a fail verdict.`

// NewGeminiOracle creates a new GeminiOracle from oracle configuration.
// Returns an error if the API key is missing or the client cannot be built.
func NewGeminiOracle(ctx context.Context, log *slog.Logger, cfg config.OracleConfig) (*GeminiOracle, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiOracle{
		logger:            log.With(slog.String("component", "gemini_oracle")),
		client:            client,
		model:             cfg.ModelName,
		challengeTemplate: template.Must(template.New("challenge").Parse(challengePromptText)),
		evaluateTemplate:  template.Must(template.New("evaluate").Parse(evaluatePromptText)),
	}, nil
}

var _ oracle.Oracle = (*GeminiOracle)(nil)

// GenerateChallenge implements oracle.Oracle.GenerateChallenge.
func (g *GeminiOracle) GenerateChallenge(
	ctx context.Context,
	req oracle.ChallengeRequest,
) (*oracle.Challenge, error) {
	prompt, err := renderTemplate(g.challengeTemplate, req)
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed challengeSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse challenge JSON: %v", oracle.ErrInvalidResponse, err)
	}
	if parsed.Message == "" {
		return nil, fmt.Errorf("%w: empty challenge message", oracle.ErrInvalidResponse)
	}

	return &oracle.Challenge{
		Message:   parsed.Message,
		CoachMode: parsed.CoachMode,
	}, nil
}

// EvaluateDefense implements oracle.Oracle.EvaluateDefense.
func (g *GeminiOracle) EvaluateDefense(
	ctx context.Context,
	req oracle.EvaluationRequest,
) (*oracle.Evaluation, error) {
	prompt, err := renderTemplate(g.evaluateTemplate, req)
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed evaluationSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse evaluation JSON: %v", oracle.ErrInvalidResponse, err)
	}

	verdict := domain.DefenseVerdict(parsed.Verdict)
	switch verdict {
	case domain.DefenseVerdictPass, domain.DefenseVerdictFail, domain.DefenseVerdictPending:
	default:
		return nil, fmt.Errorf("%w: unknown verdict %q", oracle.ErrInvalidResponse, parsed.Verdict)
	}

	eval := &oracle.Evaluation{
		Verdict:     verdict,
		Message:     parsed.Message,
		CoachMode:   parsed.CoachMode,
		NextActions: parsed.NextActions,
	}
	for _, fc := range parsed.Flashcards {
		eval.Flashcards = append(eval.Flashcards, oracle.CardSuggestion{
			Front: fc.Front,
			Back:  fc.Back,
			Tag:   fc.Tag,
		})
	}

	return eval, nil
}

// generate sends the prompt to the model and returns the concatenated text
// of the first candidate.
func (g *GeminiOracle) generate(ctx context.Context, prompt string) (string, error) {
	g.logger.DebugContext(ctx, "calling Gemini API",
		slog.String("model", g.model),
		slog.Int("prompt_length", len(prompt)))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", oracle.ErrUnavailable, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no content generated", oracle.ErrInvalidResponse)
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty response text", oracle.ErrInvalidResponse)
	}

	return stripCodeFence(text), nil
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// stripCodeFence removes a leading/trailing markdown code fence if the
// model wrapped its JSON in one.
func stripCodeFence(s string) string {
	const fence = "```"
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, fence) {
		// Drop the first line (``` or ```json) and the closing fence.
		if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if end := strings.LastIndex(trimmed, fence); end >= 0 {
			trimmed = trimmed[:end]
		}
	}
	return strings.TrimSpace(trimmed)
}
