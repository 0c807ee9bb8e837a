package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/praxislabs/mastery-api/internal/domain"
	"github.com/praxislabs/mastery-api/internal/platform/logger"
)

// Failover wraps a remote oracle with a bounded timeout and degrades to
// the local fallback on any error. Selection is by availability at call
// time, never by configuration alone, so the engine always makes progress.
type Failover struct {
	remote   Oracle
	fallback Oracle
	timeout  time.Duration
	logger   *slog.Logger
}

// NewFailover creates a failover oracle. remote may be nil, in which case
// every call goes straight to the fallback.
func NewFailover(remote Oracle, timeout time.Duration, log *slog.Logger) *Failover {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Failover{
		remote:   remote,
		fallback: NewFallback(),
		timeout:  timeout,
		logger:   log.With(slog.String("component", "oracle_failover")),
	}
}

var _ Oracle = (*Failover)(nil)

// GenerateChallenge implements Oracle.GenerateChallenge. Remote failures
// and timeouts are logged and recovered with the fixed local challenge.
func (f *Failover) GenerateChallenge(ctx context.Context, req ChallengeRequest) (*Challenge, error) {
	log := logger.FromContextOrDefault(ctx, f.logger)

	if f.remote != nil {
		callCtx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()

		challenge, err := f.remote.GenerateChallenge(callCtx, req)
		if err == nil && challenge != nil && challenge.Message != "" {
			return challenge, nil
		}

		log.Warn("remote oracle failed to generate challenge, using local fallback",
			slog.Any("error", err))
	}

	return f.fallback.GenerateChallenge(ctx, req)
}

// EvaluateDefense implements Oracle.EvaluateDefense. Remote failures fall
// back to the deterministic heuristic, and a pending verdict from the
// remote is normalized to fail so every defense answer reaches a terminal
// verdict.
func (f *Failover) EvaluateDefense(ctx context.Context, req EvaluationRequest) (*Evaluation, error) {
	log := logger.FromContextOrDefault(ctx, f.logger)

	if f.remote != nil {
		callCtx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()

		eval, err := f.remote.EvaluateDefense(callCtx, req)
		if err == nil && eval != nil {
			if eval.Verdict == domain.DefenseVerdictPending {
				log.Warn("remote oracle returned pending verdict, forcing fail")
				eval.Verdict = domain.DefenseVerdictFail
			}
			return eval, nil
		}

		log.Warn("remote oracle failed to evaluate defense, using local fallback",
			slog.Any("error", err))
	}

	return f.fallback.EvaluateDefense(ctx, req)
}
