// Package history accumulates fix-attempt outcomes so future decisions can
// lean on observed success rates.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

// Repo abstracts the persistence backend.
type Repo interface {
	Record(ctx context.Context, record models.FixAttemptRecord) error
	SuccessRate(ctx context.Context, errorType string) (float64, error)
}

// Tracker records terminal pipeline outcomes. Recording failures are logged
// and swallowed: learning data must never fail a pipeline run that already
// reached its terminal state.
type Tracker struct {
	repo   Repo
	logger *slog.Logger
}

// NewTracker constructs a Tracker; repo may be nil for a no-op tracker.
func NewTracker(repo Repo, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{repo: repo, logger: logger}
}

// RecordOutcome appends one terminal outcome.
func (t *Tracker) RecordOutcome(ctx context.Context, analysisID, errorType string, strategy models.FixStrategy, outcome models.Outcome, duration time.Duration) {
	if t.repo == nil {
		return
	}
	record := models.FixAttemptRecord{
		AnalysisID: analysisID,
		ErrorType:  errorType,
		Strategy:   strategy,
		Outcome:    outcome,
		Success:    outcome == models.OutcomeDeployed,
		Duration:   duration,
		RecordedAt: time.Now().UTC(),
	}
	if err := t.repo.Record(ctx, record); err != nil {
		t.logger.Warn("record fix attempt",
			slog.String("analysis_id", analysisID), slog.Any("error", err))
	}
}

// SuccessRate reports the historical automated-fix success ratio for an
// error type; 0.5 when unknown.
func (t *Tracker) SuccessRate(ctx context.Context, errorType string) float64 {
	if t.repo == nil {
		return 0.5
	}
	rate, err := t.repo.SuccessRate(ctx, errorType)
	if err != nil {
		t.logger.Warn("query success rate", slog.String("error_type", errorType), slog.Any("error", err))
		return 0.5
	}
	return rate
}
