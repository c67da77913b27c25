package store

import (
	"context"
	"database/sql"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// HistoryRepo persists fix-attempt outcomes for learning.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo constructs a HistoryRepo over an open database.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Record appends one terminal outcome.
func (r *HistoryRepo) Record(ctx context.Context, record models.FixAttemptRecord) error {
	const q = `INSERT INTO fix_history (analysis_id, error_type, strategy, outcome, success, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	success := 0
	if record.Success {
		success = 1
	}
	if _, err := r.db.ExecContext(ctx, q,
		record.AnalysisID,
		record.ErrorType,
		string(record.Strategy),
		string(record.Outcome),
		success,
		record.Duration.Milliseconds(),
		record.RecordedAt.Unix(),
	); err != nil {
		return utils.NewAppError("history.record", "insert fix attempt", err)
	}
	return nil
}

// SuccessRate returns the historical automated-fix success ratio for an
// error type, and 0.5 when no history exists yet.
func (r *HistoryRepo) SuccessRate(ctx context.Context, errorType string) (float64, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(success), 0) FROM fix_history WHERE error_type = ?`

	var total, succeeded int
	if err := r.db.QueryRowContext(ctx, q, errorType).Scan(&total, &succeeded); err != nil {
		return 0, utils.NewAppError("history.rate", "query success rate", err)
	}
	if total == 0 {
		return 0.5, nil
	}
	return float64(succeeded) / float64(total), nil
}
