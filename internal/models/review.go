package models

import "time"

// ReviewQueueItem packages everything a human reviewer needs to pick up an
// error the pipeline declined to fix automatically. Write-once.
type ReviewQueueItem struct {
	ID         string         `json:"id"`
	ErrorEvent ErrorEvent     `json:"error_event"`
	Analysis   AnalysisResult `json:"analysis"`
	FixPlan    FixPlan        `json:"fix_plan"`
	QueuedAt   time.Time      `json:"queued_at"`
	Priority   int            `json:"priority"`
}

// ActiveAttempt is the bookkeeping record for an in-flight automated fix
// execution. It exists only while execution is running.
type ActiveAttempt struct {
	AnalysisID string    `json:"analysis_id"`
	StartedAt  time.Time `json:"started_at"`
	Status     string    `json:"status"`
}

// FixAttemptRecord captures a terminal outcome for learning purposes.
type FixAttemptRecord struct {
	AnalysisID string        `json:"analysis_id"`
	ErrorType  string        `json:"error_type"`
	Strategy   FixStrategy   `json:"strategy"`
	Outcome    Outcome       `json:"outcome"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"duration"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Outcome enumerates the exactly-one terminal state of a processing run.
type Outcome string

const (
	OutcomeDeployed     Outcome = "deployed"
	OutcomeRolledBack   Outcome = "rolled_back"
	OutcomeReviewQueued Outcome = "review_queued"
	OutcomeFailed       Outcome = "processing_failed"
)

// StatusSnapshot is the read-only view returned by the orchestrator.
type StatusSnapshot struct {
	Running        bool `json:"running"`
	QueueSize      int  `json:"queue_size"`
	ActiveAttempts int  `json:"active_attempts"`
	IntakeReady    bool `json:"intake_ready"`
}
