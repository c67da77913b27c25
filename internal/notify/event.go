package notify

import (
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

// EventType enumerates the observable lifecycle notifications.
type EventType string

const (
	EventAgentStarted          EventType = "agent_started"
	EventAgentStopped          EventType = "agent_stopped"
	EventErrorQueued           EventType = "error_queued"
	EventAnalysisCompleted     EventType = "analysis_completed"
	EventFixPlanGenerated      EventType = "fix_plan_generated"
	EventFixCompleted          EventType = "fix_completed"
	EventQueuedForReview       EventType = "queued_for_review"
	EventFixDeployed           EventType = "fix_deployed"
	EventFixRolledBack         EventType = "fix_rolledback"
	EventRollbackFailed        EventType = "rollback_failed"
	EventErrorProcessingFailed EventType = "error_processing_failed"
)

// Event is one lifecycle notification. Payload fields are populated
// according to the event type; absent ones are nil.
type Event struct {
	Type     EventType                  `json:"type"`
	Event    *models.ErrorEvent         `json:"event,omitempty"`
	Analysis *models.AnalysisResult     `json:"analysis,omitempty"`
	Plan     *models.FixPlan            `json:"plan,omitempty"`
	Result   *models.FixExecutionResult `json:"result,omitempty"`
	Error    string                     `json:"error,omitempty"`
	At       time.Time                  `json:"at"`
}
