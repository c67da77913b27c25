// Package review routes errors the pipeline declined to fix automatically
// to a human review queue.
package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/risk"
)

// Store abstracts review-queue persistence.
type Store interface {
	Enqueue(ctx context.Context, item models.ReviewQueueItem) error
}

// TeamNotifier alerts the on-call review team about a new queue item. The
// delivery mechanism (chat, pager, email) is an external collaborator.
type TeamNotifier interface {
	NotifyReviewTeam(ctx context.Context, item models.ReviewQueueItem) error
}

// Priority scores how urgently a human should look at this error, in
// [0, 10]. Base 5; CRITICAL overall risk +4, HIGH +2; an explicit
// human-review requirement +1; low analysis confidence +2.
func Priority(analysis models.AnalysisResult) int {
	priority := 5

	level := analysis.RiskAssessment.OverallRisk
	if level == "" {
		level = risk.OverallLevel(analysis)
	}
	switch level {
	case models.RiskCritical:
		priority += 4
	case models.RiskHigh:
		priority += 2
	}

	if analysis.RequiresHumanReview {
		priority++
	}
	if analysis.ConfidenceScore < 0.5 {
		priority += 2
	}

	if priority > 10 {
		priority = 10
	}
	if priority < 0 {
		priority = 0
	}
	return priority
}

// Gateway persists review items and pings the review team.
type Gateway struct {
	store    Store
	notifier TeamNotifier
	logger   *slog.Logger
}

// NewGateway constructs a Gateway; notifier may be nil when no team
// alerting is configured.
func NewGateway(store Store, notifier TeamNotifier, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{store: store, notifier: notifier, logger: logger}
}

// Submit builds and persists the review item for an error. The stored item
// is the source of truth; a failed team notification is logged but does not
// fail the hand-off.
func (g *Gateway) Submit(ctx context.Context, event models.ErrorEvent, analysis models.AnalysisResult, plan models.FixPlan) (models.ReviewQueueItem, error) {
	item := models.ReviewQueueItem{
		ID:         uuid.NewString(),
		ErrorEvent: event,
		Analysis:   analysis,
		FixPlan:    plan,
		QueuedAt:   time.Now().UTC(),
		Priority:   Priority(analysis),
	}

	if err := g.store.Enqueue(ctx, item); err != nil {
		return models.ReviewQueueItem{}, err
	}

	if g.notifier != nil {
		if err := g.notifier.NotifyReviewTeam(ctx, item); err != nil {
			g.logger.Warn("review team notification failed",
				slog.String("item_id", item.ID), slog.Any("error", err))
		}
	}
	return item, nil
}
