package review

import (
	"context"
	"errors"
	"testing"

	"github.com/remedystack/remedy-engine/internal/models"
)

func analysisWith(level models.RiskLevel, review bool, confidence float64) models.AnalysisResult {
	return models.AnalysisResult{
		ConfidenceScore:     confidence,
		RequiresHumanReview: review,
		RiskAssessment:      models.RiskAssessment{OverallRisk: level},
	}
}

func TestPriorityScoring(t *testing.T) {
	cases := []struct {
		name     string
		analysis models.AnalysisResult
		want     int
	}{
		{"baseline", analysisWith(models.RiskLow, false, 0.9), 5},
		{"high risk", analysisWith(models.RiskHigh, false, 0.9), 7},
		{"critical risk", analysisWith(models.RiskCritical, false, 0.9), 9},
		{"human review flag", analysisWith(models.RiskLow, true, 0.9), 6},
		{"low confidence", analysisWith(models.RiskLow, false, 0.3), 7},
		{"clamped at ten", analysisWith(models.RiskCritical, true, 0.3), 10},
	}
	for _, tc := range cases {
		if got := Priority(tc.analysis); got != tc.want {
			t.Fatalf("%s: expected priority %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestPriorityDerivesOverallLevel(t *testing.T) {
	// No explicit overall level: derived from the four categories.
	analysis := models.AnalysisResult{
		ConfidenceScore: 0.9,
		RiskAssessment: models.RiskAssessment{
			TechnicalRisk:  models.RiskCritical,
			BusinessRisk:   models.RiskCritical,
			SecurityRisk:   models.RiskCritical,
			ComplianceRisk: models.RiskCritical,
		},
	}
	if got := Priority(analysis); got != 9 {
		t.Fatalf("expected derived CRITICAL priority 9, got %d", got)
	}
}

type fakeStore struct {
	items []models.ReviewQueueItem
	err   error
}

func (f *fakeStore) Enqueue(_ context.Context, item models.ReviewQueueItem) error {
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, item)
	return nil
}

type fakeTeamNotifier struct {
	notified int
	err      error
}

func (f *fakeTeamNotifier) NotifyReviewTeam(context.Context, models.ReviewQueueItem) error {
	f.notified++
	return f.err
}

func TestGatewaySubmit(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeTeamNotifier{}
	g := NewGateway(store, notifier, nil)

	item, err := g.Submit(context.Background(),
		models.ErrorEvent{ID: "err-1"},
		analysisWith(models.RiskHigh, true, 0.3),
		models.FixPlan{Strategy: models.StrategyManual},
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if item.ID == "" {
		t.Fatalf("expected generated item id")
	}
	if item.Priority != 10 {
		t.Fatalf("expected priority 10 (5+2+1+2), got %d", item.Priority)
	}
	if len(store.items) != 1 {
		t.Fatalf("item not persisted")
	}
	if notifier.notified != 1 {
		t.Fatalf("review team not notified")
	}
}

func TestGatewaySubmitStoreFailure(t *testing.T) {
	g := NewGateway(&fakeStore{err: errors.New("db locked")}, &fakeTeamNotifier{}, nil)

	_, err := g.Submit(context.Background(), models.ErrorEvent{ID: "err-1"},
		analysisWith(models.RiskLow, false, 0.9), models.FixPlan{})
	if err == nil {
		t.Fatalf("expected persistence failure to propagate")
	}
}

func TestGatewaySubmitNotifyFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{}
	g := NewGateway(store, &fakeTeamNotifier{err: errors.New("pager down")}, nil)

	if _, err := g.Submit(context.Background(), models.ErrorEvent{ID: "err-1"},
		analysisWith(models.RiskLow, false, 0.9), models.FixPlan{}); err != nil {
		t.Fatalf("notification failure must not fail the hand-off: %v", err)
	}
	if len(store.items) != 1 {
		t.Fatalf("item should still be persisted")
	}
}
