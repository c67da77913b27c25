// Package risk holds the pure decision functions gating automated fixes.
// Nothing here touches clocks, state, or I/O.
package risk

import "github.com/remedystack/remedy-engine/internal/models"

// Thresholds are the two decision gates: confidence must exceed AutoFix and
// the risk score must stay below HumanReview for a fix to run unattended.
type Thresholds struct {
	AutoFix     float64
	HumanReview float64
}

// categoryScores maps categorical risk levels onto fixed scalars. Unknown
// levels score as MEDIUM.
var categoryScores = map[models.RiskLevel]float64{
	models.RiskLow:      0.2,
	models.RiskMedium:   0.5,
	models.RiskHigh:     0.8,
	models.RiskCritical: 1.0,
}

const defaultCategoryScore = 0.5

// Score returns the unweighted arithmetic mean of the four mapped category
// scores. The result is always in [0.2, 1.0].
func Score(analysis models.AnalysisResult) float64 {
	total := 0.0
	for _, level := range analysis.RiskAssessment.Categories() {
		score, ok := categoryScores[level]
		if !ok {
			score = defaultCategoryScore
		}
		total += score
	}
	return total / 4
}

// OverallLevel bands the mean category score back into a single level, used
// for review prioritisation.
func OverallLevel(analysis models.AnalysisResult) models.RiskLevel {
	score := Score(analysis)
	switch {
	case score >= 0.8:
		return models.RiskCritical
	case score >= 0.6:
		return models.RiskHigh
	case score >= 0.4:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// ShouldAutoFix reports whether the fix may run without a human. All five
// conditions must hold.
func ShouldAutoFix(analysis models.AnalysisResult, plan models.FixPlan, thresholds Thresholds) bool {
	return analysis.ConfidenceScore > thresholds.AutoFix &&
		Score(analysis) < thresholds.HumanReview &&
		!analysis.RequiresHumanReview &&
		plan.Strategy == models.StrategyAutomated &&
		len(plan.RiskFactors) <= 2
}
