package models

// AnalysisResult is the diagnostic output of the external analysis service
// for a single ErrorEvent. Produced once per processing run, read-only after.
type AnalysisResult struct {
	ErrorID             string              `json:"error_id"`
	RootCause           string              `json:"root_cause"`
	ConfidenceScore     float64             `json:"confidence_score"`
	RiskAssessment      RiskAssessment      `json:"risk_assessment"`
	SimilarPatterns     []string            `json:"similar_patterns,omitempty"`
	FixRecommendations  []FixRecommendation `json:"fix_recommendations,omitempty"`
	EstimatedFixTime    int                 `json:"estimated_fix_time"`
	RequiresHumanReview bool                `json:"requires_human_review"`
}

// RiskAssessment grades an error across four categories plus the derived
// overall level used for review prioritisation.
type RiskAssessment struct {
	TechnicalRisk  RiskLevel `json:"technical_risk"`
	BusinessRisk   RiskLevel `json:"business_risk"`
	SecurityRisk   RiskLevel `json:"security_risk"`
	ComplianceRisk RiskLevel `json:"compliance_risk"`
	OverallRisk    RiskLevel `json:"risk_level,omitempty"`
}

// Categories returns the four categorical levels in a fixed order.
func (r RiskAssessment) Categories() [4]RiskLevel {
	return [4]RiskLevel{r.TechnicalRisk, r.BusinessRisk, r.SecurityRisk, r.ComplianceRisk}
}

// FixRecommendation is a single candidate remediation suggested by analysis.
type FixRecommendation struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Action      string  `json:"action,omitempty"`
	Complexity  string  `json:"complexity,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// RiskLevel enumerates categorical risk grades.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)
