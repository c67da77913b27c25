// Standalone mock of the analysis and planning services for local
// development. Answers every error with a low-risk automated fix plan so the
// full pipeline can be exercised without the real services.
package main

import (
	"encoding/json"
	"log"
	"net/http"
)

type errorEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	RawError string `json:"raw_error"`
}

type riskAssessment struct {
	TechnicalRisk  string `json:"technical_risk"`
	BusinessRisk   string `json:"business_risk"`
	SecurityRisk   string `json:"security_risk"`
	ComplianceRisk string `json:"compliance_risk"`
}

type analysisResult struct {
	ErrorID             string         `json:"error_id"`
	RootCause           string         `json:"root_cause"`
	ConfidenceScore     float64        `json:"confidence_score"`
	RiskAssessment      riskAssessment `json:"risk_assessment"`
	EstimatedFixTime    int            `json:"estimated_fix_time"`
	RequiresHumanReview bool           `json:"requires_human_review"`
}

type action struct {
	Type          string   `json:"action_type"`
	Description   string   `json:"description,omitempty"`
	FilesToModify []string `json:"files_to_modify,omitempty"`
	Changes       string   `json:"changes,omitempty"`
}

type fixPlan struct {
	AnalysisID       string   `json:"analysis_id"`
	Strategy         string   `json:"strategy"`
	Actions          []action `json:"actions"`
	TestRequirements []string `json:"test_requirements"`
	RiskFactors      []string `json:"risk_factors"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var event errorEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, analysisResult{
			ErrorID:         event.ID,
			RootCause:       "null dereference in request handler",
			ConfidenceScore: 0.92,
			RiskAssessment: riskAssessment{
				TechnicalRisk:  "LOW",
				BusinessRisk:   "LOW",
				SecurityRisk:   "LOW",
				ComplianceRisk: "LOW",
			},
			EstimatedFixTime: 10,
		})
	})

	mux.HandleFunc("/api/v1/plan", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var analysis analysisResult
		if err := json.NewDecoder(r.Body).Decode(&analysis); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, fixPlan{
			AnalysisID: analysis.ErrorID,
			Strategy:   "automated",
			Actions: []action{
				{
					Type:          "code_change",
					Description:   "guard the nullable response field",
					FilesToModify: []string{"src/handlers/checkout.js"},
					Changes:       "add optional chaining on order.items",
				},
			},
			TestRequirements: []string{"unit_tests"},
		})
	})

	addr := ":9090"
	log.Printf("mock analysis/planning services listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
