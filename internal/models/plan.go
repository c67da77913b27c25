package models

// FixStrategy enumerates how a fix plan expects to be carried out.
type FixStrategy string

const (
	StrategyAutomated FixStrategy = "automated"
	StrategyAssisted  FixStrategy = "assisted"
	StrategyManual    FixStrategy = "manual"
	StrategyEscalated FixStrategy = "escalated"
)

// FixPlan is the ordered remediation program produced by the planning
// service for one analysis.
type FixPlan struct {
	AnalysisID         string       `json:"analysis_id"`
	Strategy           FixStrategy  `json:"strategy"`
	Actions            []Action     `json:"actions"`
	TestRequirements   []string     `json:"test_requirements"`
	RollbackPlan       RollbackPlan `json:"rollback_plan,omitempty"`
	ValidationCriteria []string     `json:"validation_criteria,omitempty"`
	EstimatedDuration  int          `json:"estimated_duration"`
	RiskFactors        []string     `json:"risk_factors"`
}

// RollbackPlan describes when an applied fix must be reverted post-deploy.
type RollbackPlan struct {
	Trigger string `json:"trigger,omitempty"`
}

// Action types understood by the built-in executor handlers. The set is
// open: unknown types fail the action rather than the pipeline.
const (
	ActionCodeChange   = "code_change"
	ActionDepUpdate    = "dependency_update"
	ActionConfigChange = "configuration_change"
)

// Action is one step of a fix plan, discriminated by Type. Only the fields
// relevant to the type are populated on the wire.
type Action struct {
	Type        string `json:"action_type"`
	Description string `json:"description,omitempty"`

	// code_change
	FilesToModify []string `json:"files_to_modify,omitempty"`
	Changes       string   `json:"changes,omitempty"`

	// dependency_update
	PackageManager string   `json:"package_manager,omitempty"`
	Packages       []string `json:"packages,omitempty"`

	// configuration_change
	ConfigFile string         `json:"config_file,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
}

// FixExecutionResult summarises one automated execution attempt.
type FixExecutionResult struct {
	Success          bool     `json:"success"`
	ExecutionTimeMs  int64    `json:"execution_time_ms"`
	TestsPassed      bool     `json:"tests_passed"`
	ChangesApplied   []string `json:"changes_applied"`
	RollbackRequired bool     `json:"rollback_required"`
}
