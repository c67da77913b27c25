// Package orchestrator drives the remediation pipeline for each detected
// error: analysis, planning, the automate-or-escalate decision, fix
// execution, validation and the deploy-or-rollback step. It owns the set of
// in-flight errors and active fix attempts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remedystack/remedy-engine/internal/config"
	"github.com/remedystack/remedy-engine/internal/deploy"
	"github.com/remedystack/remedy-engine/internal/executor"
	"github.com/remedystack/remedy-engine/internal/metrics"
	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/notify"
	"github.com/remedystack/remedy-engine/internal/risk"
)

var (
	// ErrDuplicate is returned when an error ID is already being processed.
	ErrDuplicate = errors.New("error already being processed")
	// ErrNotAccepting is returned after shutdown has begun.
	ErrNotAccepting = errors.New("orchestrator is not accepting errors")
)

// Analyzer produces a diagnostic for an error event.
type Analyzer interface {
	Analyze(ctx context.Context, event models.ErrorEvent) (models.AnalysisResult, error)
}

// Planner turns a diagnostic into an executable fix plan.
type Planner interface {
	Plan(ctx context.Context, analysis models.AnalysisResult) (models.FixPlan, error)
}

// ActionExecutor applies a single plan action.
type ActionExecutor interface {
	Execute(ctx context.Context, action models.Action) executor.Result
}

// Validator runs the plan's test requirements.
type Validator interface {
	RunAll(ctx context.Context, requirements []string) (bool, string)
}

// Deployer settles an executed fix into deployed or rolled back.
type Deployer interface {
	Decide(ctx context.Context, plan models.FixPlan, result models.FixExecutionResult) (deploy.Decision, error)
}

// Reviewer escalates a fix to the human review queue.
type Reviewer interface {
	Submit(ctx context.Context, event models.ErrorEvent, analysis models.AnalysisResult, plan models.FixPlan) (models.ReviewQueueItem, error)
}

// Recorder persists terminal outcomes for learning and answers the
// historical success rate consulted when an automated fix starts.
type Recorder interface {
	RecordOutcome(ctx context.Context, analysisID, errorType string, strategy models.FixStrategy, outcome models.Outcome, duration time.Duration)
	SuccessRate(ctx context.Context, errorType string) float64
}

// Deps bundles the pipeline collaborators.
type Deps struct {
	Analyzer  Analyzer
	Planner   Planner
	Actions   ActionExecutor
	Validator Validator
	Deployer  Deployer
	Reviewer  Reviewer
	Recorder  Recorder
	// IntakeReady reports intake connectivity for status snapshots. May be
	// nil when no external intake is wired.
	IntakeReady func() bool
}

// Orchestrator processes error events concurrently up to a configured bound.
// Each error runs the pipeline exactly once and reaches exactly one terminal
// state: deployed, rolled back, queued for review, or failed.
type Orchestrator struct {
	cfg    config.OrchestratorConfig
	deps   Deps
	bus    *notify.Bus
	logger *slog.Logger

	// ctx gates admission only: submissions still waiting for an execution
	// slot are released when it is cancelled. Pipeline stages never run on
	// it, so shutdown cannot cancel an in-flight external call.
	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}

	mu         sync.Mutex
	running    bool
	accepting  bool
	processing map[string]models.ErrorEvent
	attempts   map[string]models.ActiveAttempt
}

// New builds an Orchestrator. Call Start before Submit.
func New(cfg config.OrchestratorConfig, deps Deps, bus *notify.Bus, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		deps:       deps,
		bus:        bus,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		processing: make(map[string]models.ErrorEvent),
		attempts:   make(map[string]models.ActiveAttempt),
	}
}

// Start marks the orchestrator running and announces it.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	o.running = true
	o.accepting = true
	o.mu.Unlock()
	o.bus.Publish(notify.Event{Type: notify.EventAgentStarted})
	o.logger.Info("orchestrator started", slog.Int("max_concurrent", o.cfg.MaxConcurrent))
}

// Submit enqueues an error event for processing and returns immediately.
// A second submission of an ID still in flight is rejected with ErrDuplicate.
func (o *Orchestrator) Submit(event models.ErrorEvent) error {
	o.mu.Lock()
	if !o.accepting {
		o.mu.Unlock()
		return ErrNotAccepting
	}
	if _, exists := o.processing[event.ID]; exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicate, event.ID)
	}
	o.processing[event.ID] = event
	o.mu.Unlock()

	o.bus.Publish(notify.Event{Type: notify.EventErrorQueued, Event: &event})
	go o.process(event)
	return nil
}

// Status reports a point-in-time view of the engine.
func (o *Orchestrator) Status() models.StatusSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	ready := false
	if o.deps.IntakeReady != nil {
		ready = o.deps.IntakeReady()
	}
	return models.StatusSnapshot{
		Running:        o.running,
		QueueSize:      len(o.processing),
		ActiveAttempts: len(o.attempts),
		IntakeReady:    ready,
	}
}

// Shutdown stops accepting new errors, announces the stop, then polls the
// active-attempt set until it drains or the timeout lapses, whichever comes
// first. It returns the number of attempts still in flight when it stopped
// waiting. Those attempts are not cancelled; they finish on their own stage
// timeouts. Only submissions still waiting for an execution slot are
// released.
func (o *Orchestrator) Shutdown(timeout time.Duration) int {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return 0
	}
	o.running = false
	o.accepting = false
	o.mu.Unlock()

	o.bus.Publish(notify.Event{Type: notify.EventAgentStopped})

	poll := o.cfg.ShutdownPoll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		o.mu.Lock()
		active := len(o.attempts)
		o.mu.Unlock()
		if active == 0 {
			break
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(poll)
	}

	o.cancel()

	o.mu.Lock()
	residual := len(o.attempts)
	o.mu.Unlock()
	if residual > 0 {
		o.logger.Warn("shutdown with active attempts", slog.Int("residual", residual))
	}
	return residual
}

// process runs the pipeline for one event. Cleanup of the processing and
// attempt registrations is unconditional, panics included, so a crashed run
// can never wedge its error ID.
func (o *Orchestrator) process(event models.ErrorEvent) {
	start := time.Now()
	outcome := models.OutcomeFailed
	var analysisID string
	var strategy models.FixStrategy

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic",
				slog.String("error_id", event.ID), slog.Any("panic", r))
			o.bus.Publish(notify.Event{
				Type:  notify.EventErrorProcessingFailed,
				Event: &event,
				Error: fmt.Sprintf("panic: %v", r),
			})
			outcome = models.OutcomeFailed
		}
		o.clear(event.ID, analysisID)
		duration := time.Since(start)
		o.deps.Recorder.RecordOutcome(context.Background(), analysisID, event.Type, strategy, outcome, duration)
		metrics.ObserveRun(duration, string(outcome))
	}()

	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-o.ctx.Done():
		o.failed(event, o.ctx.Err())
		return
	}

	outcome = o.run(context.Background(), event, &analysisID, &strategy)
}

// run executes the staged pipeline and returns the terminal outcome. Exactly
// one terminal notification is published per call.
func (o *Orchestrator) run(ctx context.Context, event models.ErrorEvent, analysisID *string, strategy *models.FixStrategy) models.Outcome {
	analysis, err := o.deps.Analyzer.Analyze(ctx, event)
	if err != nil {
		o.logger.Error("analysis failed", slog.String("error_id", event.ID), slog.Any("error", err))
		o.failed(event, err)
		return models.OutcomeFailed
	}
	o.bus.Publish(notify.Event{Type: notify.EventAnalysisCompleted, Event: &event, Analysis: &analysis})

	plan, err := o.deps.Planner.Plan(ctx, analysis)
	if err != nil {
		o.logger.Error("planning failed", slog.String("error_id", event.ID), slog.Any("error", err))
		o.failed(event, err)
		return models.OutcomeFailed
	}
	if plan.AnalysisID == "" {
		plan.AnalysisID = uuid.NewString()
	}
	*analysisID = plan.AnalysisID
	*strategy = plan.Strategy
	o.bus.Publish(notify.Event{Type: notify.EventFixPlanGenerated, Event: &event, Analysis: &analysis, Plan: &plan})

	thresholds := risk.Thresholds{
		AutoFix:     o.cfg.AutoFixThreshold,
		HumanReview: o.cfg.HumanReviewThreshold,
	}
	if !risk.ShouldAutoFix(analysis, plan, thresholds) {
		item, err := o.deps.Reviewer.Submit(ctx, event, analysis, plan)
		if err != nil {
			o.logger.Error("review escalation failed", slog.String("error_id", event.ID), slog.Any("error", err))
			o.failed(event, err)
			return models.OutcomeFailed
		}
		metrics.IncReviewQueued()
		o.logger.Info("queued for human review",
			slog.String("error_id", event.ID),
			slog.String("item_id", item.ID),
			slog.Int("priority", item.Priority))
		o.bus.Publish(notify.Event{Type: notify.EventQueuedForReview, Event: &event, Analysis: &analysis, Plan: &plan})
		return models.OutcomeReviewQueued
	}

	rate := o.deps.Recorder.SuccessRate(ctx, event.Type)
	o.logger.Info("starting automated fix",
		slog.String("error_id", event.ID),
		slog.String("analysis_id", plan.AnalysisID),
		slog.Float64("historical_success_rate", rate))

	o.beginAttempt(plan.AnalysisID)
	result := o.executeFix(ctx, plan)
	o.bus.Publish(notify.Event{Type: notify.EventFixCompleted, Event: &event, Analysis: &analysis, Plan: &plan, Result: &result})

	dctx := ctx
	if o.cfg.DeploymentTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, o.cfg.DeploymentTimeout)
		defer cancel()
	}
	decision, err := o.deps.Deployer.Decide(dctx, plan, result)
	switch decision {
	case deploy.DecisionDeployed:
		o.bus.Publish(notify.Event{Type: notify.EventFixDeployed, Event: &event, Plan: &plan, Result: &result})
		return models.OutcomeDeployed
	case deploy.DecisionRolledBack:
		o.bus.Publish(notify.Event{Type: notify.EventFixRolledBack, Event: &event, Plan: &plan, Result: &result})
		return models.OutcomeRolledBack
	default:
		o.logger.Error("rollback failed", slog.String("error_id", event.ID), slog.Any("error", err))
		o.bus.Publish(notify.Event{
			Type:   notify.EventRollbackFailed,
			Event:  &event,
			Plan:   &plan,
			Result: &result,
			Error:  errString(err),
		})
		return models.OutcomeFailed
	}
}

// executeFix applies plan actions in order, failing fast, then runs the test
// requirements. Validation is skipped once a rollback is already required.
func (o *Orchestrator) executeFix(ctx context.Context, plan models.FixPlan) models.FixExecutionResult {
	start := time.Now()
	result := models.FixExecutionResult{Success: true}

	ectx := ctx
	if o.cfg.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, o.cfg.ExecutionTimeout)
		defer cancel()
	}
	for _, action := range plan.Actions {
		res := o.deps.Actions.Execute(ectx, action)
		if !res.Success {
			o.logger.Warn("action failed",
				slog.String("analysis_id", plan.AnalysisID),
				slog.String("action_type", action.Type),
				slog.String("detail", res.Description))
			result.Success = false
			result.RollbackRequired = true
			break
		}
		result.ChangesApplied = append(result.ChangesApplied, res.Description)
	}

	if result.Success {
		vctx := ctx
		if o.cfg.ValidationTimeout > 0 {
			var cancel context.CancelFunc
			vctx, cancel = context.WithTimeout(ctx, o.cfg.ValidationTimeout)
			defer cancel()
		}
		passed, failedSuite := o.deps.Validator.RunAll(vctx, plan.TestRequirements)
		result.TestsPassed = passed
		if !passed {
			o.logger.Warn("validation failed",
				slog.String("analysis_id", plan.AnalysisID),
				slog.String("suite", failedSuite))
			result.Success = false
			result.RollbackRequired = true
		}
	}

	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result
}

func (o *Orchestrator) failed(event models.ErrorEvent, err error) {
	o.bus.Publish(notify.Event{
		Type:  notify.EventErrorProcessingFailed,
		Event: &event,
		Error: errString(err),
	})
}

func (o *Orchestrator) beginAttempt(analysisID string) {
	o.mu.Lock()
	o.attempts[analysisID] = models.ActiveAttempt{
		AnalysisID: analysisID,
		StartedAt:  time.Now().UTC(),
		Status:     "executing",
	}
	n := len(o.attempts)
	o.mu.Unlock()
	metrics.SetActiveAttempts(n)
}

func (o *Orchestrator) clear(errorID, analysisID string) {
	o.mu.Lock()
	delete(o.processing, errorID)
	if analysisID != "" {
		delete(o.attempts, analysisID)
	}
	n := len(o.attempts)
	o.mu.Unlock()
	metrics.SetActiveAttempts(n)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
