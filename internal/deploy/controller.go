// Package deploy decides between deploying a validated fix and rolling back
// a failed one.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/remedystack/remedy-engine/internal/executor"
	"github.com/remedystack/remedy-engine/internal/models"
)

// Decision is the controller's verdict for one execution result.
type Decision string

const (
	DecisionDeployed       Decision = "deployed"
	DecisionRolledBack     Decision = "rolled_back"
	DecisionRollbackFailed Decision = "rollback_failed"
)

// Controller deploys successful fixes and reverts failed ones. Deployment
// is a hand-off to an external CI/CD integration point; rollback reverts
// the most recent change-set.
type Controller struct {
	rollbackCommand []string
	workDir         string
	runner          executor.CommandRunner
	logger          *slog.Logger
}

// NewController constructs a Controller. rollbackCommand defaults to
// reverting the last commit.
func NewController(rollbackCommand []string, workDir string, runner executor.CommandRunner, logger *slog.Logger) *Controller {
	if len(rollbackCommand) == 0 {
		rollbackCommand = []string{"git", "revert", "--no-edit", "HEAD"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		rollbackCommand: rollbackCommand,
		workDir:         workDir,
		runner:          runner,
		logger:          logger,
	}
}

// Decide routes the execution result: rollback when the result demands it,
// deploy otherwise. Rollback failure is reported, not retried.
func (c *Controller) Decide(ctx context.Context, plan models.FixPlan, result models.FixExecutionResult) (Decision, error) {
	if result.RollbackRequired || !result.Success {
		if err := c.rollback(ctx, plan); err != nil {
			return DecisionRollbackFailed, err
		}
		return DecisionRolledBack, nil
	}
	return DecisionDeployed, c.deploy(ctx, plan)
}

func (c *Controller) deploy(ctx context.Context, plan models.FixPlan) error {
	// CI/CD hand-off point. The engine's responsibility ends at emitting
	// the fix_deployed notification; the delivery pipeline takes over.
	c.logger.Info("fix handed to deployment pipeline",
		slog.String("analysis_id", plan.AnalysisID), slog.String("strategy", string(plan.Strategy)))
	return nil
}

func (c *Controller) rollback(ctx context.Context, plan models.FixPlan) error {
	c.logger.Info("rolling back applied changes", slog.String("analysis_id", plan.AnalysisID))

	output, err := c.runner.Run(ctx, c.workDir, c.rollbackCommand[0], c.rollbackCommand[1:]...)
	if err != nil {
		return fmt.Errorf("rollback failed: %w: %s", err, output)
	}
	return nil
}
