// Package validate runs the test suites a fix plan requires before deploy.
package validate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/remedystack/remedy-engine/internal/executor"
)

// Runner executes named validation suites sequentially, fail-fast. Suite
// names map to external commands; names with no mapping pass vacuously
// (permissive-by-default so plans can carry forward-looking requirements).
type Runner struct {
	suites  map[string][]string
	runner  executor.CommandRunner
	workDir string
	logger  *slog.Logger
}

// NewRunner constructs a Runner from the suite-name to command mapping.
func NewRunner(suites map[string][]string, cmdRunner executor.CommandRunner, workDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		suites:  suites,
		runner:  cmdRunner,
		workDir: workDir,
		logger:  logger,
	}
}

// RunSuite executes one named suite, reporting pass/fail. Unrecognized
// names pass.
func (r *Runner) RunSuite(ctx context.Context, name string) bool {
	command, ok := r.suites[name]
	if !ok || len(command) == 0 {
		r.logger.Warn("unrecognized validation suite treated as passed", slog.String("suite", name))
		return true
	}

	output, err := r.runner.Run(ctx, r.workDir, command[0], command[1:]...)
	if err != nil {
		r.logger.Info("validation suite failed",
			slog.String("suite", name), slog.Any("error", err), slog.String("output", truncate(output, 512)))
		return false
	}
	return true
}

// RunAll executes the listed suites in order and stops at the first
// failure. It returns overall pass and the name of the failing suite.
func (r *Runner) RunAll(ctx context.Context, requirements []string) (bool, string) {
	for _, name := range requirements {
		if !r.RunSuite(ctx, name) {
			return false, name
		}
	}
	return true, ""
}

func truncate(output []byte, limit int) string {
	if len(output) <= limit {
		return string(output)
	}
	return fmt.Sprintf("%s... (%d bytes)", output[:limit], len(output))
}
