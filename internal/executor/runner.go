package executor

import (
	"context"
	"os/exec"
)

// CommandRunner abstracts external tool invocation so handlers are testable
// without spawning real processes. Run returns combined output and a non-nil
// error on non-zero exit.
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec. The context cancels the
// underlying process on expiry.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}
