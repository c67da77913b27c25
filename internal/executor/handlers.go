package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/remedystack/remedy-engine/internal/models"
)

// NewDefault constructs an executor with the three built-in handlers
// registered. formatterCommand is the lint-fix tool invoked for code
// changes, e.g. ["npx", "eslint", "--fix"].
func NewDefault(logger *slog.Logger, runner CommandRunner, formatterCommand []string, workDir string) *Executor {
	e := New(logger)
	e.Register(models.ActionCodeChange, CodeChangeHandler(runner, formatterCommand, workDir))
	e.Register(models.ActionDepUpdate, DependencyUpdateHandler(runner, workDir))
	e.Register(models.ActionConfigChange, ConfigurationChangeHandler(workDir))
	return e
}

// CodeChangeHandler delegates to an external formatting/lint-fix tool over
// the action's target files. Success iff the tool exits zero.
func CodeChangeHandler(runner CommandRunner, command []string, workDir string) Handler {
	return func(ctx context.Context, action models.Action) Result {
		if len(command) == 0 {
			return Result{Success: false, Description: "code_change: no formatter command configured"}
		}
		if len(action.FilesToModify) == 0 {
			return Result{Success: false, Description: "code_change: no files to modify"}
		}

		args := append(append([]string(nil), command[1:]...), action.FilesToModify...)
		output, err := runner.Run(ctx, workDir, command[0], args...)
		if err != nil {
			return Result{
				Success:     false,
				Description: fmt.Sprintf("code_change failed on %s: %v: %s", strings.Join(action.FilesToModify, ","), err, firstLine(output)),
			}
		}
		return Result{
			Success:     true,
			Description: fmt.Sprintf("Applied code changes to %s", strings.Join(action.FilesToModify, ", ")),
		}
	}
}

// DependencyUpdateHandler installs each named package sequentially through
// the action's package manager; the first failure aborts the remaining
// installs and names the failing package.
func DependencyUpdateHandler(runner CommandRunner, workDir string) Handler {
	return func(ctx context.Context, action models.Action) Result {
		if action.PackageManager == "" {
			return Result{Success: false, Description: "dependency_update: no package manager specified"}
		}
		if len(action.Packages) == 0 {
			return Result{Success: false, Description: "dependency_update: no packages specified"}
		}

		for _, pkg := range action.Packages {
			output, err := runner.Run(ctx, workDir, action.PackageManager, "install", pkg)
			if err != nil {
				return Result{
					Success:     false,
					Description: fmt.Sprintf("dependency_update failed installing %s: %v: %s", pkg, err, firstLine(output)),
				}
			}
		}
		return Result{
			Success:     true,
			Description: fmt.Sprintf("Installed %s via %s", strings.Join(action.Packages, ", "), action.PackageManager),
		}
	}
}

// ConfigurationChangeHandler merges the action's settings into a YAML
// configuration file. Top-level keys are replaced; everything else in the
// file is preserved.
func ConfigurationChangeHandler(workDir string) Handler {
	return func(ctx context.Context, action models.Action) Result {
		if action.ConfigFile == "" {
			return Result{Success: false, Description: "configuration_change: no config file specified"}
		}
		if len(action.Settings) == 0 {
			return Result{Success: false, Description: "configuration_change: no settings provided"}
		}

		path := action.ConfigFile
		if workDir != "" && !strings.HasPrefix(path, "/") {
			path = workDir + "/" + path
		}

		existing := map[string]any{}
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &existing); err != nil {
				return Result{Success: false, Description: fmt.Sprintf("configuration_change: parse %s: %v", action.ConfigFile, err)}
			}
		} else if !os.IsNotExist(err) {
			return Result{Success: false, Description: fmt.Sprintf("configuration_change: read %s: %v", action.ConfigFile, err)}
		}

		for key, value := range action.Settings {
			existing[key] = value
		}

		merged, err := yaml.Marshal(existing)
		if err != nil {
			return Result{Success: false, Description: fmt.Sprintf("configuration_change: encode %s: %v", action.ConfigFile, err)}
		}
		if err := os.WriteFile(path, merged, 0o644); err != nil {
			return Result{Success: false, Description: fmt.Sprintf("configuration_change: write %s: %v", action.ConfigFile, err)}
		}

		keys := make([]string, 0, len(action.Settings))
		for key := range action.Settings {
			keys = append(keys, key)
		}
		return Result{
			Success:     true,
			Description: fmt.Sprintf("Updated %s (%s)", action.ConfigFile, strings.Join(keys, ", ")),
		}
	}
}

func firstLine(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return text
}
