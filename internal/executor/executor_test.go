package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/remedystack/remedy-engine/internal/models"
)

// fakeRunner scripts command outcomes; a command fails when its joined form
// matches a configured failure.
type fakeRunner struct {
	calls    []string
	failures map[string]string
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)
	if msg, ok := f.failures[call]; ok {
		return []byte(msg), errors.New("exit status 1")
	}
	return []byte("ok"), nil
}

func TestExecuteUnknownAction(t *testing.T) {
	e := New(nil)
	result := e.Execute(context.Background(), models.Action{Type: "reboot_universe"})
	if result.Success {
		t.Fatalf("unknown action must fail")
	}
	if result.Description != "Unknown action: reboot_universe" {
		t.Fatalf("unexpected description %q", result.Description)
	}
}

func TestRegisterReplacesHandler(t *testing.T) {
	e := New(nil)
	e.Register("custom", func(context.Context, models.Action) Result {
		return Result{Success: false, Description: "old"}
	})
	e.Register("custom", func(context.Context, models.Action) Result {
		return Result{Success: true, Description: "new"}
	})
	result := e.Execute(context.Background(), models.Action{Type: "custom"})
	if !result.Success || result.Description != "new" {
		t.Fatalf("expected replacement handler, got %+v", result)
	}
}

func TestCodeChangeSuccess(t *testing.T) {
	runner := &fakeRunner{}
	handler := CodeChangeHandler(runner, []string{"npx", "eslint", "--fix"}, "")

	result := handler(context.Background(), models.Action{
		Type:          models.ActionCodeChange,
		FilesToModify: []string{"src/a.ts", "src/b.ts"},
	})
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Description)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "npx eslint --fix src/a.ts src/b.ts" {
		t.Fatalf("unexpected invocation %v", runner.calls)
	}
}

func TestCodeChangeToolFailure(t *testing.T) {
	runner := &fakeRunner{failures: map[string]string{
		"npx eslint --fix src/a.ts": "parse error at line 3",
	}}
	handler := CodeChangeHandler(runner, []string{"npx", "eslint", "--fix"}, "")

	result := handler(context.Background(), models.Action{
		Type:          models.ActionCodeChange,
		FilesToModify: []string{"src/a.ts"},
	})
	if result.Success {
		t.Fatalf("expected failure on non-zero exit")
	}
	if !strings.Contains(result.Description, "parse error") {
		t.Fatalf("expected tool output in description, got %q", result.Description)
	}
}

func TestDependencyUpdateSequentialFailFast(t *testing.T) {
	runner := &fakeRunner{failures: map[string]string{
		"npm install right-pad": "E404 not found",
	}}
	handler := DependencyUpdateHandler(runner, "")

	result := handler(context.Background(), models.Action{
		Type:           models.ActionDepUpdate,
		PackageManager: "npm",
		Packages:       []string{"left-pad", "right-pad", "up-pad"},
	})
	if result.Success {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(result.Description, "right-pad") {
		t.Fatalf("description must name the failing package, got %q", result.Description)
	}
	// left-pad installed, right-pad failed, up-pad never attempted.
	if len(runner.calls) != 2 {
		t.Fatalf("expected install to stop after first failure, calls: %v", runner.calls)
	}
}

func TestDependencyUpdateAllPackages(t *testing.T) {
	runner := &fakeRunner{}
	handler := DependencyUpdateHandler(runner, "")

	result := handler(context.Background(), models.Action{
		Type:           models.ActionDepUpdate,
		PackageManager: "npm",
		Packages:       []string{"stripe", "express"},
	})
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Description)
	}
	want := []string{"npm install stripe", "npm install express"}
	for i, call := range want {
		if runner.calls[i] != call {
			t.Fatalf("call %d: expected %q, got %q", i, call, runner.calls[i])
		}
	}
}

func TestConfigurationChangeMergesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte("timeout: 5\nretries: 3\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	handler := ConfigurationChangeHandler("")
	result := handler(context.Background(), models.Action{
		Type:       models.ActionConfigChange,
		ConfigFile: path,
		Settings:   map[string]any{"timeout": 30},
	})
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Description)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var merged map[string]any
	if err := yaml.Unmarshal(data, &merged); err != nil {
		t.Fatalf("parse merged config: %v", err)
	}
	if fmt.Sprintf("%v", merged["timeout"]) != "30" {
		t.Fatalf("expected timeout 30, got %v", merged["timeout"])
	}
	if fmt.Sprintf("%v", merged["retries"]) != "3" {
		t.Fatalf("untouched key lost: %v", merged["retries"])
	}
}

func TestConfigurationChangeMissingFields(t *testing.T) {
	handler := ConfigurationChangeHandler("")
	if r := handler(context.Background(), models.Action{Type: models.ActionConfigChange}); r.Success {
		t.Fatalf("expected failure without config file")
	}
}
