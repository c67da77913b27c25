package validate

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type scriptedRunner struct {
	calls []string
	fail  map[string]bool
}

func (s *scriptedRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	s.calls = append(s.calls, call)
	if s.fail[call] {
		return []byte("FAIL"), errors.New("exit status 1")
	}
	return []byte("PASS"), nil
}

func suiteMap() map[string][]string {
	return map[string][]string{
		"unit_tests":        {"npm", "test"},
		"integration_tests": {"npm", "run", "test:integration"},
		"security_scan":     {"npm", "audit"},
	}
}

func TestRunAllPasses(t *testing.T) {
	cmd := &scriptedRunner{}
	r := NewRunner(suiteMap(), cmd, "", nil)

	ok, failed := r.RunAll(context.Background(), []string{"unit_tests", "integration_tests", "security_scan"})
	if !ok {
		t.Fatalf("expected all suites to pass, %s failed", failed)
	}
	if len(cmd.calls) != 3 {
		t.Fatalf("expected 3 suite invocations, got %d", len(cmd.calls))
	}
}

func TestRunAllFailFast(t *testing.T) {
	cmd := &scriptedRunner{fail: map[string]bool{"npm test": true}}
	r := NewRunner(suiteMap(), cmd, "", nil)

	ok, failed := r.RunAll(context.Background(), []string{"unit_tests", "integration_tests"})
	if ok {
		t.Fatalf("expected failure")
	}
	if failed != "unit_tests" {
		t.Fatalf("expected unit_tests to be reported, got %s", failed)
	}
	if len(cmd.calls) != 1 {
		t.Fatalf("later suites must not run after a failure, calls: %v", cmd.calls)
	}
}

func TestUnknownSuitePassesVacuously(t *testing.T) {
	cmd := &scriptedRunner{}
	r := NewRunner(suiteMap(), cmd, "", nil)

	if !r.RunSuite(context.Background(), "chaos_monkey") {
		t.Fatalf("unrecognized suite must pass")
	}
	if len(cmd.calls) != 0 {
		t.Fatalf("unrecognized suite must not invoke commands")
	}
}

func TestRunAllRespectsOrder(t *testing.T) {
	cmd := &scriptedRunner{}
	r := NewRunner(suiteMap(), cmd, "", nil)

	r.RunAll(context.Background(), []string{"security_scan", "unit_tests"})
	if cmd.calls[0] != "npm audit" || cmd.calls[1] != "npm test" {
		t.Fatalf("suites must run in the order listed, got %v", cmd.calls)
	}
}
