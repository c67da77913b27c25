// Package executor applies fix-plan actions through a registry of
// per-action-type handlers.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/remedystack/remedy-engine/internal/metrics"
	"github.com/remedystack/remedy-engine/internal/models"
)

// Result reports one action's outcome. Action failures are data, not
// errors: they drive the rollback branch rather than aborting the run.
type Result struct {
	Success     bool
	Description string
}

// Handler applies a single action.
type Handler func(ctx context.Context, action models.Action) Result

// Executor dispatches actions by type. New action types are added by
// registering a handler, not by editing a switch.
type Executor struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// New constructs an empty executor; callers register handlers explicitly.
func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register installs the handler for an action type, replacing any previous
// registration.
func (e *Executor) Register(actionType string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[actionType] = handler
}

// Execute applies one action. Unknown types fail the action rather than the
// pipeline.
func (e *Executor) Execute(ctx context.Context, action models.Action) Result {
	e.mu.RLock()
	handler, ok := e.handlers[action.Type]
	e.mu.RUnlock()

	if !ok {
		e.logger.Warn("no handler for action", slog.String("type", action.Type))
		metrics.ObserveAction(action.Type, false)
		return Result{Success: false, Description: fmt.Sprintf("Unknown action: %s", action.Type)}
	}

	result := handler(ctx, action)
	metrics.ObserveAction(action.Type, result.Success)
	return result
}
