package aggregate

import (
	"context"
	"errors"
	"log/slog"

	"tracker/internal/models"
)

// Command asks for one project's rollup to be refreshed.
type Command struct {
	ProjectID string
}

// Recalculate builds a Command for projectID.
func Recalculate(projectID string) Command {
	return Command{ProjectID: projectID}
}

// Recalculator is satisfied by *Engine.
type Recalculator interface {
	Recalculate(ctx context.Context, projectID string) (Result, error)
}

// Dispatcher executes recalculation commands synchronously.
type Dispatcher struct {
	engine Recalculator
	logger *slog.Logger
}

// NewDispatcher wires a dispatcher to an engine.
func NewDispatcher(engine Recalculator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{engine: engine, logger: logger}
}

// Dispatch runs each distinct project id once, in order. Projects that no
// longer exist are skipped. Every command is attempted; the first other
// failure is returned alongside the results that succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, cmds ...Command) ([]Result, error) {
	seen := make(map[string]struct{}, len(cmds))
	results := make([]Result, 0, len(cmds))
	var firstErr error

	for _, cmd := range cmds {
		if cmd.ProjectID == "" {
			continue
		}
		if _, dup := seen[cmd.ProjectID]; dup {
			continue
		}
		seen[cmd.ProjectID] = struct{}{}

		res, err := d.engine.Recalculate(ctx, cmd.ProjectID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			d.logger.Debug("recalculation skipped, project gone", slog.String("project_id", cmd.ProjectID))
		case err != nil:
			d.logger.Error("recalculation failed", slog.String("project_id", cmd.ProjectID), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		default:
			results = append(results, res)
		}
	}
	return results, firstErr
}
