// Package aggregate derives a project's progress and status from its tasks.
//
// Compute is the only implementation of the rollup rule. Engine applies it to
// a stored project and Dispatcher is the single entry point task mutations use
// to request a refresh.
package aggregate

import (
	"context"
	"fmt"
	"math/big"

	"tracker/internal/models"
)

// Result is the derived state of one project.
type Result struct {
	ProjectID string        `json:"projectId"`
	Progress  float64       `json:"progress"`
	Status    models.Status `json:"status"`
}

// Compute maps a task set to (progress, status).
//
// Progress is completedWeight/totalWeight as a percentage truncated to one
// decimal place using integer arithmetic, so 100 is only reported when all
// weight is done. Status is done when every task is done, in_progress when at
// least one task is in_progress, and draft otherwise, including the case of
// done and draft tasks with nothing in progress.
func Compute(tasks []models.Task) Result {
	if len(tasks) == 0 {
		return Result{Progress: 0, Status: models.StatusDraft}
	}

	total, completed := new(big.Int), new(big.Int)
	allDone, anyInProgress := true, false
	for _, t := range tasks {
		w := big.NewInt(int64(max(t.Weight, 0)))
		total.Add(total, w)
		switch t.Status {
		case models.StatusDone:
			completed.Add(completed, w)
		case models.StatusInProgress:
			anyInProgress = true
			allDone = false
		default:
			allDone = false
		}
	}

	// Sums are exact at any weight; the quotient is at most 1000.
	var tenths int64
	if total.Sign() > 0 {
		tenths = completed.Mul(completed, big.NewInt(1000)).Quo(completed, total).Int64()
	}

	status := models.StatusDraft
	switch {
	case allDone:
		status = models.StatusDone
	case anyInProgress:
		status = models.StatusInProgress
	}

	return Result{Progress: float64(tenths) / 10, Status: status}
}

// TaskLister loads the full task set of a project.
type TaskLister interface {
	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)
}

// AggregateWriter persists derived project fields. It returns
// models.ErrNotFound when the project does not exist.
type AggregateWriter interface {
	SetProjectAggregate(ctx context.Context, id string, progress float64, status models.Status) error
}

// Engine recalculates stored projects.
type Engine struct {
	tasks    TaskLister
	projects AggregateWriter
}

// NewEngine builds an engine over the given stores.
func NewEngine(tasks TaskLister, projects AggregateWriter) *Engine {
	return &Engine{tasks: tasks, projects: projects}
}

// Recalculate reloads the project's tasks, computes the rollup and stores it.
// A missing project yields an error wrapping models.ErrNotFound and no write.
func (e *Engine) Recalculate(ctx context.Context, projectID string) (Result, error) {
	tasks, err := e.tasks.ListTasks(ctx, projectID)
	if err != nil {
		return Result{}, fmt.Errorf("recalculate %s: %w", projectID, err)
	}

	res := Compute(tasks)
	res.ProjectID = projectID

	if err := e.projects.SetProjectAggregate(ctx, projectID, res.Progress, res.Status); err != nil {
		return Result{}, fmt.Errorf("recalculate %s: %w", projectID, err)
	}
	return res, nil
}
