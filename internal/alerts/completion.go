package alerts

import (
	"context"
	"fmt"

	"alert-service/internal/models"
)

// TaskLoader reads a task by id.
type TaskLoader interface {
	GetTask(ctx context.Context, id string) (models.Task, error)
}

// TaskHandler runs the alert check for a completed task.
type TaskHandler interface {
	OnTaskCompleted(ctx context.Context, task models.Task) bool
}

// Skip reasons reported by Completions.Handle.
const (
	SkipNotCompleted = "task not completed"
	SkipNotEligible  = "already checked or no value"
)

// CompletionResult describes what happened to one completion notice.
type CompletionResult struct {
	TaskID     string `json:"task_id"`
	Checked    bool   `json:"checked"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// Completions turns "task X was completed" notices from the HTTP callback or
// Kafka into alert checks. The task is always re-read so the alert-checked
// flag comes from storage, not from the notice.
type Completions struct {
	tasks TaskLoader
	hook  TaskHandler
}

func NewCompletions(tasks TaskLoader, hook TaskHandler) *Completions {
	return &Completions{tasks: tasks, hook: hook}
}

// Handle loads taskID and hands it to the hook. Only a failure to load the
// task is returned; the alert check itself never fails.
func (c *Completions) Handle(ctx context.Context, taskID string) (CompletionResult, error) {
	res := CompletionResult{TaskID: taskID}

	task, err := c.tasks.GetTask(ctx, taskID)
	if err != nil {
		return res, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	if task.Status != models.TaskStatusCompleted {
		res.SkipReason = SkipNotCompleted
		return res, nil
	}

	res.Checked = c.hook.OnTaskCompleted(ctx, task)
	if !res.Checked {
		res.SkipReason = SkipNotEligible
	}
	return res, nil
}
