package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-service/internal/logging"
	"alert-service/internal/models"
)

type fakeTaskLoader struct {
	tasks map[string]models.Task
	err   error
}

func (f *fakeTaskLoader) GetTask(_ context.Context, id string) (models.Task, error) {
	if f.err != nil {
		return models.Task{}, f.err
	}
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, errors.New("not found")
	}
	return t, nil
}

func TestCompletions_Handle(t *testing.T) {
	loader := &fakeTaskLoader{tasks: map[string]models.Task{
		"done":    {ID: "done", Status: models.TaskStatusCompleted, Value: json.RawMessage(`5`)},
		"open":    {ID: "open", Status: "todo", Value: json.RawMessage(`5`)},
		"checked": {ID: "checked", Status: models.TaskStatusCompleted, Value: json.RawMessage(`5`), AlertChecked: true},
	}}
	scanner := &fakeScanner{}
	tasks := &fakeTaskStore{}
	c := NewCompletions(loader, NewHook(scanner, tasks, logging.Discard(), nil))
	ctx := context.Background()

	res, err := c.Handle(ctx, "done")
	require.NoError(t, err)
	assert.True(t, res.Checked)
	assert.Empty(t, res.SkipReason)

	res, err = c.Handle(ctx, "open")
	require.NoError(t, err)
	assert.False(t, res.Checked)
	assert.Equal(t, SkipNotCompleted, res.SkipReason)

	res, err = c.Handle(ctx, "checked")
	require.NoError(t, err)
	assert.Equal(t, SkipNotEligible, res.SkipReason)

	_, err = c.Handle(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, 1, scanner.calls)
	assert.Equal(t, []string{"done"}, tasks.marked)
}
