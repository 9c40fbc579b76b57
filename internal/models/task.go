package models

import (
	"bytes"
	"encoding/json"
)

// TaskStatusCompleted is the status of a task whose value has been recorded.
const TaskStatusCompleted = "completed"

// Task is the slice of a checklist task the alert subsystem reads. The task
// itself is owned by the todolist subsystem; only AlertChecked is written here.
type Task struct {
	ID           string          `json:"id"`
	KpiID        string          `json:"kpi_id"`
	ContextID    string          `json:"context_id"`
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	AlertChecked bool            `json:"alert_checked"`
}

// TaskCompletedEvent is published when a task is completed.
type TaskCompletedEvent struct {
	TaskID string `json:"task_id"`
}

// HasValue reports whether the task carries a recorded value worth checking.
// null, "", [] and {} count as empty.
func (t Task) HasValue() bool {
	v := bytes.TrimSpace(t.Value)
	switch string(v) {
	case "", "null", `""`, "[]", "{}":
		return false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return len(bytes.TrimSpace([]byte(s))) > 0
	}
	return true
}
