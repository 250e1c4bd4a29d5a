package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the completion state of a task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusDone    TaskStatus = "done"
)

// Valid reports whether s is a status the remote service understands.
func (s TaskStatus) Valid() bool {
	return s == StatusPending || s == StatusDone
}

// Task is a user-owned to-do item. The authoritative copy lives on the
// remote service; local copies are snapshots.
type Task struct {
	ID          int64      `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     time.Time  `json:"due_date" yaml:"due_date"`
	Status      TaskStatus `json:"status" yaml:"status"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`

	Extra Extra `json:"-" yaml:"-"`
}

type taskJSON Task

var taskKeys = []string{"id", "title", "description", "due_date", "status", "created_at", "updated_at"}

func (t *Task) UnmarshalJSON(data []byte) error {
	var v taskJSON
	extra, err := decodeExtra(data, &v, taskKeys...)
	if err != nil {
		return err
	}
	v.Extra = extra
	*t = Task(v)
	return nil
}

func (t Task) MarshalJSON() ([]byte, error) {
	return encodeExtra(taskJSON(t), t.Extra)
}

// IsDone reports whether the task has been completed.
func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// IsOverdue reports whether the due date has passed without the task being done.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.IsDone() && t.DueDate.Before(now)
}

// DaysUntil returns the number of whole days between now and the due date.
// The result is negative once the task is overdue by at least a full day.
func (t Task) DaysUntil(now time.Time) int {
	return int(t.DueDate.Sub(now).Hours() / 24)
}

// NewTask carries the fields accepted when creating a task.
type NewTask struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"due_date"`
}

// TaskUpdate is a partial update: nil fields are left untouched remotely.
type TaskUpdate struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.DueDate == nil && u.Status == nil
}

// TaskStats are server-computed aggregate counts over the user's tasks.
type TaskStats struct {
	Total   int `json:"total" yaml:"total"`
	Pending int `json:"pending" yaml:"pending"`
	Done    int `json:"done" yaml:"done"`
	Overdue int `json:"overdue" yaml:"overdue"`
}

// Filter selects which subset of tasks is requested from the remote service.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterPending Filter = "pending"
	FilterDone    Filter = "done"
)

// Status returns the status query value for the filter, or "" for FilterAll.
func (f Filter) Status() TaskStatus {
	switch f {
	case FilterPending:
		return StatusPending
	case FilterDone:
		return StatusDone
	default:
		return ""
	}
}

// ParseFilter converts user input to a Filter. An empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending:
		return FilterPending, nil
	case FilterDone:
		return FilterDone, nil
	}
	return "", fmt.Errorf("%w: unknown filter %q (want all, pending or done)", ErrValidation, s)
}
