package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/core/ports"
	"github.com/agadir/task-manager/internal/core/validation"
)

// TaskManager caches the signed-in user's tasks and stats. Remote calls run
// without holding the lock, so overlapping operations apply their results in
// completion order.
type TaskManager struct {
	api    ports.TaskAPI
	logger zerolog.Logger

	mu       sync.Mutex
	tasks    []domain.Task
	stats    *domain.TaskStats
	filter   domain.Filter
	inflight int
	lastErr  error
	owner    int64
	// gen is bumped by Reset; results of calls started earlier are dropped.
	gen uint64
}

func NewTaskManager(api ports.TaskAPI, logger zerolog.Logger) *TaskManager {
	return &TaskManager{
		api:    api,
		logger: logger.With().Str("component", "tasks").Logger(),
		tasks:  []domain.Task{},
		filter: domain.FilterAll,
	}
}

// Tasks returns a copy of the cached collection.
func (m *TaskManager) Tasks() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tasks)
}

// Stats returns the last fetched stats, or nil before the first fetch.
func (m *TaskManager) Stats() *domain.TaskStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats == nil {
		return nil
	}
	s := *m.stats
	return &s
}

func (m *TaskManager) Filter() domain.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// IsLoading reports whether any operation is in flight.
func (m *TaskManager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// LastError returns the failure of the most recent operation, or nil.
func (m *TaskManager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// LoadTasks replaces the collection with the list for the current filter.
func (m *TaskManager) LoadTasks(ctx context.Context) error {
	return m.LoadTasksFor(ctx, m.Filter())
}

// LoadTasksFor replaces the collection with the list for filter, leaving the
// stored filter unchanged.
func (m *TaskManager) LoadTasksFor(ctx context.Context, filter domain.Filter) error {
	gen, done := m.begin()
	defer done()

	tasks, err := m.api.ListTasks(ctx, filter)
	if err != nil {
		return m.fail(gen, "load tasks", err)
	}

	if tasks == nil {
		tasks = []domain.Task{}
	}
	m.apply(gen, func() { m.tasks = slices.Clone(tasks) })
	return nil
}

// LoadStats refreshes the aggregate counts. Failures are logged and
// returned but never recorded as LastError.
func (m *TaskManager) LoadStats(ctx context.Context) error {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	stats, err := m.api.Stats(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("stats refresh failed")
		return err
	}
	m.apply(gen, func() {
		s := *stats
		m.stats = &s
	})
	return nil
}

// Refresh reloads the list for the current filter, then the stats.
func (m *TaskManager) Refresh(ctx context.Context) error {
	err := m.LoadTasks(ctx)
	_ = m.LoadStats(ctx)
	return err
}

// SetFilter stores filter and reloads the list with it.
func (m *TaskManager) SetFilter(ctx context.Context, filter domain.Filter) error {
	m.mu.Lock()
	m.filter = filter
	m.mu.Unlock()
	return m.LoadTasks(ctx)
}

// GetTask fetches a single task without touching the collection.
func (m *TaskManager) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	gen, done := m.begin()
	defer done()

	task, err := m.api.GetTask(ctx, id)
	if err != nil {
		return nil, m.fail(gen, "get task", err)
	}
	return task, nil
}

// CreateTask validates the input, creates the task remotely and prepends
// the confirmed task to the collection. Nothing is inserted before the
// service answers.
func (m *TaskManager) CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	gen, done := m.begin()
	defer done()

	if err := validation.ValidateTask(validation.TaskForm{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
	}); err != nil {
		return nil, m.fail(gen, "create task", err)
	}

	task, err := m.api.CreateTask(ctx, in)
	if err != nil {
		return nil, m.fail(gen, "create task", err)
	}

	created := *task
	m.apply(gen, func() {
		m.tasks = append([]domain.Task{created}, m.tasks...)
	})
	m.logger.Info().Int64("task_id", created.ID).Msg("task created")

	_ = m.LoadStats(ctx)
	return task, nil
}

// UpdateTask applies a partial update and replaces the cached copy.
func (m *TaskManager) UpdateTask(ctx context.Context, id int64, in domain.TaskUpdate) (*domain.Task, error) {
	gen, done := m.begin()
	defer done()

	if err := validateUpdate(in); err != nil {
		return nil, m.fail(gen, "update task", err)
	}

	task, err := m.api.UpdateTask(ctx, id, in)
	if err != nil {
		return nil, m.fail(gen, "update task", err)
	}
	m.replace(gen, id, *task)

	_ = m.LoadStats(ctx)
	return task, nil
}

// MarkAsDone completes a task. Completing an already done task is left to
// the service to accept.
func (m *TaskManager) MarkAsDone(ctx context.Context, id int64) (*domain.Task, error) {
	gen, done := m.begin()
	defer done()

	task, err := m.api.MarkDone(ctx, id)
	if err != nil {
		return nil, m.fail(gen, "mark task done", err)
	}
	m.replace(gen, id, *task)

	_ = m.LoadStats(ctx)
	return task, nil
}

// DeleteTask removes a task remotely, then from the collection.
func (m *TaskManager) DeleteTask(ctx context.Context, id int64) error {
	gen, done := m.begin()
	defer done()

	if err := m.api.DeleteTask(ctx, id); err != nil {
		return m.fail(gen, "delete task", err)
	}
	m.apply(gen, func() {
		m.tasks = slices.DeleteFunc(m.tasks, func(t domain.Task) bool { return t.ID == id })
	})
	m.logger.Info().Int64("task_id", id).Msg("task deleted")

	_ = m.LoadStats(ctx)
	return nil
}

// Reset discards the cached collection, stats and filter. Results of calls
// still in flight are dropped when they complete.
func (m *TaskManager) Reset() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
}

// OnSessionChange resets the collection whenever the signed-in user changes,
// so one user's tasks are never shown to another.
func (m *TaskManager) OnSessionChange(s domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.UserID() == m.owner {
		return
	}
	m.resetLocked()
	m.owner = s.UserID()
}

func (m *TaskManager) resetLocked() {
	m.gen++
	m.tasks = []domain.Task{}
	m.stats = nil
	m.filter = domain.FilterAll
	m.lastErr = nil
}

// replace swaps the first cached task with the given id.
func (m *TaskManager) replace(gen uint64, id int64, task domain.Task) {
	m.apply(gen, func() {
		if i := slices.IndexFunc(m.tasks, func(t domain.Task) bool { return t.ID == id }); i >= 0 {
			m.tasks[i] = task
		}
	})
}

// begin clears LastError and marks an operation in flight.
func (m *TaskManager) begin() (uint64, func()) {
	m.mu.Lock()
	m.inflight++
	m.lastErr = nil
	gen := m.gen
	m.mu.Unlock()

	return gen, func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}
}

func (m *TaskManager) apply(gen uint64, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	fn()
}

func (m *TaskManager) fail(gen uint64, op string, err error) error {
	m.logger.Info().Err(err).Str("op", op).Msg("task operation failed")
	m.apply(gen, func() { m.lastErr = err })
	return err
}

func validateUpdate(in domain.TaskUpdate) error {
	if in.Empty() {
		return fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	if in.Title != nil {
		if r := validation.ValidateTaskTitle(*in.Title); !r.Valid {
			return validation.Errors{"title": r.Message}
		}
	}
	if in.Status != nil && !in.Status.Valid() {
		return validation.Errors{"status": fmt.Sprintf("unknown status %q", *in.Status)}
	}
	return nil
}
