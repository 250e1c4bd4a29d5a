package devserver

import (
	"context"
	"strings"
	"time"

	"github.com/agadir/task-manager/internal/core/domain"
)

// TaskService implements the per-user task operations.
type TaskService struct {
	repo Repository
	now  func() time.Time
}

func NewTaskService(repo Repository) *TaskService {
	return &TaskService{repo: repo, now: time.Now}
}

func (s *TaskService) List(ctx context.Context, userID int64, status domain.TaskStatus) ([]domain.Task, error) {
	return s.repo.FindTasks(ctx, userID, status)
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*domain.Task, error) {
	return s.repo.FindTask(ctx, userID, id)
}

// Create stores a new pending task.
func (s *TaskService) Create(ctx context.Context, userID int64, in domain.NewTask) (*domain.Task, error) {
	now := s.now().UTC()
	t := &domain.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		DueDate:     in.DueDate.UTC(),
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertTask(ctx, userID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies the non-nil fields of in.
func (s *TaskService) Update(ctx context.Context, userID, id int64, in domain.TaskUpdate) (*domain.Task, error) {
	t, err := s.repo.FindTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate.UTC()
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.repo.ReplaceTask(ctx, userID, *t); err != nil {
		return nil, err
	}
	return t, nil
}

// MarkDone forces the status to done. Completing a done task succeeds.
func (s *TaskService) MarkDone(ctx context.Context, userID, id int64) (*domain.Task, error) {
	done := domain.StatusDone
	return s.Update(ctx, userID, id, domain.TaskUpdate{Status: &done})
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteTask(ctx, userID, id)
}

// Stats counts the user's tasks. Overdue tasks are pending ones whose due
// date has passed.
func (s *TaskService) Stats(ctx context.Context, userID int64) (*domain.TaskStats, error) {
	tasks, err := s.repo.FindTasks(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	var st domain.TaskStats
	for _, t := range tasks {
		st.Total++
		if t.IsDone() {
			st.Done++
			continue
		}
		st.Pending++
		if t.IsOverdue(now) {
			st.Overdue++
		}
	}
	return &st, nil
}
