package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agadir/task-manager/internal/core/domain"
)

// TaskService is the task surface the handlers need. Every call is scoped
// to the authenticated user.
type TaskService interface {
	List(ctx context.Context, userID int64, status domain.TaskStatus) ([]domain.Task, error)
	Get(ctx context.Context, userID, id int64) (*domain.Task, error)
	Create(ctx context.Context, userID int64, in domain.NewTask) (*domain.Task, error)
	Update(ctx context.Context, userID, id int64, in domain.TaskUpdate) (*domain.Task, error)
	MarkDone(ctx context.Context, userID, id int64) (*domain.Task, error)
	Delete(ctx context.Context, userID, id int64) error
	Stats(ctx context.Context, userID int64) (*domain.TaskStats, error)
}

type TaskHandler struct {
	taskService TaskService
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=255"`
	Description string     `json:"description" validate:"max=2000"`
	DueDate     *time.Time `json:"due_date" validate:"required"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"due_date"`
	Status      *string    `json:"status" validate:"omitempty,oneof=pending done"`
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type taskResponse struct {
	Task *domain.Task `json:"task"`
}

type statsResponse struct {
	Stats *domain.TaskStats `json:"stats"`
}

// List returns the user's tasks, optionally filtered by ?status=pending|done.
func (h *TaskHandler) List(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	status := domain.TaskStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be one of: pending done")
	}

	tasks, err := h.taskService.List(c.Request().Context(), userID, status)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, tasksResponse{Tasks: tasks})
}

func (h *TaskHandler) Get(c echo.Context) error {
	userID, id, err := h.target(c)
	if err != nil {
		return err
	}
	task, err := h.taskService.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, taskResponse{Task: task})
}

func (h *TaskHandler) Create(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.taskService.Create(c.Request().Context(), userID, domain.NewTask{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     *req.DueDate,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, taskResponse{Task: task})
}

func (h *TaskHandler) Update(c echo.Context) error {
	userID, id, err := h.target(c)
	if err != nil {
		return err
	}

	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in := domain.TaskUpdate{Title: req.Title, Description: req.Description, DueDate: req.DueDate}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		in.Status = &status
	}

	task, err := h.taskService.Update(c.Request().Context(), userID, id, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, taskResponse{Task: task})
}

// MarkDone forces the task status to done.
func (h *TaskHandler) MarkDone(c echo.Context) error {
	userID, id, err := h.target(c)
	if err != nil {
		return err
	}
	task, err := h.taskService.MarkDone(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, taskResponse{Task: task})
}

func (h *TaskHandler) Delete(c echo.Context) error {
	userID, id, err := h.target(c)
	if err != nil {
		return err
	}
	if err := h.taskService.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: "task deleted"})
}

func (h *TaskHandler) Stats(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	stats, err := h.taskService.Stats(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, statsResponse{Stats: stats})
}

func (h *TaskHandler) target(c echo.Context) (int64, int64, error) {
	userID, err := ctxUserID(c)
	if err != nil {
		return 0, 0, err
	}
	id, err := pathTaskID(c)
	if err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}
