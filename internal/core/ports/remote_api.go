package ports

import (
	"context"

	"github.com/agadir/task-manager/internal/core/domain"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput carries account credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	User  domain.User
	Token string
}

// AuthAPI is the remote authentication surface. Each method is exactly one
// network call and never mutates local state.
type AuthAPI interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Profile(ctx context.Context) (*domain.User, error)
}

// TaskAPI is the remote task surface. Each method is exactly one network
// call and never mutates local state.
type TaskAPI interface {
	ListTasks(ctx context.Context, filter domain.Filter) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error)
	UpdateTask(ctx context.Context, id int64, in domain.TaskUpdate) (*domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	MarkDone(ctx context.Context, id int64) (*domain.Task, error)
	Stats(ctx context.Context) (*domain.TaskStats, error)
}
