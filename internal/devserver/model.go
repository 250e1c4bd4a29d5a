// Package devserver implements the task service used for local development
// and end-to-end tests: accounts, token issuance and per-user task storage.
package devserver

import (
	"context"
	"errors"
	"time"

	"github.com/agadir/task-manager/internal/core/domain"
)

var (
	ErrUserExists         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
)

// Account is a stored user with its password hash.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// User returns the public view of the account.
func (a Account) User() domain.User {
	return domain.User{ID: a.ID, Name: a.Name, Email: a.Email, CreatedAt: a.CreatedAt}
}

// Repository persists accounts and tasks. Every task lookup is scoped to
// its owner; a task of another user is reported as ErrTaskNotFound.
type Repository interface {
	// CreateUser assigns acc.ID. Emails are unique (ErrUserExists).
	CreateUser(ctx context.Context, acc *Account) error
	FindUserByEmail(ctx context.Context, email string) (*Account, error)
	FindUserByID(ctx context.Context, id int64) (*Account, error)

	// InsertTask assigns t.ID.
	InsertTask(ctx context.Context, userID int64, t *domain.Task) error
	// FindTasks returns the user's tasks newest first, optionally
	// restricted to one status.
	FindTasks(ctx context.Context, userID int64, status domain.TaskStatus) ([]domain.Task, error)
	FindTask(ctx context.Context, userID, id int64) (*domain.Task, error)
	ReplaceTask(ctx context.Context, userID int64, t domain.Task) error
	DeleteTask(ctx context.Context, userID, id int64) error

	Ping(ctx context.Context) error
}
