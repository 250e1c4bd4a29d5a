package ports

import (
	"context"

	"github.com/agadir/task-manager/internal/core/domain"
)

// CredentialStore persists the auth token and the cached user between runs.
//
// Getters return domain.ErrKeyNotFound when nothing is stored and an error
// wrapping domain.ErrStorage when the backend itself failed, so callers can
// tell "signed out" apart from "store unavailable".
type CredentialStore interface {
	SaveToken(ctx context.Context, token string) error
	GetToken(ctx context.Context) (string, error)
	RemoveToken(ctx context.Context) error

	SaveUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context) (*domain.User, error)
	RemoveUser(ctx context.Context) error

	// ClearAll removes token and user in a single batch.
	ClearAll(ctx context.Context) error
}
