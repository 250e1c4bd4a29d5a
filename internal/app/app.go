// Package app assembles the client core: credential store, HTTP client,
// remote façade and the two managers. Consumers build one App per process.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/core/service"
	"github.com/agadir/task-manager/internal/infrastructure/config"
	"github.com/agadir/task-manager/internal/infrastructure/httpclient"
	"github.com/agadir/task-manager/internal/infrastructure/remote"
	"github.com/agadir/task-manager/internal/infrastructure/store"
)

type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Store    *store.CredentialStore
	API      *remote.API
	Sessions *service.SessionManager
	Tasks    *service.TaskManager
}

// New opens the configured credential store and wires the managers. The
// task collection is reset whenever the signed-in user changes.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...httpclient.Option) (*App, error) {
	creds, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return Assemble(cfg, log, creds, opts...), nil
}

// Assemble wires an App around an already opened store.
func Assemble(cfg *config.Config, log zerolog.Logger, creds *store.CredentialStore, opts ...httpclient.Option) *App {
	a := &App{Config: cfg, Log: log, Store: creds}

	if cfg.API.LogoutOn401 {
		// Sessions is assigned below; the hook only fires on a later request.
		opts = append(opts, httpclient.WithUnauthorizedHandler(func(ctx context.Context) {
			a.Sessions.HandleUnauthorized(ctx)
		}))
	}

	client := httpclient.New(cfg.API, creds, log, opts...)
	a.API = remote.New(client)
	a.Sessions = service.NewSessionManager(creds, a.API, log)
	a.Tasks = service.NewTaskManager(a.API, log)
	a.Sessions.Subscribe(a.Tasks.OnSessionChange)
	return a
}

// Start restores the persisted session, the launch-time check of the client.
func (a *App) Start(ctx context.Context) domain.Session {
	return a.Sessions.CheckAuth(ctx)
}

func (a *App) Close() error {
	return a.Store.Close()
}
