// Command taskapi-dev runs the task service locally: the API the client
// talks to during development and end-to-end testing.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/agadir/task-manager/internal/api"
	"github.com/agadir/task-manager/internal/api/handler"
	"github.com/agadir/task-manager/internal/devserver"
	"github.com/agadir/task-manager/internal/infrastructure/config"
	"github.com/agadir/task-manager/internal/infrastructure/db/mongo"
	"github.com/agadir/task-manager/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "taskapi-dev"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	repo, closeRepo, err := openRepository(ctx, cfg.DevServer, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	router := api.NewRouter(api.Deps{
		Auth:   devserver.NewAuthService(repo, cfg.DevServer.JWTSecret, cfg.DevServer.JWTTTL),
		Tasks:  devserver.NewTaskService(repo),
		Logger: log,
		Ready:  map[string]handler.Pinger{"repository": repo},
	})

	addr := ":" + cfg.DevServer.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return router.Shutdown(shutdownCtx)
}

// openRepository uses MongoDB when MONGO_URI is set and an in-memory
// repository otherwise.
func openRepository(ctx context.Context, cfg config.DevServerConfig, log zerolog.Logger) (devserver.Repository, func(), error) {
	if cfg.Mongo.URI == "" {
		log.Warn().Msg("MONGO_URI not set, data is kept in memory")
		return devserver.NewMemoryRepository(), func() {}, nil
	}

	repo, disconnect, err := mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, nil, err
	}
	closeRepo := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
	return repo, closeRepo, nil
}
