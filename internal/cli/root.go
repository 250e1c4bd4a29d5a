// Package cli is the taskctl command line: a thin consumer of the session
// and task managers.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agadir/task-manager/internal/app"
	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/infrastructure/config"
	"github.com/agadir/task-manager/pkg/logger"
)

// Opener builds the App a command runs against.
type Opener func(ctx context.Context) (*app.App, error)

type runtime struct {
	open   Opener
	app    *app.App
	format string
}

// Execute runs taskctl against the environment configuration.
func Execute(version string) error {
	root, closeApp := NewRootCmd(openFromEnv)
	root.Version = version
	err := root.ExecuteContext(context.Background())
	if closeErr := closeApp(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "taskctl"})
	return app.New(ctx, cfg, log)
}

// NewRootCmd builds the command tree. The returned closer releases the App
// once the command has finished.
func NewRootCmd(open Opener) (*cobra.Command, func() error) {
	rt := &runtime{open: open}

	root := &cobra.Command{
		Use:   "taskctl",
		Short: "Manage your tasks from the terminal",
		Long: `taskctl signs in to the task service and manages your tasks.

The session is kept in the configured credential store (STORE_BACKEND), so
you stay signed in between runs until you log out or the token is rejected.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rt.start,
	}
	root.PersistentFlags().StringVarP(&rt.format, "output", "o", formatText, "Output format: text or yaml")

	root.AddCommand(
		newRegisterCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newTasksCmd(rt),
		newStatsCmd(rt),
	)
	return root, rt.close
}

// start opens the App and restores the persisted session.
func (rt *runtime) start(cmd *cobra.Command, _ []string) error {
	if rt.format != formatText && rt.format != formatYAML {
		return fmt.Errorf("unknown output format %q (want text or yaml)", rt.format)
	}
	a, err := rt.open(cmd.Context())
	if err != nil {
		return err
	}
	rt.app = a
	a.Start(cmd.Context())
	return nil
}

func (rt *runtime) close() error {
	if rt.app == nil {
		return nil
	}
	return rt.app.Close()
}

func (rt *runtime) printer(cmd *cobra.Command) printer {
	return newPrinter(cmd.OutOrStdout(), rt.format)
}

var errSignedOut = fmt.Errorf("%w: run 'taskctl login' first", domain.ErrNotAuthenticated)

func (rt *runtime) requireSession() error {
	if !rt.app.Sessions.Session().IsAuthenticated {
		return errSignedOut
	}
	return nil
}

// readSecret returns flagValue, or the first line of in when the flag was
// left empty.
func readSecret(in io.Reader, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := readLine(in)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no password given (use --password or pipe it on stdin)")
		}
		return "", err
	}
	return line, nil
}
