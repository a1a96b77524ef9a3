package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rileyhilliard/diagterm/internal/connection"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved backend and whether it answers",
		Long: `Show the saved backend, its capabilities and the permissions you granted.

The saved backend is probed unless --offline is given.

Examples:
  diagterm status
  diagterm status --json
  diagterm status --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusCommand(cmd.Context(), a, cmd.OutOrStdout(), offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "show the saved record without probing the backend")
	return cmd
}

// statusCommand reports the connection. An unreachable backend is a status,
// not a failure.
func statusCommand(ctx context.Context, a *app, out io.Writer, offline bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	rec, err := a.store.Load()
	if errors.Is(err, connection.ErrMalformed) {
		a.log.Warn("ignoring saved connection: %v", err)
		rec, err = nil, nil
	}
	if err != nil {
		return dterrors.WrapWithCode(err, dterrors.ErrStorage,
			"Cannot read the saved connection",
			"Check permissions on "+a.store.Path())
	}

	if rec == nil {
		state := connection.State{Status: connection.Disconnected, BackendURL: a.cfg.BackendURL}
		if err := writeState(out, a, state); err != nil {
			return err
		}
		if !MachineMode() {
			fmt.Fprintln(out, ui.MutedStyle().Render("No saved backend. Run 'diagterm connect' to add one."))
		}
		return nil
	}

	if offline {
		state := connection.State{
			Status:     connection.Disconnected,
			BackendURL: rec.BackendURL,
			Granted:    rec.Permissions,
		}
		return writeState(out, a, state)
	}

	sess := a.newSession(false)
	defer sess.Close()

	state, err := sess.Restore(ctx)
	if err != nil {
		a.log.Warn("status probe of %s failed: %v", rec.BackendURL, err)
	}
	return writeState(out, a, state)
}
