package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/diagterm/internal/connection"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/permission"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/spf13/cobra"
)

// StatusOutput is the --json form of a connection state.
type StatusOutput struct {
	connection.State
	StateFile string `json:"state_file"`
}

type connectOptions struct {
	URL         string
	Permissions string
	Acknowledge bool
}

func newConnectCmd(a *app) *cobra.Command {
	var opts connectOptions
	cmd := &cobra.Command{
		Use:   "connect [url]",
		Short: "Connect to a backend and remember it",
		Long: `Probe a backend and, if it answers, save it with the permissions you grant.

The URL defaults to backend_url from the config file. Later commands and the
dashboard reconnect to the saved backend automatically.

Execute permission lets diagterm run shell commands on the backend host, so
it also needs --acknowledge.

Examples:
  diagterm connect
  diagterm connect http://10.0.0.5:8765
  diagterm connect --permissions readonly,execute --acknowledge`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.URL = args[0]
			}
			_, err := connectCommand(cmd.Context(), a, cmd.OutOrStdout(), opts)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Permissions, "permissions", "readonly", "permissions to grant (readonly, execute)")
	cmd.Flags().BoolVar(&opts.Acknowledge, "acknowledge", false, "acknowledge the risk of high-risk permissions")
	return cmd
}

func newDisconnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the saved backend and all grants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return disconnectCommand(a, cmd.OutOrStdout())
		},
	}
}

// connectCommand probes the backend and persists it on success.
func connectCommand(ctx context.Context, a *app, out io.Writer, opts connectOptions) (connection.State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	perms, err := ParsePermissions(opts.Permissions)
	if err != nil {
		return connection.State{}, err
	}
	if err := requireAcknowledgment(perms, opts.Acknowledge); err != nil {
		return connection.State{}, err
	}

	sess := a.newSession(false)
	defer sess.Close()

	url := opts.URL
	if url == "" {
		url = a.cfg.BackendURL
	}

	var spin *ui.Spinner
	if !MachineMode() {
		spin = ui.NewSpinner(os.Stderr, "Connecting to "+url, isTerminal(os.Stderr))
		spin.Start()
	}

	state, err := sess.Connect(ctx, url, perms)
	if err != nil {
		if spin != nil {
			spin.Fail(err.Error())
		}
		return state, backendError(state.BackendURL, err)
	}
	a.log.Info("connected to %s (granted %s)", state.BackendURL, state.Granted)

	if spin != nil {
		spin.Success("backend " + state.Capabilities.Version)
	}
	return state, writeState(out, a, state)
}

// requireAcknowledgment rejects high-risk levels granted without --acknowledge.
func requireAcknowledgment(perms permission.Set, ack bool) error {
	for _, l := range perms.Levels() {
		d, _ := permission.Describe(l)
		if d.RequiresAcknowledgment() && !ack {
			return dterrors.New(dterrors.ErrPermission,
				fmt.Sprintf("%s needs an explicit acknowledgment", d.Name),
				d.Warning+" Pass --acknowledge if you accept this.")
		}
	}
	return nil
}

func disconnectCommand(a *app, out io.Writer) error {
	sess := a.newSession(false)
	defer sess.Close()

	if err := sess.Disconnect(); err != nil {
		return dterrors.WrapWithCode(err, dterrors.ErrStorage,
			"Could not clear the saved connection",
			"Remove "+a.store.Path()+" by hand")
	}
	a.log.Info("disconnected")

	if MachineMode() {
		return WriteJSONSuccess(out, StatusOutput{State: sess.State(), StateFile: a.store.Path()})
	}
	ui.PrintSuccess("Disconnected; saved backend and grants cleared")
	return nil
}

// writeState prints a connection state as key/value lines or JSON.
func writeState(out io.Writer, a *app, state connection.State) error {
	if MachineMode() {
		return WriteJSONSuccess(out, StatusOutput{State: state, StateFile: a.store.Path()})
	}

	status := state.Status.String()
	switch state.Status {
	case connection.Connected:
		status = ui.SuccessStyle().Render(ui.SymbolComplete + " " + status)
	case connection.Error:
		status = ui.ErrorStyle().Render(ui.SymbolFail + " " + status)
	default:
		status = ui.MutedStyle().Render(ui.SymbolPending + " " + status)
	}

	pairs := []ui.KeyValue{
		{Key: "Backend", Value: state.BackendURL},
		{Key: "Status", Value: status},
	}
	if caps := state.Capabilities; caps != nil {
		pairs = append(pairs,
			ui.KeyValue{Key: "Version", Value: caps.Version},
			ui.KeyValue{Key: "Runner", Value: enabled(caps.RunnerEnabled)},
			ui.KeyValue{Key: "Services", Value: enabled(caps.ServicesEnabled)},
			ui.KeyValue{Key: "Diagnostics", Value: enabled(caps.DiagnosticsEnabled)},
		)
	}
	pairs = append(pairs, ui.KeyValue{Key: "Granted", Value: state.Granted.String()})
	if state.Err != "" {
		pairs = append(pairs, ui.KeyValue{Key: "Error", Value: ui.ErrorStyle().Render(state.Err)})
	}

	_, err := fmt.Fprint(out, ui.RenderKeyValues(pairs))
	return err
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
