package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/diagterm/internal/backend"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/permission"
	"github.com/rileyhilliard/diagterm/internal/session"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/rileyhilliard/diagterm/internal/util"
	"github.com/spf13/cobra"
)

type runOptions struct {
	Command string
	Timeout string
	Yes     bool
}

// Replaced in tests.
var confirmRun = huhConfirmRun

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <command>",
		Short: "Run a shell command on the backend host",
		Long: `Run a shell command on the backend host and print its output.

Needs the execute permission ('diagterm grant execute'). diagterm exits with
the command's return code. On a terminal the command is shown for
confirmation first; --yes skips that.

Examples:
  diagterm run uptime
  diagterm run -- df -h /
  diagterm run "ps aux | grep nginx"
  diagterm run --timeout 10s "journalctl -n 50"
  diagterm run --yes uptime`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = util.JoinCommand(args)
			code, err := runCommand(cmd.Context(), a, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
			if err != nil {
				return err
			}
			if code != 0 {
				return dterrors.NewExitError(code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Timeout, "timeout", "", "time the backend allows the command (default run_timeout)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "run without asking for confirmation")
	return cmd
}

// runCommand executes opts.Command remotely and returns its return code.
func runCommand(ctx context.Context, a *app, stdout, stderr io.Writer, opts runOptions) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout, err := ParseDuration("timeout", opts.Timeout)
	if err != nil {
		return 1, err
	}

	sess := a.newSession(false)
	defer sess.Close()

	state, err := a.restore(ctx, sess)
	if err != nil {
		return 1, err
	}

	// Without execute, Run only raises the request; there is nothing to confirm.
	if state.Has(permission.Execute) && strings.TrimSpace(opts.Command) != "" &&
		!opts.Yes && !MachineMode() && stdinIsTerminal() {
		ok, err := confirmRun(opts.Command, state.BackendURL)
		if err != nil {
			return 1, dterrors.WrapWithCode(err, dterrors.ErrUsage,
				"Confirmation prompt failed", "Run again, or pass --yes")
		}
		if !ok {
			ui.PrintWarning("Cancelled, nothing was sent")
			return 1, nil
		}
	}

	res, req, err := sess.Run(ctx, opts.Command, timeout)
	if errors.Is(err, session.ErrEmptyCommand) {
		return 1, dterrors.WrapWithCode(err, dterrors.ErrUsage, "Nothing to run", "Pass a command, e.g. 'diagterm run uptime'")
	}
	if err != nil {
		return 1, dterrors.WrapWithCode(err, dterrors.ErrExec,
			"Backend refused to run the command", runSuggestion(err, state.BackendURL))
	}
	if req != nil {
		// No prompt here; leave the request for 'grant'.
		sess.Deny()
		return 1, dterrors.New(dterrors.ErrPermission,
			req.Name+" has not been granted",
			"Run 'diagterm grant execute' first")
	}

	a.log.Info("ran %q on %s: exit %d", res.Cmd, state.BackendURL, res.ReturnCode)

	if MachineMode() {
		return res.ReturnCode, WriteJSONSuccess(stdout, res)
	}
	if res.Stdout != "" {
		fmt.Fprint(stdout, ensureNewline(res.Stdout))
	}
	if res.Stderr != "" {
		fmt.Fprint(stderr, ensureNewline(res.Stderr))
	}
	return res.ReturnCode, nil
}

func runSuggestion(err error, url string) string {
	if backend.IsStatus(err, http.StatusForbidden) {
		return "Enable the runner on the backend at " + url
	}
	return "Check the backend log at " + url
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// huhConfirmRun shows the command and asks before it is sent.
func huhConfirmRun(command, url string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewNote().
			Title("Run on "+url).
			Description(command),
		huh.NewConfirm().
			Title("Run this command?").
			Affirmative("Run").
			Negative("Cancel").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}
