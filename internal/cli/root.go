package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/config"
	"github.com/rileyhilliard/diagterm/internal/connection"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/logger"
	"github.com/rileyhilliard/diagterm/internal/poll"
	"github.com/rileyhilliard/diagterm/internal/session"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// logFileName is created in the state dir unless log.file says otherwise.
const logFileName = "diagterm.log"

// app is what PersistentPreRunE resolves for every command.
type app struct {
	cfgFile string
	noColor bool

	cfg     *config.Config
	cfgPath string
	log     logger.Logger
	store   *connection.FileStore
}

var rootCmd = newRootCmd()

// newRootCmd builds the full command tree with fresh flag state.
func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "diagterm",
		Short: "Terminal dashboard for a local system-monitoring backend",
		Long: `diagterm connects to a monitoring backend over HTTP, asks for your consent
before using any capability, and keeps a live view of the host fresh.

Running diagterm without a subcommand opens the dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitorCommand(cmd, a, monitorOptions{})
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ~/.config/diagterm/config.yaml)")
	root.PersistentFlags().BoolVar(&machineMode, "json", false, "machine-readable JSON output")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newMonitorCmd(a),
		newConnectCmd(a),
		newDisconnectCmd(a),
		newStatusCmd(a),
		newGrantCmd(a),
		newRunCmd(a),
		newSnapshotCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
		newCompletionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// The remote command's output has already been printed.
		if code, ok := dterrors.GetExitCode(err); ok {
			os.Exit(code)
		}
		if isUnknownCommandError(err) {
			err = unknownCommandError(err)
		}
		if MachineMode() {
			_ = WriteJSONFromError(os.Stdout, err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// setup loads config, applies the color mode and opens the log file.
func (a *app) setup() error {
	cfg, path, err := config.LoadOrDefault(a.cfgFile)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	a.cfgPath = path

	mode := cfg.Output.Color
	if a.noColor || MachineMode() {
		mode = "never"
	}
	ui.ApplyColorMode(mode, isTerminal(os.Stdout))

	store, err := connection.NewFileStore(cfg.StateDir)
	if err != nil {
		return dterrors.WrapWithCode(err, dterrors.ErrStorage,
			"Cannot locate the state directory",
			"Set state_dir in the config file or $XDG_STATE_HOME")
	}
	a.store = store

	a.log = a.openLog()
	logger.SetDefault(a.log)
	a.log.Debug("config=%q state=%q", path, store.Path())
	return nil
}

// openLog returns the file logger, or a no-op logger if the file cannot be opened.
func (a *app) openLog() logger.Logger {
	path := a.cfg.Log.File
	if path == "" {
		path = filepath.Join(filepath.Dir(a.store.Path()), logFileName)
	}
	log, err := logger.NewFileLogger(logger.FileOptions{
		Path:       path,
		Level:      a.cfg.Log.Level,
		MaxSizeMB:  a.cfg.Log.MaxSizeMB,
		MaxBackups: a.cfg.Log.MaxBackups,
	}, "cli")
	if err != nil {
		return logger.Noop()
	}
	return log
}

// newSession wires a session to the persisted store and configured limits.
// Only commands that show metrics ask for polling.
func (a *app) newSession(polling bool) *session.Session {
	cfg := a.cfg
	log := a.log
	return session.New(session.Options{
		Store: a.store,
		ClientFactory: func(url string) backend.API {
			return backend.New(url,
				backend.WithProbeTimeout(cfg.ProbeTimeout),
				backend.WithLogger(log))
		},
		DefaultURL: cfg.BackendURL,
		Poll: poll.Config{
			Interval:         cfg.RefreshInterval,
			ProcessLimit:     cfg.Limits.Processes,
			ServiceLimit:     cfg.Limits.Services,
			DiagnosticsLimit: cfg.Limits.Diagnostics,
			HistorySize:      cfg.Monitor.HistorySize,
		},
		RunTimeout: cfg.RunTimeout,
		Logger:     log,
		NoPolling:  !polling,
	})
}

// restore reconnects to the persisted backend and fails when there is none
// or it is unreachable.
func (a *app) restore(ctx context.Context, sess *session.Session) (connection.State, error) {
	rec, err := a.store.Load()
	if err != nil && !errors.Is(err, connection.ErrMalformed) {
		return connection.State{}, dterrors.WrapWithCode(err, dterrors.ErrStorage,
			"Cannot read the saved connection",
			"Check permissions on "+a.store.Path())
	}
	if rec == nil {
		return connection.State{}, errNotConnected()
	}

	state, err := sess.Restore(ctx)
	if err != nil {
		return state, backendError(state.BackendURL, err)
	}
	return state, nil
}

func errNotConnected() error {
	return dterrors.WrapWithCode(session.ErrNotConnected, dterrors.ErrBackend,
		"Not connected to a backend",
		"Run 'diagterm connect [url]' first")
}

// backendError wraps a failed probe with a suggestion for the common cases.
func backendError(url string, err error) error {
	suggestion := "Check the backend is running and reachable at " + url
	if backend.IsStatus(err, http.StatusNotFound) {
		suggestion = "The URL answers but is not a diagterm backend; check the port"
	}
	return dterrors.WrapWithCode(err, dterrors.ErrBackend,
		"Could not reach the backend at "+url, suggestion)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// isUnknownCommandError reports whether err is cobra's unknown command or flag error.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of
// `unknown command "foo" for "diagterm"`, or returns "".
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func unknownCommandError(err error) error {
	name := extractUnknownCommand(err)
	if name == "" {
		return dterrors.New(dterrors.ErrUsage, err.Error(), "Run 'diagterm --help' for usage")
	}
	return dterrors.New(dterrors.ErrUsage,
		fmt.Sprintf("Unknown command '%s'", name),
		"Run 'diagterm --help' to see available commands")
}
