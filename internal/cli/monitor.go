package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/diagterm/internal/config"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/monitor"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/spf13/cobra"
)

type monitorOptions struct {
	Interval time.Duration
}

func newMonitorCmd(a *app) *cobra.Command {
	var intervalFlag string
	cmd := &cobra.Command{
		Use:     "monitor",
		Aliases: []string{"dash"},
		Short:   "Live dashboard for the connected backend",
		Long: `Open the interactive dashboard. This is also what plain 'diagterm' does.

The dashboard reconnects to the saved backend, asks for any consent it still
needs and refreshes every panel on an interval.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Refresh now
  c           Connect to a backend
  d           Disconnect
  p           Request read-only access
  x           Run a command (needs execute, asks before sending)
  Ctrl+L      Clear the command log
  ?           Show help

Examples:
  diagterm monitor
  diagterm monitor --interval 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := parseInterval(intervalFlag)
			if err != nil {
				return err
			}
			return monitorCommand(cmd, a, monitorOptions{Interval: interval})
		},
	}
	cmd.Flags().StringVar(&intervalFlag, "interval", "", "refresh interval (default refresh_interval, min 500ms)")
	return cmd
}

func parseInterval(flag string) (time.Duration, error) {
	d, err := ParseDuration("interval", flag)
	if err != nil {
		return 0, err
	}
	if d != 0 && d < config.MinRefreshInterval {
		return 0, dterrors.New(dterrors.ErrUsage,
			"Interval too short",
			fmt.Sprintf("Minimum interval is %s to avoid hammering the backend", config.MinRefreshInterval))
	}
	return d, nil
}

// monitorCommand runs the dashboard until the user quits.
func monitorCommand(cmd *cobra.Command, a *app, opts monitorOptions) error {
	if MachineMode() || !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return dterrors.New(dterrors.ErrUsage,
			"The dashboard needs an interactive terminal",
			"Use 'diagterm snapshot' for one-shot output")
	}

	if opts.Interval > 0 {
		cfg := *a.cfg
		cfg.RefreshInterval = opts.Interval
		a.cfg = &cfg
	}

	sess := a.newSession(true)
	defer sess.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// A failed restore leaves the session in Error; the dashboard shows it.
	if _, err := sess.Restore(ctx); err != nil {
		a.log.Warn("restore: %v", err)
	}

	model := monitor.NewModel(sess, monitor.Options{
		Thresholds: dashboardThresholds(a.cfg.Monitor.Thresholds),
		RunTimeout: a.cfg.RunTimeout,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func dashboardThresholds(t config.ThresholdConfig) monitor.Thresholds {
	return monitor.Thresholds{
		CPU:  uiThresholds(t.CPU),
		RAM:  uiThresholds(t.RAM),
		Disk: uiThresholds(t.Disk),
	}
}

func uiThresholds(v config.ThresholdValues) ui.Thresholds {
	return ui.Thresholds{Warning: float64(v.Warning), Critical: float64(v.Critical)}
}
