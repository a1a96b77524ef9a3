package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/connection"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/format"
	"github.com/rileyhilliard/diagterm/internal/monitor"
	"github.com/rileyhilliard/diagterm/internal/poll"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/rileyhilliard/diagterm/internal/util"
	"github.com/spf13/cobra"
)

type snapshotOptions struct {
	Lines int
	Wait  string
}

// snapshotOutput is the --json form of one poll cycle.
type snapshotOutput struct {
	Backend      string                 `json:"backend"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Summary      *backend.SystemSummary `json:"summary"`
	Processes    []backend.ProcRow      `json:"processes"`
	HighActivity []backend.ProcRow      `json:"high_activity"`
	Services     []backend.ServiceRow   `json:"services"`
	Diagnostics  []string               `json:"diagnostics"`
	Errors       map[string]string      `json:"errors,omitempty"`
}

func newSnapshotCmd(a *app) *cobra.Command {
	var opts snapshotOptions
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print one round of metrics and exit",
		Long: `Fetch summary, processes, services and diagnostics once and print them.

This is the dashboard without the terminal UI, for scripts and pipes. Needs the
readonly permission.

Examples:
  diagterm snapshot
  diagterm snapshot --lines 30
  diagterm snapshot --json | jq .data.summary.cpu_percent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return snapshotCommand(cmd.Context(), a, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 10, "diagnostic lines to show")
	cmd.Flags().StringVar(&opts.Wait, "wait", "", "how long to wait for the backend (default 2x probe_timeout)")
	return cmd
}

func snapshotCommand(ctx context.Context, a *app, out io.Writer, opts snapshotOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	wait, err := ParseDuration("wait", opts.Wait)
	if err != nil {
		return err
	}
	if wait == 0 {
		wait = 2 * a.cfg.ProbeTimeout
	}

	sess := a.newSession(true)
	defer sess.Close()

	// Subscribe first: polling starts inside Restore.
	snaps := make(chan poll.Snapshot, 1)
	sess.OnSnapshot(func(s poll.Snapshot) {
		select {
		case snaps <- s:
		default:
		}
	})

	state, err := a.restore(ctx, sess)
	if err != nil {
		return err
	}
	if !connection.CanPoll(state) {
		return dterrors.New(dterrors.ErrPermission,
			"Read-only access has not been granted",
			"Run 'diagterm grant readonly' first")
	}

	var snap poll.Snapshot
	select {
	case snap = <-snaps:
	case <-time.After(wait):
		return dterrors.New(dterrors.ErrBackend,
			fmt.Sprintf("No data from %s after %s", state.BackendURL, wait),
			"Check the backend is healthy, or raise --wait")
	case <-ctx.Done():
		return ctx.Err()
	}
	sess.Close()

	if MachineMode() {
		return WriteJSONSuccess(out, newSnapshotOutput(state.BackendURL, snap))
	}
	return writeSnapshot(out, a, snap, opts.Lines)
}

func newSnapshotOutput(url string, snap poll.Snapshot) snapshotOutput {
	o := snapshotOutput{
		Backend:      url,
		UpdatedAt:    snap.UpdatedAt,
		Summary:      snap.Summary,
		Processes:    snap.Processes,
		HighActivity: poll.HighActivity(snap.Processes),
		Services:     snap.Services,
		Diagnostics:  snap.Diagnostics,
	}
	if len(snap.Errors) > 0 {
		o.Errors = make(map[string]string, len(snap.Errors))
		for k, msg := range snap.Errors {
			o.Errors[k.String()] = msg
		}
	}
	return o
}

func writeSnapshot(out io.Writer, a *app, snap poll.Snapshot, lines int) error {
	var b strings.Builder
	heading := func(title string, k poll.Kind) {
		b.WriteString("\n" + ui.InfoStyle().Render(title))
		if msg, ok := snap.Errors[k]; ok {
			b.WriteString(" " + ui.ErrorStyle().Render(ui.SymbolFail+" "+msg))
		}
		b.WriteString("\n")
	}

	th := a.cfg.Monitor.Thresholds
	if s := snap.Summary; s != nil {
		b.WriteString(ui.RenderKeyValues([]ui.KeyValue{
			{Key: "Host", Value: s.Hostname + " (" + s.Platform + " " + s.Kernel + ")"},
			{Key: "Uptime", Value: format.Uptime(s.UptimeS)},
			{Key: "Load", Value: format.LoadAvg(s.LoadAvg)},
			{Key: "CPU", Value: ui.RenderGauge(s.CPUPercent, 20, uiThresholds(th.CPU))},
			{Key: "RAM", Value: ui.RenderGauge(s.MemPercent(), 20, uiThresholds(th.RAM)) +
				"  " + format.Bytes(s.MemUsed) + " / " + format.Bytes(s.MemTotal)},
			{Key: "Swap", Value: format.Bytes(s.SwapUsed) + " / " + format.Bytes(s.SwapTotal)},
			{Key: "Disk", Value: ui.RenderGauge(s.DiskPercent(), 20, uiThresholds(th.Disk)) +
				"  " + format.Bytes(s.DiskFree) + " free"},
			{Key: "Network", Value: format.Bytes(s.NetRecv) + " recv, " + format.Bytes(s.NetSent) + " sent"},
			{Key: "Power", Value: format.Power(s.PackagePowerW)},
		}))
	} else if msg, ok := snap.Errors[poll.KindSummary]; ok {
		b.WriteString(ui.ErrorStyle().Render(ui.SymbolFail+" summary: "+msg) + "\n")
	}

	heading("Processes", poll.KindProcesses)
	if t := ui.RenderSimpleTable(monitor.ProcessColumns, monitor.ProcessRows(snap.Processes, 0)); t != "" {
		b.WriteString(t + "\n")
	}

	if hot := poll.HighActivity(snap.Processes); len(hot) > 0 {
		heading(fmt.Sprintf("High activity (CPU >= %.0f%%)", poll.HighActivityCPU), -1)
		for _, p := range hot {
			fmt.Fprintf(&b, "  %5.1f%%  %s (%d)\n", p.CPU, p.Name, p.PID)
		}
	}

	heading("Services", poll.KindServices)
	if t := ui.RenderSimpleTable(monitor.ServiceColumns, monitor.ServiceRows(snap.Services, 0)); t != "" {
		b.WriteString(t + "\n")
	}

	heading("Diagnostics", poll.KindDiagnostics)
	diag := util.Tail(snap.Diagnostics, lines)
	if hidden := len(snap.Diagnostics) - len(diag); hidden > 0 {
		b.WriteString(ui.MutedStyle().Render("  ... "+util.CountNoun(hidden, "earlier line", "earlier lines")+" (--lines)") + "\n")
	}
	for _, l := range diag {
		b.WriteString("  " + l + "\n")
	}

	_, err := fmt.Fprint(out, b.String())
	return err
}
