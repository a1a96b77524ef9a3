package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/connection"
	"github.com/rileyhilliard/diagterm/internal/format"
	"github.com/rileyhilliard/diagterm/internal/permission"
	"github.com/rileyhilliard/diagterm/internal/poll"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/rileyhilliard/diagterm/internal/util"
)

const defaultWidth = 100

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.Overlay() {
	case OverlayHelp:
		b.WriteString(m.renderHelpOverlay())
	case OverlayConsent:
		b.WriteString(m.renderConsentModal())
	case OverlayConnect:
		b.WriteString(m.renderConnectModal())
	case OverlayRunner:
		b.WriteString(m.renderRunnerModal())
	case OverlayConfirm:
		b.WriteString(m.renderConfirmModal())
	default:
		b.WriteString(m.renderBody())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title bar with connection status.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("diagterm")

	parts := []string{m.renderStatus()}
	if m.state.BackendURL != "" {
		parts = append(parts, m.state.BackendURL)
	}
	if caps := m.state.Capabilities; caps != nil {
		parts = append(parts, "backend "+caps.Version)
	}
	parts = append(parts, "granted "+m.state.Granted.String())
	if m.sess.Polling() {
		parts = append(parts, "updated "+m.updateAge())
	}

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(" | " + strings.Join(parts, " | "))

	return HeaderStyle.Render(title + stats)
}

func (m Model) renderStatus() string {
	var glyph string
	switch m.state.Status {
	case connection.Connected:
		glyph = StatusGlyphConnected
	case connection.Connecting:
		glyph = m.spinner.View()
	case connection.Error:
		glyph = StatusGlyphError
	default:
		glyph = StatusGlyphDisconnected
	}
	return statusStyle(m.state.Status).Render(glyph + " " + m.state.Status.String())
}

func (m Model) updateAge() string {
	switch s := m.SecondsSinceUpdate(); s {
	case 0:
		return "just now"
	case 1:
		return "1s ago"
	default:
		return fmt.Sprintf("%ds ago", s)
	}
}

// renderFooter renders the key hints and the latest notice.
func (m Model) renderFooter() string {
	var hints []string
	switch m.Overlay() {
	case OverlayConsent:
		hints = []string{"space acknowledge", "enter/y grant", "esc/n deny"}
	case OverlayConnect:
		hints = []string{"enter submit", "esc close"}
	case OverlayRunner:
		hints = []string{"enter run", "ctrl+l clear log", "esc close"}
	case OverlayConfirm:
		hints = []string{"enter/y run", "esc/n cancel"}
	case OverlayHelp:
		hints = []string{"? close"}
	default:
		hints = []string{"q quit", "r refresh", "c connect", "d disconnect", "p read-only", "x run", "? help"}
	}

	footer := FooterStyle.Render(strings.Join(hints, " | "))
	if m.notice != "" {
		footer += "\n" + FooterStyle.Render(WarningTextStyle.Render(m.notice))
	}
	return footer
}

// renderBody renders the data panels, or a placeholder when not polling.
func (m Model) renderBody() string {
	if !connection.CanPoll(m.state) {
		return m.renderIdle()
	}

	summary := m.renderSummaryPanel()
	procs := m.renderProcessesPanel()
	active := m.renderHighActivityPanel()
	services := m.renderServicesPanel()
	diag := m.renderDiagnosticsPanel()

	if m.LayoutMode() == LayoutWide {
		left := lipgloss.JoinVertical(lipgloss.Left, summary, active)
		right := lipgloss.JoinVertical(lipgloss.Left, procs, services)
		top := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
		return lipgloss.JoinVertical(lipgloss.Left, top, diag)
	}
	return lipgloss.JoinVertical(lipgloss.Left, summary, active, procs, services, diag)
}

func (m Model) renderIdle() string {
	var msg string
	switch m.state.Status {
	case connection.Connected:
		msg = "Read-only access has not been granted. Press p to review and grant it."
	case connection.Connecting:
		msg = m.spinner.View() + " Connecting to " + m.state.BackendURL
	case connection.Error:
		msg = ErrorTextStyle.Render("Connection failed: "+m.state.Err) + "\n" + LabelStyle.Render("Press c to retry.")
	default:
		msg = "Not connected. Press c to connect to a backend."
	}
	return m.place(PanelStyle.Render(msg))
}

// panelWidth is the outer width of one panel for the current layout.
func (m Model) panelWidth() int {
	w := m.width
	if w == 0 {
		w = defaultWidth
	}
	if m.LayoutMode() == LayoutWide {
		return w/2 - 1
	}
	return w - 1
}

// panel draws a titled box of the standard width.
func (m Model) panel(title string, kind poll.Kind, body string) string {
	head := PanelTitleStyle.Render(title)
	if msg, ok := m.snap.Errors[kind]; ok {
		head += " " + ErrorTextStyle.Render(ui.SymbolFail+" "+msg)
	}
	return PanelStyle.Width(m.panelWidth() - 2).Render(head + "\n" + body)
}

func (m Model) renderSummaryPanel() string {
	s := m.snap.Summary
	if s == nil {
		return m.panel("System", poll.KindSummary, MutedStyle.Render("waiting for data..."))
	}

	inner := m.panelWidth() - 6
	gaugeWidth := inner / 3
	if gaugeWidth < 10 {
		gaugeWidth = 10
	}
	sparkWidth := inner - gaugeWidth - 14
	history := m.sess.History()

	line := func(label, gauge, spark string) string {
		out := LabelStyle.Render(fmt.Sprintf("%-5s", label)) + " " + gauge
		if spark != "" && m.LayoutMode() != LayoutMinimal && sparkWidth > 4 {
			out += "  " + spark
		}
		return out
	}

	var rows []string
	rows = append(rows, ValueStyle.Render(s.Hostname)+" "+MutedStyle.Render(s.Platform+" "+s.Kernel))
	rows = append(rows, LabelStyle.Render("up ")+ValueStyle.Render(format.Uptime(s.UptimeS))+
		LabelStyle.Render("  load ")+ValueStyle.Render(format.LoadAvg(s.LoadAvg))+
		LabelStyle.Render("  power ")+ValueStyle.Render(format.Power(s.PackagePowerW)))

	rows = append(rows, line("CPU",
		ui.RenderGauge(s.CPUPercent, gaugeWidth, m.opts.Thresholds.CPU),
		ui.RenderSparkline(history.CPU(sparkWidth), sparkWidth, m.opts.Thresholds.CPU)))
	rows = append(rows, line("RAM",
		ui.RenderGauge(s.MemPercent(), gaugeWidth, m.opts.Thresholds.RAM),
		ui.RenderSparkline(history.RAM(sparkWidth), sparkWidth, m.opts.Thresholds.RAM)))
	rows = append(rows, line("Disk",
		ui.RenderGauge(s.DiskPercent(), gaugeWidth, m.opts.Thresholds.Disk), ""))

	rows = append(rows, LabelStyle.Render("mem ")+ValueStyle.Render(format.Bytes(s.MemUsed)+" / "+format.Bytes(s.MemTotal))+
		LabelStyle.Render("  swap ")+ValueStyle.Render(format.Bytes(s.SwapUsed)+" / "+format.Bytes(s.SwapTotal))+
		LabelStyle.Render("  disk free ")+ValueStyle.Render(format.Bytes(s.DiskFree)))

	rx, tx := history.NetworkRate()
	rows = append(rows, LabelStyle.Render("net ")+
		ValueStyle.Render("↓ "+format.Rate(rx)+"  ↑ "+format.Rate(tx))+
		MutedStyle.Render(fmt.Sprintf("  (%s recv, %s sent)", format.Bytes(s.NetRecv), format.Bytes(s.NetSent))))
	if m.LayoutMode() != LayoutMinimal && sparkWidth > 4 {
		rxSeries, _ := history.Network(sparkWidth)
		if spark := ui.RenderSparklineColor(rxSeries, sparkWidth, ColorGraph); spark != "" {
			rows = append(rows, LabelStyle.Render(fmt.Sprintf("%-5s", "rx"))+" "+spark)
		}
	}

	return m.panel("System", poll.KindSummary, strings.Join(rows, "\n"))
}

// ProcessColumns is the layout of a process table.
var ProcessColumns = []ui.TableColumn{
	{Title: "PID", Width: 7},
	{Title: "NAME", Width: 22},
	{Title: "USER", Width: 10},
	{Title: "CPU%", Width: 6},
	{Title: "MEM%", Width: 6},
}

// ProcessRows formats up to limit processes for ProcessColumns. A limit of
// zero keeps every row.
func ProcessRows(procs []backend.ProcRow, limit int) [][]string {
	if limit > 0 && len(procs) > limit {
		procs = procs[:limit]
	}
	rows := make([][]string, 0, len(procs))
	for _, p := range procs {
		user := ""
		if p.User != nil {
			user = *p.User
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.PID),
			ui.Truncate(p.Name, 22),
			ui.Truncate(user, 10),
			fmt.Sprintf("%.1f", p.CPU),
			fmt.Sprintf("%.1f", p.Mem),
		})
	}
	return rows
}

// tableRows is how many rows a table panel shows for the window height.
func (m Model) tableRows() int {
	if m.height == 0 {
		return 10
	}
	n := m.height / 5
	if n < 3 {
		n = 3
	}
	return n
}

func (m Model) renderProcessesPanel() string {
	if len(m.snap.Processes) == 0 {
		return m.panel("Processes", poll.KindProcesses, MutedStyle.Render("no processes"))
	}
	body := ui.RenderSimpleTable(ProcessColumns, ProcessRows(m.snap.Processes, m.tableRows()))
	return m.panel("Processes", poll.KindProcesses, body)
}

func (m Model) renderHighActivityPanel() string {
	title := fmt.Sprintf("High activity (CPU ≥ %.0f%%)", poll.HighActivityCPU)
	hot := poll.HighActivity(m.snap.Processes)
	if len(hot) == 0 {
		return m.panel(title, poll.KindProcesses, MutedStyle.Render("nothing busy"))
	}
	var rows []string
	for _, p := range hot {
		pct := lipgloss.NewStyle().Foreground(m.opts.Thresholds.CPU.Color(p.CPU)).Render(fmt.Sprintf("%5.1f%%", p.CPU))
		rows = append(rows, pct+"  "+ValueStyle.Render(ui.Truncate(p.Name, 28))+MutedStyle.Render(fmt.Sprintf(" (%d)", p.PID)))
	}
	return m.panel(title, poll.KindProcesses, strings.Join(rows, "\n"))
}

// ServiceColumns is the layout of a service table.
var ServiceColumns = []ui.TableColumn{
	{Title: "SERVICE", Width: 24},
	{Title: "STATE", Width: 8},
	{Title: "DESCRIPTION", Width: 30},
}

func (m Model) renderServicesPanel() string {
	if len(m.snap.Services) == 0 {
		return m.panel("Services", poll.KindServices, MutedStyle.Render("no services reported"))
	}
	rows := ServiceRows(m.snap.Services, m.tableRows())
	return m.panel("Services", poll.KindServices, ui.RenderSimpleTable(ServiceColumns, rows))
}

// ServiceRows formats up to limit services for ServiceColumns.
func ServiceRows(services []backend.ServiceRow, limit int) [][]string {
	if limit > 0 && len(services) > limit {
		services = services[:limit]
	}
	rows := make([][]string, 0, len(services))
	for _, s := range services {
		rows = append(rows, []string{ui.Truncate(s.Name, 24), s.Active, ui.Truncate(s.Description, 30)})
	}
	return rows
}

func (m Model) renderDiagnosticLines() string {
	if len(m.snap.Diagnostics) == 0 {
		return MutedStyle.Render("no recent warnings or errors")
	}
	return strings.Join(m.snap.Diagnostics, "\n")
}

func (m Model) renderDiagnosticsPanel() string {
	w := m.width
	if w == 0 {
		w = defaultWidth
	}
	head := PanelTitleStyle.Render("Diagnostics")
	if msg, ok := m.snap.Errors[poll.KindDiagnostics]; ok {
		head += " " + ErrorTextStyle.Render(ui.SymbolFail+" "+msg)
	}
	return PanelStyle.Width(w - 3).Render(head + "\n" + m.diag.View())
}

// renderConnectModal renders the URL prompt.
func (m Model) renderConnectModal() string {
	lines := []string{
		ModalTitleStyle.Render("Connect to backend"),
		m.urlInput.View(),
		"",
	}
	switch {
	case m.connecting || m.state.Status == connection.Connecting:
		lines = append(lines, m.spinner.View()+" "+LabelStyle.Render("probing "+m.state.BackendURL+"..."))
	case m.state.Status == connection.Error:
		lines = append(lines, ErrorTextStyle.Render(ui.SymbolFail+" "+m.state.Err))
	default:
		lines = append(lines, MutedStyle.Render("Leave empty for the default endpoint."))
	}
	if granted := m.state.Granted; !granted.IsEmpty() {
		lines = append(lines, MutedStyle.Render("Keeps granted permissions: "+granted.String()))
	}
	return m.place(ModalStyle.Render(strings.Join(lines, "\n")))
}

// renderConsentModal renders the pending permission request.
func (m Model) renderConsentModal() string {
	req := m.pending
	style := ModalStyle
	if req.Risk == permission.RiskHigh {
		style = ModalDangerStyle
	}

	riskStyle := lipgloss.NewStyle().Foreground(ColorHealthy)
	if req.Risk == permission.RiskHigh {
		riskStyle = lipgloss.NewStyle().Foreground(ColorCritical).Bold(true)
	}

	lines := []string{
		ModalTitleStyle.Render("Grant " + req.Name + "?"),
		ValueStyle.Render(req.Description),
		"",
		LabelStyle.Render("This allows diagterm to:"),
	}
	for _, c := range req.Capabilities {
		lines = append(lines, "  "+ui.SymbolBullet+" "+c)
	}
	lines = append(lines, "", LabelStyle.Render("Risk: ")+riskStyle.Render(string(req.Risk)))

	if req.RequiresAcknowledgment() {
		lines = append(lines, "", WarningTextStyle.Render(ui.SymbolWarning+" "+req.Warning))
		box := "[ ]"
		if req.Acknowledged {
			box = "[x]"
		}
		lines = append(lines, ValueStyle.Render(box+" I understand the risk"))
	}

	grant := lipgloss.NewStyle().Foreground(ColorHealthy).Bold(true).Render("Grant")
	if !req.CanGrant() {
		grant = MutedStyle.Render(ui.SymbolLock + " Grant")
	}
	lines = append(lines, "", grant+"   "+LabelStyle.Render("Deny"))

	return m.place(style.Render(strings.Join(lines, "\n")))
}

// renderRunnerModal renders the command prompt and the command log.
func (m Model) renderRunnerModal() string {
	lines := []string{
		ModalTitleStyle.Render("Run on " + m.state.BackendURL),
		m.cmdInput.View(),
	}
	if !m.state.Has(permission.Execute) {
		lines = append(lines, MutedStyle.Render(ui.SymbolLock+" execute permission not granted; submitting asks for it"))
	}
	if caps := m.state.Capabilities; caps != nil && !caps.RunnerEnabled {
		lines = append(lines, WarningTextStyle.Render(ui.SymbolWarning+" backend reports its runner as disabled"))
	}
	if m.running {
		lines = append(lines, "", m.spinner.View()+" "+LabelStyle.Render("running..."))
	}

	if len(m.runLog) > 0 {
		entries := make([]string, 0, len(m.runLog))
		for _, e := range m.runLog {
			entries = append(entries, m.renderRunEntry(e))
		}
		limit := m.height / 2
		if limit < 8 {
			limit = 8
		}
		lines = append(lines, "", util.TailLines(strings.Join(entries, "\n\n"), limit))
	}
	return m.place(ModalStyle.Render(strings.Join(lines, "\n")))
}

// renderConfirmModal shows the command that is about to be sent.
func (m Model) renderConfirmModal() string {
	lines := []string{
		ModalTitleStyle.Render("Confirm command execution"),
		LabelStyle.Render("on " + m.state.BackendURL),
		"",
		ValueStyle.Render("$ " + m.confirmCmd),
		"",
		lipgloss.NewStyle().Foreground(ColorCritical).Bold(true).Render("Run") + "   " + LabelStyle.Render("Cancel"),
	}
	return m.place(ModalDangerStyle.Render(strings.Join(lines, "\n")))
}

func (m Model) renderRunEntry(e runEntry) string {
	head := MutedStyle.Render("["+e.At.Format("2006-01-02 15:04:05")+"]") + " " + LabelStyle.Render("$ "+e.Cmd)
	if e.Err != "" {
		return head + "\n" + ErrorTextStyle.Render(ui.SymbolFail+" "+e.Err)
	}

	r := e.Result
	code := lipgloss.NewStyle().Foreground(ColorHealthy).Render(fmt.Sprintf("exit %d", r.ReturnCode))
	if r.ReturnCode != 0 {
		code = ErrorTextStyle.Render(fmt.Sprintf("exit %d", r.ReturnCode))
	}
	out := []string{head + "  " + code}
	if s := strings.TrimRight(r.Stdout, "\n"); s != "" {
		out = append(out, s)
	}
	if s := strings.TrimRight(r.Stderr, "\n"); s != "" {
		out = append(out, ErrorTextStyle.Render(s))
	}
	return strings.Join(out, "\n")
}
