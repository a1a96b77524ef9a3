package monitor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/connection"
	"github.com/rileyhilliard/diagterm/internal/permission"
	"github.com/rileyhilliard/diagterm/internal/poll"
	"github.com/rileyhilliard/diagterm/internal/session"
	"github.com/rileyhilliard/diagterm/internal/ui"
)

// clockInterval re-renders the "last update" age between poll cycles.
const clockInterval = time.Second

// maxRunLog is how many runner entries are kept.
const maxRunLog = 20

// Layout breakpoints based on terminal width.
const (
	BreakpointCompact = 80
	BreakpointWide    = 140
)

// LayoutMode is how panels are arranged for the current width.
type LayoutMode int

const (
	LayoutMinimal LayoutMode = iota // single column, no sparklines
	LayoutCompact                   // single column
	LayoutWide                      // two columns
)

// Thresholds color the summary gauges.
type Thresholds struct {
	CPU  ui.Thresholds
	RAM  ui.Thresholds
	Disk ui.Thresholds
}

// Options tune the dashboard. Zero values take defaults.
type Options struct {
	Thresholds Thresholds
	// RunTimeout is passed to the backend for commands started from the
	// runner overlay. Zero uses the session default.
	RunTimeout time.Duration
}

type (
	// sessionMsg means something in the session changed; the model re-reads it.
	sessionMsg struct{}

	clockMsg time.Time

	connectDoneMsg struct {
		state connection.State
		err   error
	}

	runDoneMsg struct {
		at      time.Time
		cmd     string
		result  *backend.RunResult
		request *permission.Request
		err     error
	}
)

// runEntry is one command in the runner log.
type runEntry struct {
	At     time.Time
	Cmd    string
	Result *backend.RunResult
	Err    string
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	sess   *session.Session
	opts   Options
	events chan struct{}

	width  int
	height int

	state   connection.State
	snap    poll.Snapshot
	pending *permission.Request

	showHelp    bool
	showConnect bool
	showRunner  bool

	urlInput textinput.Model
	cmdInput textinput.Model
	spinner  spinner.Model
	diag     viewport.Model

	connecting bool
	running    bool
	confirmCmd string
	runLog     []runEntry
	notice     string

	quitting bool
}

// NewModel creates a dashboard bound to sess. The session keeps running after
// the program exits; the caller closes it.
func NewModel(sess *session.Session, opts Options) Model {
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = Thresholds{CPU: ui.DefaultThresholds, RAM: ui.DefaultThresholds, Disk: ui.DefaultThresholds}
	}

	url := textinput.New()
	url.Placeholder = "http://127.0.0.1:8765"
	url.Prompt = "URL ❯ "
	url.CharLimit = 256
	url.Width = 48

	cmd := textinput.New()
	cmd.Placeholder = "uptime"
	cmd.Prompt = "$ "
	cmd.CharLimit = 1024
	cmd.Width = 60

	sp := spinner.New()
	sp.Spinner = ui.TUISpinner
	sp.Style = LabelStyle

	events := make(chan struct{}, 1)
	m := Model{
		sess:     sess,
		opts:     opts,
		events:   events,
		urlInput: url,
		cmdInput: cmd,
		spinner:  sp,
		diag:     viewport.New(80, 8),
	}

	notify := func() {
		select {
		case events <- struct{}{}:
		default:
		}
	}
	sess.OnState(func(connection.State) { notify() })
	sess.OnSnapshot(func(poll.Snapshot) { notify() })
	sess.OnRequest(func(*permission.Request) { notify() })

	m.sync()
	if needsConnect(m.state.Status) {
		m.openConnect()
	}
	return m
}

func needsConnect(s connection.Status) bool {
	return s == connection.Disconnected || s == connection.Error
}

// Init starts listening to the session and the clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		clockCmd(),
		m.spinner.Tick,
		textinput.Blink,
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}
		return m.updateInputs(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeDiagnostics()

	case sessionMsg:
		m.sync()
		if !m.connecting && !m.showConnect && needsConnect(m.state.Status) {
			m.openConnect()
		}
		return m, waitForEvent(m.events)

	case clockMsg:
		return m, clockCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case connectDoneMsg:
		m.connecting = false
		m.sync()
		if msg.err != nil {
			// A failed probe lands in the Error state and shows in the
			// modal; only unexpected errors need a notice.
			if !errors.Is(msg.err, connection.ErrSuperseded) && m.state.Status != connection.Error {
				m.notice = msg.err.Error()
			}
			return m, nil
		}
		if msg.state.Status == connection.Connected {
			m.showConnect = false
			m.urlInput.Blur()
			if !msg.state.Has(permission.ReadOnly) {
				m.requestPermission(permission.ReadOnly)
			}
		}

	case runDoneMsg:
		m.running = false
		switch {
		case msg.err != nil:
			m.appendRun(runEntry{At: msg.at, Cmd: msg.cmd, Err: msg.err.Error()})
		case msg.request != nil:
			m.notice = "execute permission required"
			m.sync()
		default:
			m.appendRun(runEntry{At: msg.at, Cmd: msg.cmd, Result: msg.result})
		}
	}

	return m, nil
}

// updateInputs forwards keys to the focused text input.
func (m Model) updateInputs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.Overlay() {
	case OverlayConnect:
		m.urlInput, cmd = m.urlInput.Update(msg)
	case OverlayRunner:
		m.cmdInput, cmd = m.cmdInput.Update(msg)
	case OverlayNone:
		m.diag, cmd = m.diag.Update(msg)
	}
	return m, cmd
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// sync copies the session's current state into the model.
func (m *Model) sync() {
	m.state = m.sess.State()
	m.snap = m.sess.Snapshot()
	if req, ok := m.sess.PendingRequest(); ok {
		m.pending = &req
	} else {
		m.pending = nil
	}
	m.diag.SetContent(m.renderDiagnosticLines())
}

func (m *Model) openConnect() {
	m.showConnect = true
	m.showRunner = false
	m.cmdInput.Blur()
	if m.urlInput.Value() == "" {
		m.urlInput.SetValue(m.state.BackendURL)
	}
	m.urlInput.CursorEnd()
	m.urlInput.Focus()
}

func (m *Model) openRunner() {
	m.showRunner = true
	m.showConnect = false
	m.urlInput.Blur()
	m.cmdInput.Focus()
}

func (m *Model) closeOverlays() {
	m.showConnect = false
	m.showRunner = false
	m.urlInput.Blur()
	m.cmdInput.Blur()
}

func (m *Model) requestPermission(level permission.Level) {
	if _, err := m.sess.RequestPermission(level); err != nil {
		m.notice = err.Error()
		return
	}
	m.sync()
}

// connectCmd connects to the URL in the modal, keeping any grants the
// current state already carries.
func (m *Model) connectCmd() tea.Cmd {
	if m.connecting {
		return nil
	}
	m.connecting = true
	m.notice = ""
	sess := m.sess
	url := m.urlInput.Value()
	perms := m.state.Granted
	return func() tea.Msg {
		state, err := sess.Connect(context.Background(), url, perms)
		return connectDoneMsg{state: state, err: err}
	}
}

// submitRunner asks for confirmation before a command is sent. Without the
// execute grant nothing would be sent, so the request is raised directly.
func (m *Model) submitRunner() tea.Cmd {
	if m.running {
		return nil
	}
	cmdline := strings.TrimSpace(m.cmdInput.Value())
	if cmdline == "" {
		return nil
	}
	if !m.sess.State().Has(permission.Execute) {
		return m.runCmd(cmdline)
	}
	m.confirmCmd = cmdline
	return nil
}

// runCmd sends cmdline to the session.
func (m *Model) runCmd(cmdline string) tea.Cmd {
	if m.running || cmdline == "" {
		return nil
	}
	m.running = true
	m.notice = ""
	sess := m.sess
	timeout := m.opts.RunTimeout
	at := time.Now()
	return func() tea.Msg {
		res, req, err := sess.Run(context.Background(), cmdline, timeout)
		return runDoneMsg{at: at, cmd: cmdline, result: res, request: req, err: err}
	}
}

func (m *Model) appendRun(e runEntry) {
	m.runLog = append(m.runLog, e)
	if n := len(m.runLog) - maxRunLog; n > 0 {
		m.runLog = append([]runEntry(nil), m.runLog[n:]...)
	}
}

func waitForEvent(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return sessionMsg{}
	}
}

func clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// resizeDiagnostics fits the diagnostics viewport to the window.
func (m *Model) resizeDiagnostics() {
	w := m.panelWidth() - 4
	if w < 20 {
		w = 20
	}
	h := m.height / 4
	if h < 3 {
		h = 3
	}
	m.diag.Width = w
	m.diag.Height = h
	m.diag.SetContent(m.renderDiagnosticLines())
}

// Overlay returns the overlay currently drawn over the panels.
func (m Model) Overlay() Overlay {
	switch {
	case m.showHelp:
		return OverlayHelp
	case m.pending != nil:
		return OverlayConsent
	case m.confirmCmd != "":
		return OverlayConfirm
	case m.showConnect:
		return OverlayConnect
	case m.showRunner:
		return OverlayRunner
	default:
		return OverlayNone
	}
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointWide:
		return LayoutWide
	case m.width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// SecondsSinceUpdate returns how many seconds have passed since the last poll cycle.
func (m Model) SecondsSinceUpdate() int {
	if m.snap.UpdatedAt.IsZero() {
		return 0
	}
	return int(time.Since(m.snap.UpdatedAt).Seconds())
}
