package monitor

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/diagterm/internal/permission"
)

// Overlay identifies the modal drawn over the panels.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayConsent
	OverlayConnect
	OverlayRunner
	OverlayConfirm
)

func (o Overlay) String() string {
	switch o {
	case OverlayHelp:
		return "help"
	case OverlayConsent:
		return "consent"
	case OverlayConnect:
		return "connect"
	case OverlayRunner:
		return "runner"
	case OverlayConfirm:
		return "confirm"
	default:
		return "none"
	}
}

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyConnect     = "c"
	KeyDisconnect  = "d"
	KeyReadOnly    = "p"
	KeyRunner      = "x"
	KeyToggleHelp  = "?"
	KeySubmit      = "enter"
	KeyCollapse    = "esc"
	KeyAcknowledge = " "
	KeyGrant       = "y"
	KeyDeny        = "n"
	KeyClearLog    = "ctrl+l"
)

// HandleKeyMsg processes keyboard input for the current overlay.
// Returns true if the key was handled, false when it should go to a text input.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyQuitAlt {
		m.quitting = true
		return true, tea.Quit
	}

	switch m.Overlay() {
	case OverlayHelp:
		if key == KeyToggleHelp || key == KeyCollapse {
			m.showHelp = false
		} else if key == KeyQuit {
			m.quitting = true
			return true, tea.Quit
		}
		return true, nil

	case OverlayConsent:
		return true, m.handleConsentKey(key)

	case OverlayConfirm:
		switch key {
		case KeySubmit, KeyGrant:
			cmdline := m.confirmCmd
			m.confirmCmd = ""
			m.cmdInput.SetValue("")
			return true, m.runCmd(cmdline)
		case KeyCollapse, KeyDeny:
			m.confirmCmd = ""
			m.notice = "cancelled, nothing was sent"
		case KeyQuit:
			m.quitting = true
			return true, tea.Quit
		}
		return true, nil

	case OverlayConnect:
		switch key {
		case KeySubmit:
			return true, m.connectCmd()
		case KeyCollapse:
			m.closeOverlays()
			return true, nil
		}
		return false, nil

	case OverlayRunner:
		switch key {
		case KeySubmit:
			return true, m.submitRunner()
		case KeyClearLog:
			m.runLog = nil
			return true, nil
		case KeyCollapse:
			m.closeOverlays()
			return true, nil
		}
		return false, nil
	}

	switch key {
	case KeyQuit:
		m.quitting = true
		return true, tea.Quit

	case KeyToggleHelp:
		m.showHelp = true
		return true, nil

	case KeyRefresh:
		if !m.sess.Polling() {
			m.notice = "not polling: connect and grant read-only access first"
			return true, nil
		}
		m.notice = ""
		sess := m.sess
		return true, func() tea.Msg {
			sess.Refresh()
			return nil
		}

	case KeyConnect:
		m.openConnect()
		return true, nil

	case KeyDisconnect:
		if err := m.sess.Disconnect(); err != nil {
			m.notice = err.Error()
		}
		m.sync()
		m.openConnect()
		return true, nil

	case KeyReadOnly:
		m.requestPermission(permission.ReadOnly)
		return true, nil

	case KeyRunner:
		m.openRunner()
		return true, nil
	}

	return false, nil
}

// handleConsentKey drives the pending permission request.
func (m *Model) handleConsentKey(key string) tea.Cmd {
	switch key {
	case KeyAcknowledge:
		if err := m.sess.Acknowledge(!m.pending.Acknowledged); err != nil {
			m.notice = err.Error()
		}
	case KeySubmit, KeyGrant:
		if !m.pending.CanGrant() {
			m.notice = "tick the acknowledgment box first (space)"
			return nil
		}
		level, err := m.sess.Grant()
		if err != nil {
			m.notice = err.Error()
		} else {
			m.notice = level.String() + " granted"
		}
	case KeyCollapse, KeyDeny:
		m.sess.Deny()
	case KeyQuit:
		m.quitting = true
		return tea.Quit
	}
	m.sync()
	return nil
}
