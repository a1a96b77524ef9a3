package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpBinding represents a single keyboard shortcut entry.
type HelpBinding struct {
	Key  string
	Desc string
}

// helpBindings defines all keyboard shortcuts shown in the help overlay.
var helpBindings = []HelpBinding{
	{Key: "q / Ctrl+C", Desc: "Quit"},
	{Key: "r", Desc: "Refresh now"},
	{Key: "c", Desc: "Connect to a backend"},
	{Key: "d", Desc: "Disconnect and forget grants"},
	{Key: "p", Desc: "Request read-only access"},
	{Key: "x", Desc: "Run a command on the backend"},
	{Key: "Ctrl+L", Desc: "Clear the command log"},
	{Key: "↑ / ↓", Desc: "Scroll diagnostics"},
	{Key: "Space", Desc: "Toggle acknowledgment (consent)"},
	{Key: "Enter / y", Desc: "Submit / grant"},
	{Key: "Esc / n", Desc: "Close / deny"},
	{Key: "?", Desc: "Toggle this help"},
}

var (
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Width(14)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)
)

// renderHelpOverlay renders a centered help box with keyboard shortcuts.
func (m Model) renderHelpOverlay() string {
	var lines []string
	lines = append(lines, ModalTitleStyle.Render("Keyboard Shortcuts"))

	for _, binding := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(binding.Key)+helpDescStyle.Render(binding.Desc))
	}

	lines = append(lines, "")
	lines = append(lines, LabelStyle.Render("Press ? to close"))

	return m.place(ModalStyle.Render(strings.Join(lines, "\n")))
}

// place centers an overlay box in the space between header and footer.
func (m Model) place(box string) string {
	h := m.height - 4
	if m.width == 0 || h <= 0 {
		return box
	}
	return lipgloss.Place(
		m.width,
		h,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(ColorDarkBg),
	)
}
