package monitor

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/diagterm/internal/connection"
)

// Dashboard color palette - electric synthwave
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F") // Deep void
	ColorSurfaceBg = lipgloss.Color("#12121A") // Dark surface
	ColorBorder    = lipgloss.Color("#2A2A4A") // Glass border (purple tint)

	ColorHealthy  = lipgloss.Color("#39FF14") // Neon green
	ColorWarning  = lipgloss.Color("#FFAA00") // Electric amber
	ColorCritical = lipgloss.Color("#FF0055") // Hot red-pink

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent    = lipgloss.Color("#FF2E97") // Neon pink
	ColorAccentDim = lipgloss.Color("#BF40FF") // Neon purple

	ColorGraph = lipgloss.Color("#00FFFF") // Neon cyan
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)

	WarningTextStyle = lipgloss.NewStyle().
				Foreground(ColorWarning)

	// Overlays share the help box look.
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Background(ColorSurfaceBg).
			Padding(1, 2)

	ModalDangerStyle = ModalStyle.
				BorderForeground(ColorCritical)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginBottom(1)
)

// Status glyphs
const (
	StatusGlyphConnected    = "◉"
	StatusGlyphDisconnected = "◌"
	StatusGlyphError        = "✗"
)

// ConnectingSpinnerFrames rotate while a connect is in flight.
var ConnectingSpinnerFrames = []string{"◐", "◓", "◑", "◒"}

// statusStyle returns the indicator color for a connection status.
func statusStyle(s connection.Status) lipgloss.Style {
	switch s {
	case connection.Connected:
		return lipgloss.NewStyle().Foreground(ColorHealthy)
	case connection.Connecting:
		return lipgloss.NewStyle().Foreground(ColorTextSecondary)
	case connection.Error:
		return lipgloss.NewStyle().Foreground(ColorCritical)
	default:
		return lipgloss.NewStyle().Foreground(ColorTextMuted)
	}
}
