package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Neon palette shared by the CLI and the dashboard.
const (
	ColorNeonPink   lipgloss.Color = "#FF2E97"
	ColorNeonCyan   lipgloss.Color = "#00F0FF"
	ColorNeonPurple lipgloss.Color = "#B026FF"
	ColorNeonGreen  lipgloss.Color = "#39FF14"
	ColorNeonOrange lipgloss.Color = "#FF6B1A"
	ColorNeonAmber  lipgloss.Color = "#FFB000"

	ColorDeepVoid    lipgloss.Color = "#0D0221"
	ColorDarkSurface lipgloss.Color = "#1A1033"
	ColorGlassBorder lipgloss.Color = "#3D2C6B"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "#39FF14"
	ColorError   lipgloss.Color = "#FF3860"
	ColorWarning lipgloss.Color = "#FFB000"
	ColorInfo    lipgloss.Color = "#00F0FF"
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "#E0E0F0"
	ColorSecondary lipgloss.Color = "#8B7FC7"
	ColorMuted     lipgloss.Color = "#6C6A80"
)

// GradientColors cycle through the spinner frames.
var GradientColors = []lipgloss.Color{ColorNeonPink, ColorNeonPurple, ColorNeonCyan, ColorNeonGreen}

func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }
func ErrorStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorError) }
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }
func InfoStyle() lipgloss.Style    { return lipgloss.NewStyle().Foreground(ColorInfo) }
func MutedStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorMuted) }

// DisableColors switches lipgloss to monochrome output (for --no-color).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ApplyColorMode configures color output from the output.color setting.
// "auto" keeps lipgloss's own terminal detection unless isTTY is false.
func ApplyColorMode(mode string, isTTY bool) {
	switch mode {
	case "never":
		DisableColors()
	case "always":
		lipgloss.SetColorProfile(termenv.TrueColor)
	default:
		if !isTTY || os.Getenv("NO_COLOR") != "" {
			DisableColors()
		}
	}
}

// Stderr is where the Print helpers write. Tests replace it.
var Stderr io.Writer = os.Stderr

// PrintWarning writes a yellow warning line to Stderr.
func PrintWarning(msg string) {
	fmt.Fprintf(Stderr, "%s %s\n", WarningStyle().Render(SymbolWarning), msg)
}

// PrintSuccess writes a green success line to Stderr.
func PrintSuccess(msg string) {
	fmt.Fprintf(Stderr, "%s %s\n", SuccessStyle().Render(SymbolSuccess), msg)
}

// PrintError writes a red failure line to Stderr.
func PrintError(msg string) {
	fmt.Fprintf(Stderr, "%s %s\n", ErrorStyle().Render(SymbolFail), msg)
}
