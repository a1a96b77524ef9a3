package ui

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestColorConstants(t *testing.T) {
	colors := []lipgloss.Color{
		ColorNeonPink, ColorNeonCyan, ColorNeonPurple, ColorNeonGreen,
		ColorNeonOrange, ColorNeonAmber, ColorDeepVoid, ColorDarkSurface,
		ColorGlassBorder, ColorSuccess, ColorError, ColorWarning, ColorInfo,
		ColorPrimary, ColorSecondary, ColorMuted,
	}

	for _, color := range colors {
		s := string(color)
		assert.Len(t, s, 7, "color should be #RRGGBB: %s", s)
		assert.Equal(t, byte('#'), s[0])
	}
	assert.Len(t, GradientColors, 4)
}

func TestStylesRender(t *testing.T) {
	for name, style := range map[string]lipgloss.Style{
		"success": SuccessStyle(),
		"error":   ErrorStyle(),
		"warning": WarningStyle(),
		"info":    InfoStyle(),
		"muted":   MutedStyle(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, style.Render(name), name)
		})
	}
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	old := Stderr
	Stderr = &buf
	defer func() { Stderr = old }()

	PrintWarning("careful")
	PrintSuccess("done")
	PrintError("broken")

	out := buf.String()
	assert.Contains(t, out, SymbolWarning+" careful")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "broken")
}

func TestDisableColors(t *testing.T) {
	assert.NotPanics(t, DisableColors)
	assert.Equal(t, "plain", SuccessStyle().Render("plain"))
}

func TestApplyColorModeNever(t *testing.T) {
	ApplyColorMode("never", true)
	assert.Equal(t, "x", ErrorStyle().Render("x"))
}
