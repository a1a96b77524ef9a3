package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Progress bar block characters.
const (
	progressFilled = '█'
	progressEmpty  = '░'
)

// Thresholds are the percentages at which a gauge turns yellow, then red.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// DefaultThresholds are used when a caller has none configured.
var DefaultThresholds = Thresholds{Warning: 60, Critical: 80}

// Color returns the gauge color for percent.
func (t Thresholds) Color(percent float64) lipgloss.Color {
	if t.Warning <= 0 && t.Critical <= 0 {
		t = DefaultThresholds
	}
	switch {
	case t.Critical > 0 && percent >= t.Critical:
		return ColorError
	case t.Warning > 0 && percent >= t.Warning:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// RenderGauge draws a percentage bar without brackets:
//
//	████████░░░░  67%
//
// percent is clamped to 0-100. width is the bar width, excluding the label.
func RenderGauge(percent float64, width int, t Thresholds) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	filled := int((percent / 100.0) * float64(width))
	bar := strings.Repeat(string(progressFilled), filled) + strings.Repeat(string(progressEmpty), width-filled)

	style := lipgloss.NewStyle().Foreground(t.Color(percent))
	return style.Render(bar) + fmt.Sprintf(" %3.0f%%", percent)
}
