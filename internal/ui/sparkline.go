package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline maps data onto block characters, scaled between the series'
// own min and max. Only the newest width points are drawn.
func Sparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	var sb strings.Builder
	levels := len(sparklineBlocks)
	span := maxVal - minVal
	for _, v := range data {
		level := levels / 2
		if span > 0 {
			level = int((v - minVal) / span * float64(levels-1))
		}
		if level < 0 {
			level = 0
		} else if level >= levels {
			level = levels - 1
		}
		sb.WriteRune(sparklineBlocks[level])
	}
	return sb.String()
}

// RenderSparkline draws a percentage series colored by its latest value.
func RenderSparkline(data []float64, width int, t Thresholds) string {
	line := Sparkline(data, width)
	if line == "" {
		return ""
	}
	last := data[len(data)-1]
	return lipgloss.NewStyle().Foreground(t.Color(last)).Render(line)
}

// RenderSparklineColor draws a series in a fixed color, for values that are
// not percentages such as network rates.
func RenderSparklineColor(data []float64, width int, color lipgloss.Color) string {
	line := Sparkline(data, width)
	if line == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(color).Render(line)
}
