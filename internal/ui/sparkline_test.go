package ui

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSparkline(t *testing.T) {
	assert.Empty(t, Sparkline(nil, 10))
	assert.Empty(t, Sparkline([]float64{1}, 0))

	assert.Equal(t, "▁█", Sparkline([]float64{0, 100}, 10))
	assert.Equal(t, "▅▅▅", Sparkline([]float64{3, 3, 3}, 10), "flat series sits mid-height")

	line := Sparkline([]float64{1, 2, 3, 4, 5, 6}, 3)
	assert.Equal(t, 3, utf8.RuneCountInString(line), "only the newest points are drawn")
	assert.Equal(t, "▁▄█", line)
}

func TestRenderSparklineKeepsText(t *testing.T) {
	DisableColors()
	assert.Equal(t, "▁█", RenderSparkline([]float64{10, 95}, 5, DefaultThresholds))
	assert.Equal(t, "▁█", RenderSparklineColor([]float64{10, 95}, 5, ColorInfo))
	assert.Empty(t, RenderSparkline(nil, 5, DefaultThresholds))
}
