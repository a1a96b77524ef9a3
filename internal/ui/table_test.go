package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSimpleTable(t *testing.T) {
	DisableColors()

	out := RenderSimpleTable(
		[]TableColumn{{Title: "PID", Width: 6}, {Title: "NAME", Width: 12}},
		[][]string{{"1", "init"}, {"42", "worker"}},
	)
	assert.Contains(t, out, "PID")
	assert.Contains(t, out, "worker")

	assert.Empty(t, RenderSimpleTable([]TableColumn{{Title: "X", Width: 1}}, nil))
}

func TestRenderKeyValues(t *testing.T) {
	DisableColors()

	out := RenderKeyValues([]KeyValue{
		{Key: "Backend", Value: "http://h:1"},
		{Key: "Status", Value: "connected"},
	})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "Backend  http://h:1", lines[0])
	assert.Equal(t, "Status   connected", lines[1])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "…", Truncate("abc", 1))
	assert.Empty(t, Truncate("abc", 0))
}
