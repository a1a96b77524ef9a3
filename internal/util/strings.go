package util

import (
	"fmt"
	"strings"
)

// Pluralize returns singular if count is 1, otherwise plural.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// CountNoun formats "1 line" or "3 lines".
func CountNoun(count int, singular, plural string) string {
	return fmt.Sprintf("%d %s", count, Pluralize(count, singular, plural))
}

// Tail returns the last n items, or all of them when there are fewer.
// A negative n keeps everything.
func Tail(items []string, n int) []string {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

// TailLines keeps the last n lines of s. When lines are dropped a
// "... N lines hidden" marker is put in front.
func TailLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	hidden := len(lines) - n
	return "... " + CountNoun(hidden, "line", "lines") + " hidden\n" + strings.Join(Tail(lines, n), "\n")
}
