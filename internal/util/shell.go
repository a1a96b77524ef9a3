// Package util holds small string helpers shared by the CLI and the dashboard.
package util

import "strings"

// shellSafe are the bytes that never need quoting in a POSIX shell word.
const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./=:,+@%"

// ShellQuote wraps a string in single quotes, escaping any existing single quotes.
// The shell treats the result as one literal word.
func ShellQuote(s string) string {
	// ' becomes '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// QuoteArg returns s unchanged when it is a plain shell word, quoted otherwise.
func QuoteArg(s string) string {
	if s == "" {
		return "''"
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(shellSafe, rune(s[i])) {
			return ShellQuote(s)
		}
	}
	return s
}

// JoinCommand turns argv into one command line for a remote shell.
//
// A single argument is taken as an already-written command line, so
// `diagterm run "ls | wc -l"` keeps its pipe. With several arguments each is
// quoted as needed, so `diagterm run -- ls "my dir"` lists one directory.
func JoinCommand(args []string) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		return args[0]
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = QuoteArg(a)
	}
	return strings.Join(quoted, " ")
}
