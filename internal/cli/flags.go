package cli

import (
	"fmt"
	"time"

	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/permission"
)

// ParseDuration parses a duration flag such as --timeout.
// Returns zero duration if the flag is empty.
func ParseDuration(name, flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, dterrors.WrapWithCode(err, dterrors.ErrUsage,
			fmt.Sprintf("'%s' doesn't look like a valid --%s", flag, name),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration < 0 {
		return 0, dterrors.New(dterrors.ErrUsage,
			fmt.Sprintf("--%s cannot be negative", name),
			"Use a positive duration like 30s.")
	}
	return duration, nil
}

// ParsePermissions parses a comma-separated --permissions value.
func ParsePermissions(flag string) (permission.Set, error) {
	set, err := permission.ParseSet(flag)
	if err != nil {
		return permission.Set{}, dterrors.WrapWithCode(err, dterrors.ErrUsage,
			fmt.Sprintf("Invalid --permissions '%s'", flag),
			"Use readonly, execute, or readonly,execute.")
	}
	return set, nil
}

// ParseLevel parses a single permission level argument.
func ParseLevel(arg string) (permission.Level, error) {
	level, err := permission.ParseLevel(arg)
	if err != nil {
		return 0, dterrors.WrapWithCode(err, dterrors.ErrUsage,
			fmt.Sprintf("Unknown permission '%s'", arg),
			"Use readonly or execute.")
	}
	return level, nil
}
