// Package permission models the local consent a user gives before diagterm
// issues calls for a capability.
//
// There are exactly two levels and they are independent: ReadOnly unlocks the
// four read endpoints and their polling, Execute unlocks the run-command call.
// Neither implies the other. Grants are client-side bookkeeping only; the
// backend can still refuse any call.
package permission

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is a capability the user can consent to.
type Level int

const (
	// ReadOnly allows fetching summary, processes, services and diagnostics.
	ReadOnly Level = iota + 1
	// Execute allows running shell commands on the backend host.
	Execute
)

// Levels lists every level in display order. Adding one is a deliberate change.
var Levels = []Level{ReadOnly, Execute}

// String returns the wire name of the level.
func (l Level) String() string {
	switch l {
	case ReadOnly:
		return "readonly"
	case Execute:
		return "execute"
	default:
		return "unknown"
	}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l == ReadOnly || l == Execute
}

// ParseLevel converts a wire name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "readonly", "read-only", "read":
		return ReadOnly, nil
	case "execute", "exec":
		return Execute, nil
	default:
		return 0, fmt.Errorf("unknown permission level %q (expected readonly or execute)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid permission level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Set is an immutable set of granted levels. The zero value is empty.
type Set struct {
	bits uint8
}

// NewSet builds a set from levels, ignoring invalid ones.
func NewSet(levels ...Level) Set {
	var s Set
	for _, l := range levels {
		s = s.Add(l)
	}
	return s
}

func bit(l Level) uint8 {
	if !l.Valid() {
		return 0
	}
	return 1 << uint(l)
}

// Has reports whether l is in the set.
func (s Set) Has(l Level) bool {
	b := bit(l)
	return b != 0 && s.bits&b != 0
}

// Add returns a set that also contains l. Adding a present level is a no-op.
func (s Set) Add(l Level) Set {
	return Set{bits: s.bits | bit(l)}
}

// Union returns the levels present in either set.
func (s Set) Union(other Set) Set {
	return Set{bits: s.bits | other.bits}
}

// Len returns the number of levels in the set.
func (s Set) Len() int {
	n := 0
	for _, l := range Levels {
		if s.Has(l) {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no level has been granted.
func (s Set) IsEmpty() bool {
	return s.bits == 0
}

// Levels returns the members in display order.
func (s Set) Levels() []Level {
	out := make([]Level, 0, len(Levels))
	for _, l := range Levels {
		if s.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// String returns a comma-separated list, or "none".
func (s Set) String() string {
	if s.IsEmpty() {
		return "none"
	}
	names := make([]string, 0, len(Levels))
	for _, l := range s.Levels() {
		names = append(names, l.String())
	}
	return strings.Join(names, ",")
}

// ParseSet parses a comma-separated list such as "readonly,execute".
func ParseSet(s string) (Set, error) {
	var set Set
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		l, err := ParseLevel(part)
		if err != nil {
			return Set{}, err
		}
		set = set.Add(l)
	}
	return set, nil
}

// MarshalJSON encodes the set as an array of level names.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Levels())
}

// UnmarshalJSON decodes an array of level names. Unknown names are an error.
func (s *Set) UnmarshalJSON(b []byte) error {
	var levels []Level
	if err := json.Unmarshal(b, &levels); err != nil {
		return err
	}
	*s = NewSet(levels...)
	return nil
}
