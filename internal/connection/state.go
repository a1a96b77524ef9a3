// Package connection tracks which backend diagterm is talking to and which
// permissions the user has granted for it.
//
// The Machine is the only writer. Every transition publishes a fresh State to
// subscribers, so readers never see a half-applied change.
package connection

import (
	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/permission"
)

// Status is the connection lifecycle phase.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
	Error
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so Status encodes as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a snapshot of the connection.
//
// Capabilities is non-nil only when Connected. Err is non-empty only in Error.
type State struct {
	Status       Status                `json:"status"`
	BackendURL   string                `json:"backend_url"`
	Capabilities *backend.Capabilities `json:"capabilities,omitempty"`
	Granted      permission.Set        `json:"granted"`
	Err          string                `json:"error,omitempty"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.Capabilities != nil {
		caps := *s.Capabilities
		out.Capabilities = &caps
	}
	return out
}

// Has reports whether level has been granted.
func (s State) Has(level permission.Level) bool {
	return s.Granted.Has(level)
}

// CanPoll reports whether live data should be fetched: the backend is
// connected and read-only access has been granted.
func CanPoll(s State) bool {
	return s.Status == Connected && s.Granted.Has(permission.ReadOnly)
}
