package poll

import (
	"time"

	"github.com/rileyhilliard/diagterm/internal/backend"
)

// Kind identifies one of the four read endpoints.
type Kind int

const (
	KindSummary Kind = iota
	KindProcesses
	KindServices
	KindDiagnostics
)

// Kinds lists every read kind in display order.
var Kinds = []Kind{KindSummary, KindProcesses, KindServices, KindDiagnostics}

func (k Kind) String() string {
	switch k {
	case KindSummary:
		return "summary"
	case KindProcesses:
		return "processes"
	case KindServices:
		return "services"
	case KindDiagnostics:
		return "diagnostics"
	default:
		return "unknown"
	}
}

// Snapshot is the latest data for each kind. A kind whose fetch failed keeps
// the value from its last successful fetch.
type Snapshot struct {
	Summary     *backend.SystemSummary
	Processes   []backend.ProcRow
	Services    []backend.ServiceRow
	Diagnostics []string

	// Err is the most recent failure of the latest cycle, empty if every
	// call succeeded.
	Err string
	// Errors holds the failure message per kind for the latest cycle.
	Errors map[Kind]string

	// UpdatedAt is when the latest cycle finished.
	UpdatedAt time.Time
	// Cycles counts completed cycles since the poller was started.
	Cycles int
}

// Has reports whether kind has ever been fetched successfully.
func (s Snapshot) Has(k Kind) bool {
	switch k {
	case KindSummary:
		return s.Summary != nil
	case KindProcesses:
		return s.Processes != nil
	case KindServices:
		return s.Services != nil
	case KindDiagnostics:
		return s.Diagnostics != nil
	}
	return false
}

// Clone returns a copy that shares nothing with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Summary != nil {
		sum := *s.Summary
		out.Summary = &sum
	}
	if s.Processes != nil {
		out.Processes = append([]backend.ProcRow(nil), s.Processes...)
	}
	if s.Services != nil {
		out.Services = append([]backend.ServiceRow(nil), s.Services...)
	}
	if s.Diagnostics != nil {
		out.Diagnostics = append([]string(nil), s.Diagnostics...)
	}
	if s.Errors != nil {
		out.Errors = make(map[Kind]string, len(s.Errors))
		for k, v := range s.Errors {
			out.Errors[k] = v
		}
	}
	return out
}

const (
	// HighActivityCPU is the CPU percentage at which a process counts as busy.
	HighActivityCPU = 25.0
	// HighActivityMax caps the high-activity list.
	HighActivityMax = 10
)

// HighActivity returns the processes at or above HighActivityCPU, at most
// HighActivityMax of them, in the order they were given.
func HighActivity(procs []backend.ProcRow) []backend.ProcRow {
	out := make([]backend.ProcRow, 0, HighActivityMax)
	for _, p := range procs {
		if p.CPU < HighActivityCPU {
			continue
		}
		out = append(out, p)
		if len(out) == HighActivityMax {
			break
		}
	}
	return out
}
