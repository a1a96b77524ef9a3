package permission

// Risk is how dangerous granting a level is.
type Risk string

const (
	RiskLow  Risk = "low"
	RiskHigh Risk = "high"
)

// Descriptor is what a consent prompt shows for a level.
type Descriptor struct {
	Level        Level
	Name         string
	Description  string
	Capabilities []string
	Risk         Risk
	// Warning is shown for high-risk levels next to the acknowledgment checkbox.
	Warning string
}

// RequiresAcknowledgment reports whether the prompt must collect an explicit
// acknowledgment before the grant action is enabled.
func (d Descriptor) RequiresAcknowledgment() bool {
	return d.Risk == RiskHigh
}

var descriptors = map[Level]Descriptor{
	ReadOnly: {
		Level:       ReadOnly,
		Name:        "Read-only monitoring",
		Description: "View live system metrics from the backend host.",
		Capabilities: []string{
			"View CPU, memory, disk and network usage",
			"View the top processes",
			"View running services",
			"View recent warnings and errors from the system log",
		},
		Risk: RiskLow,
	},
	Execute: {
		Level:       Execute,
		Name:        "Command execution",
		Description: "Run arbitrary shell commands on the backend host.",
		Capabilities: []string{
			"Execute shell commands as the backend's user",
			"Read command output (stdout and stderr)",
			"Modify files and processes the backend's user can reach",
		},
		Risk:    RiskHigh,
		Warning: "Commands run with the backend's privileges and can change or destroy data on that host.",
	},
}

// Describe returns the consent descriptor for l.
func Describe(l Level) (Descriptor, bool) {
	d, ok := descriptors[l]
	if !ok {
		return Descriptor{}, false
	}
	d.Capabilities = append([]string(nil), d.Capabilities...)
	return d, true
}
