package backend

// Capabilities is the feature set a backend advertises at /api/capabilities.
// It is informational only: local permission grants decide what the client calls.
type Capabilities struct {
	Version            string `json:"version"`
	RunnerEnabled      bool   `json:"runner_enabled"`
	DiagnosticsEnabled bool   `json:"diagnostics_enabled"`
	ServicesEnabled    bool   `json:"services_enabled"`
}

// FallbackCapabilities is reported when the capabilities endpoint is missing
// but the backend still answers /api/summary.
func FallbackCapabilities() Capabilities {
	return Capabilities{
		Version:            "unknown",
		RunnerEnabled:      false,
		DiagnosticsEnabled: true,
		ServicesEnabled:    true,
	}
}

// SystemSummary is a host-wide snapshot. Pointer fields are null when the
// backend platform cannot provide the value.
type SystemSummary struct {
	Hostname      string      `json:"hostname"`
	Platform      string      `json:"platform"`
	Kernel        string      `json:"kernel"`
	UptimeS       float64     `json:"uptime_s"`
	LoadAvg       *[3]float64 `json:"loadavg"`
	CPUPercent    float64     `json:"cpu_percent"`
	CPUFreqMHz    *float64    `json:"cpu_freq_mhz"`
	MemTotal      int64       `json:"mem_total"`
	MemUsed       int64       `json:"mem_used"`
	MemAvailable  int64       `json:"mem_available"`
	SwapTotal     int64       `json:"swap_total"`
	SwapUsed      int64       `json:"swap_used"`
	DiskTotal     int64       `json:"disk_total"`
	DiskUsed      int64       `json:"disk_used"`
	DiskFree      int64       `json:"disk_free"`
	NetSent       int64       `json:"net_sent"`
	NetRecv       int64       `json:"net_recv"`
	PackagePowerW *float64    `json:"package_power_w"`
}

// MemPercent returns used memory as a percentage of total, or 0 when unknown.
func (s SystemSummary) MemPercent() float64 {
	if s.MemTotal <= 0 {
		return 0
	}
	return float64(s.MemUsed) / float64(s.MemTotal) * 100
}

// DiskPercent returns used disk as a percentage of total, or 0 when unknown.
func (s SystemSummary) DiskPercent() float64 {
	if s.DiskTotal <= 0 {
		return 0
	}
	return float64(s.DiskUsed) / float64(s.DiskTotal) * 100
}

// ProcRow is one row of the backend's process table.
type ProcRow struct {
	PID    int     `json:"pid"`
	Name   string  `json:"name"`
	User   *string `json:"user"`
	CPU    float64 `json:"cpu"`
	Mem    float64 `json:"mem"`
	ReadB  *int64  `json:"read_b"`
	WriteB *int64  `json:"write_b"`
}

// ServiceRow is one running service as reported by the backend.
type ServiceRow struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      string `json:"active"`
}

// RunResult is the outcome of a shell command executed by the backend.
type RunResult struct {
	Cmd        string `json:"cmd"`
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// RunRequest is the JSON body of POST /api/run.
type RunRequest struct {
	Cmd      string  `json:"cmd"`
	TimeoutS float64 `json:"timeout_s"`
}

type processesResponse struct {
	Processes []ProcRow `json:"processes"`
}

type servicesResponse struct {
	Services []ServiceRow `json:"services"`
}

type diagnosticsResponse struct {
	Lines []string `json:"lines"`
}
