package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// MinRefreshInterval is the fastest the dashboard may poll.
const MinRefreshInterval = 500 * time.Millisecond

// Config represents the diagterm config file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// BackendURL is the endpoint used when none is given and none is persisted.
	BackendURL string `yaml:"backend_url" mapstructure:"backend_url"`

	// ProbeTimeout bounds each connection probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// RefreshInterval is the time between poll cycles.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// RunTimeout is sent to the backend as timeout_s for commands.
	RunTimeout time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`

	// StateDir holds the persisted connection. Empty means $XDG_STATE_HOME/diagterm.
	StateDir string `yaml:"state_dir" mapstructure:"state_dir"`

	Limits  LimitsConfig  `yaml:"limits" mapstructure:"limits"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
}

// LimitsConfig caps how many rows each list endpoint returns.
type LimitsConfig struct {
	Processes   int `yaml:"processes" mapstructure:"processes"`
	Services    int `yaml:"services" mapstructure:"services"`
	Diagnostics int `yaml:"diagnostics" mapstructure:"diagnostics"`
}

// LogConfig controls the log file. The terminal belongs to the dashboard, so
// logs never go to stdout.
type LogConfig struct {
	// Level: "debug", "info", "warn" or "error".
	Level string `yaml:"level" mapstructure:"level"`

	// File is the log path. Empty means diagterm.log in the state dir.
	File string `yaml:"file" mapstructure:"file"`

	MaxSizeMB  int `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// MonitorConfig tunes the dashboard.
type MonitorConfig struct {
	// HistorySize is the number of samples kept for sparklines.
	HistorySize int `yaml:"history_size" mapstructure:"history_size"`

	Thresholds ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
}

// ThresholdConfig holds the warning and critical percentages per metric.
type ThresholdConfig struct {
	CPU  ThresholdValues `yaml:"cpu" mapstructure:"cpu"`
	RAM  ThresholdValues `yaml:"ram" mapstructure:"ram"`
	Disk ThresholdValues `yaml:"disk" mapstructure:"disk"`
}

// ThresholdValues are percentages at which a metric turns yellow, then red.
type ThresholdValues struct {
	Warning  int `yaml:"warning" mapstructure:"warning"`
	Critical int `yaml:"critical" mapstructure:"critical"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:         CurrentConfigVersion,
		BackendURL:      "http://127.0.0.1:8765",
		ProbeTimeout:    5 * time.Second,
		RefreshInterval: time.Second,
		RunTimeout:      120 * time.Second,
		Limits: LimitsConfig{
			Processes:   25,
			Services:    25,
			Diagnostics: 120,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Color: "auto",
		},
		Monitor: MonitorConfig{
			HistorySize: 60,
			Thresholds: ThresholdConfig{
				CPU:  ThresholdValues{Warning: 70, Critical: 90},
				RAM:  ThresholdValues{Warning: 70, Critical: 90},
				Disk: ThresholdValues{Warning: 80, Critical: 95},
			},
		},
	}
}
