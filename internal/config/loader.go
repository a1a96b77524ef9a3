package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces environment overrides: DIAGTERM_BACKEND_URL,
	// DIAGTERM_LIMITS_PROCESSES and so on.
	EnvPrefix = "DIAGTERM"
	// GlobalConfigDir is the directory for the config file, relative to home.
	GlobalConfigDir = ".config/diagterm"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yaml"
)

// DefaultPath returns ~/.config/diagterm/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine home directory",
			"Set $HOME or pass --config")
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile), nil
}

// Load reads config from the specified path, with defaults and environment
// overrides applied.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found: "+path,
				"Run 'diagterm config init' to create one, or drop --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. ~/.config/diagterm/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	global, err := DefaultPath()
	if err != nil {
		return "", nil
	}
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}

// LoadOrDefault loads the config found by Find, or defaults plus environment
// overrides when there is no file.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "environment")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("backend_url", d.BackendURL)
	v.SetDefault("probe_timeout", d.ProbeTimeout)
	v.SetDefault("refresh_interval", d.RefreshInterval)
	v.SetDefault("run_timeout", d.RunTimeout)
	v.SetDefault("state_dir", d.StateDir)
	v.SetDefault("limits.processes", d.Limits.Processes)
	v.SetDefault("limits.services", d.Limits.Services)
	v.SetDefault("limits.diagnostics", d.Limits.Diagnostics)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("output.color", d.Output.Color)
	v.SetDefault("monitor.history_size", d.Monitor.HistorySize)
	v.SetDefault("monitor.thresholds.cpu.warning", d.Monitor.Thresholds.CPU.Warning)
	v.SetDefault("monitor.thresholds.cpu.critical", d.Monitor.Thresholds.CPU.Critical)
	v.SetDefault("monitor.thresholds.ram.warning", d.Monitor.Thresholds.RAM.Warning)
	v.SetDefault("monitor.thresholds.ram.critical", d.Monitor.Thresholds.RAM.Critical)
	v.SetDefault("monitor.thresholds.disk.warning", d.Monitor.Thresholds.Disk.Warning)
	v.SetDefault("monitor.thresholds.disk.critical", d.Monitor.Thresholds.Disk.Critical)
}

// parseConfig converts viper config to our Config struct.
func parseConfig(v *viper.Viper, source string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax and duration values in "+source)
	}

	cfg.StateDir = Expand(cfg.StateDir)
	cfg.Log.File = Expand(cfg.Log.File)
	return cfg, nil
}
