package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but diagterm only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade diagterm or lower the version field.")
	}

	if cfg.BackendURL != "" {
		if _, err := backend.ParseBaseURL(cfg.BackendURL); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
				"Set backend_url to something like http://127.0.0.1:8765.")
		}
	}

	if err := validateTimings(cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Durations look like '500ms', '5s' or '2m'.")
	}

	if err := validateLimits(cfg.Limits); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'limits' section of your config.")
	}

	if err := validateLog(cfg.Log); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'log' section of your config.")
	}

	if err := validateOutput(cfg.Output); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'output' section of your config.")
	}

	if err := validateMonitor(cfg.Monitor); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'monitor' section of your config.")
	}

	return nil
}

func validateTimings(cfg *Config) error {
	if cfg.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout needs to be positive (got %v)", cfg.ProbeTimeout)
	}
	if cfg.RefreshInterval < MinRefreshInterval {
		return fmt.Errorf("refresh_interval %v is too fast - the minimum is %v", cfg.RefreshInterval, MinRefreshInterval)
	}
	if cfg.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout needs to be positive (got %v)", cfg.RunTimeout)
	}
	return nil
}

// validateLimits allows zero, which means the backend client's default.
func validateLimits(l LimitsConfig) error {
	if l.Processes < 0 {
		return fmt.Errorf("limits.processes can't be negative (got %d)", l.Processes)
	}
	if l.Services < 0 {
		return fmt.Errorf("limits.services can't be negative (got %d)", l.Services)
	}
	if l.Diagnostics < 0 {
		return fmt.Errorf("limits.diagnostics can't be negative (got %d)", l.Diagnostics)
	}
	return nil
}

func validateLog(l LogConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[strings.ToLower(l.Level)] {
		return fmt.Errorf("log.level '%s' isn't valid - use 'debug', 'info', 'warn', or 'error'", l.Level)
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 {
		return fmt.Errorf("log.max_size_mb and log.max_backups can't be negative")
	}
	return nil
}

// validateOutput checks output configuration.
func validateOutput(out OutputConfig) error {
	validColors := map[string]bool{"auto": true, "always": true, "never": true, "": true}
	if !validColors[out.Color] {
		return fmt.Errorf("output.color '%s' isn't valid - use 'auto', 'always', or 'never'", out.Color)
	}
	return nil
}

func validateMonitor(m MonitorConfig) error {
	if m.HistorySize < 0 {
		return fmt.Errorf("monitor.history_size can't be negative (got %d)", m.HistorySize)
	}
	if err := validateThresholds("cpu", m.Thresholds.CPU); err != nil {
		return err
	}
	if err := validateThresholds("ram", m.Thresholds.RAM); err != nil {
		return err
	}
	return validateThresholds("disk", m.Thresholds.Disk)
}

// validateThresholds checks a threshold configuration for a single metric type.
func validateThresholds(name string, thresh ThresholdValues) error {
	if thresh.Warning < 0 || thresh.Warning > 100 {
		return fmt.Errorf("monitor.thresholds.%s.warning needs to be 0-100 (got %d)", name, thresh.Warning)
	}
	if thresh.Critical < 0 || thresh.Critical > 100 {
		return fmt.Errorf("monitor.thresholds.%s.critical needs to be 0-100 (got %d)", name, thresh.Critical)
	}
	// 0 means use default, so only compare when both are set
	if thresh.Warning > 0 && thresh.Critical > 0 && thresh.Warning >= thresh.Critical {
		return fmt.Errorf("monitor.thresholds.%s.warning (%d%%) is higher than critical (%d%%) - should be the other way around", name, thresh.Warning, thresh.Critical)
	}
	return nil
}
