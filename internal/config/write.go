package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// WriteDefault writes cfg to path as commented YAML. It refuses to replace an
// existing file unless force is set.
func WriteDefault(path string, cfg *Config, force bool) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders cfg as YAML with a comment on each top-level key.
// Durations are written as strings such as "5s" so the file stays editable.
func Marshal(cfg *Config) ([]byte, error) {
	doc := mapping(
		field("version", scalar(strconv.Itoa(cfg.Version)), ""),
		field("backend_url", str(cfg.BackendURL), "Backend to connect to when none is given or persisted"),
		field("probe_timeout", str(cfg.ProbeTimeout.String()), "Timeout for each connection probe"),
		field("refresh_interval", str(cfg.RefreshInterval.String()), "Dashboard poll interval (minimum 500ms)"),
		field("run_timeout", str(cfg.RunTimeout.String()), "Server-side timeout sent with each command"),
		field("state_dir", str(cfg.StateDir), "Where the connection is remembered (empty: $XDG_STATE_HOME/diagterm)"),
		field("limits", mapping(
			field("processes", scalar(strconv.Itoa(cfg.Limits.Processes)), ""),
			field("services", scalar(strconv.Itoa(cfg.Limits.Services)), ""),
			field("diagnostics", scalar(strconv.Itoa(cfg.Limits.Diagnostics)), ""),
		), "Rows requested from each list endpoint"),
		field("log", mapping(
			field("level", str(cfg.Log.Level), ""),
			field("file", str(cfg.Log.File), ""),
			field("max_size_mb", scalar(strconv.Itoa(cfg.Log.MaxSizeMB)), ""),
			field("max_backups", scalar(strconv.Itoa(cfg.Log.MaxBackups)), ""),
		), "Log file settings (empty file: diagterm.log in the state dir)"),
		field("output", mapping(
			field("color", str(cfg.Output.Color), ""),
		), "auto, always or never"),
		field("monitor", mapping(
			field("history_size", scalar(strconv.Itoa(cfg.Monitor.HistorySize)), ""),
			field("thresholds", mapping(
				field("cpu", thresholds(cfg.Monitor.Thresholds.CPU), ""),
				field("ram", thresholds(cfg.Monitor.Thresholds.RAM), ""),
				field("disk", thresholds(cfg.Monitor.Thresholds.Disk), ""),
			), ""),
		), "Dashboard tuning"),
	)

	root := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}}
	root.HeadComment = "diagterm configuration"
	out, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}

type kv struct {
	key, value *yaml.Node
}

func field(key string, value *yaml.Node, comment string) kv {
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	if comment != "" {
		k.HeadComment = comment
	}
	return kv{key: k, value: value}
}

func mapping(fields ...kv) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range fields {
		n.Content = append(n.Content, f.key, f.value)
	}
	return n
}

// scalar lets yaml.v3 resolve the tag so numbers stay numbers.
func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func thresholds(t ThresholdValues) *yaml.Node {
	return mapping(
		field("warning", scalar(strconv.Itoa(t.Warning)), ""),
		field("critical", scalar(strconv.Itoa(t.Critical)), ""),
	)
}
