package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// fileSchema mirrors the YAML layout of the application config file.
//
// Example:
//
//	data_dir: /var/lib/adpilot/events
//	playbook_dir: /etc/adpilot/playbooks
//	log_level: info
//	watch_playbooks: true
//	execution:
//	  profile: balanced
//	  kill_switch_enabled: false
//	  force_dry_run: true
//	tracing:
//	  enabled: false
//	  endpoint: ""
type fileSchema struct {
	DataDir        string `yaml:"data_dir"`
	PlaybookDir    string `yaml:"playbook_dir"`
	LogLevel       string `yaml:"log_level"`
	WatchPlaybooks bool   `yaml:"watch_playbooks"`
	Execution      struct {
		Profile           string `yaml:"profile"`
		KillSwitchEnabled bool   `yaml:"kill_switch_enabled"`
		ForceDryRun       bool   `yaml:"force_dry_run"`
	} `yaml:"execution"`
	Tracing struct {
		Enabled   bool   `yaml:"enabled"`
		Endpoint  string `yaml:"endpoint"`
		TLSCAPath string `yaml:"tls_ca_path"`
	} `yaml:"tracing"`
}

// LoadFile loads and validates an application config file using Koanf.
// The kill switch, force_dry_run override, and threshold profile are all
// settable here without code changes.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
	}

	var raw fileSchema
	if err := k.UnmarshalWithConf("", &raw, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
	}

	cfg := &Config{
		DataDir:        raw.DataDir,
		PlaybookDir:    raw.PlaybookDir,
		LogLevel:       raw.LogLevel,
		WatchPlaybooks: raw.WatchPlaybooks,
		Execution: ExecutionConfig{
			Profile:           raw.Execution.Profile,
			KillSwitchEnabled: raw.Execution.KillSwitchEnabled,
			ForceDryRun:       raw.Execution.ForceDryRun,
		},
		TracingEnabled:   raw.Tracing.Enabled,
		TracingEndpoint:  raw.Tracing.Endpoint,
		TracingTLSCAPath: raw.Tracing.TLSCAPath,
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed for %q: %w", path, err)
	}

	return cfg, nil
}
