package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DataDir:     "/var/lib/adpilot/events",
		PlaybookDir: "/etc/adpilot/playbooks",
		LogLevel:    "info",
		Execution: ExecutionConfig{
			Profile:           "balanced",
			KillSwitchEnabled: false,
			ForceDryRun:       true,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "DataDir",
		},
		{
			name:    "missing playbook dir",
			mutate:  func(c *Config) { c.PlaybookDir = "" },
			wantErr: "PlaybookDir",
		},
		{
			name:    "unknown profile",
			mutate:  func(c *Config) { c.Execution.Profile = "paranoid" },
			wantErr: "Profile must be one of",
		},
		{
			name:    "empty profile",
			mutate:  func(c *Config) { c.Execution.Profile = "" },
			wantErr: "Profile must be one of",
		},
		{
			name:    "tracing enabled without endpoint",
			mutate:  func(c *Config) { c.TracingEnabled = true },
			wantErr: "TracingEndpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
data_dir: /var/lib/adpilot/events
playbook_dir: /etc/adpilot/playbooks
log_level: debug
watch_playbooks: true
execution:
  profile: conservative
  kill_switch_enabled: true
  force_dry_run: true
tracing:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/adpilot/events", cfg.DataDir)
	assert.Equal(t, "/etc/adpilot/playbooks", cfg.PlaybookDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.WatchPlaybooks)
	assert.Equal(t, "conservative", cfg.Execution.Profile)
	assert.True(t, cfg.Execution.KillSwitchEnabled)
	assert.True(t, cfg.Execution.ForceDryRun)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadFileDefaultsLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
data_dir: data
playbook_dir: playbooks
execution:
  profile: balanced
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
data_dir: data
playbook_dir: playbooks
execution:
  profile: nonsense
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Profile must be one of")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
