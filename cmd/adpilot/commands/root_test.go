package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevelFlagsBareLevel(t *testing.T) {
	defaultLevel, packages, err := parseLogLevelFlags([]string{"debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", defaultLevel)
	assert.Empty(t, packages)
}

func TestParseLogLevelFlagsPerPackage(t *testing.T) {
	defaultLevel, packages, err := parseLogLevelFlags([]string{
		"warn",
		"playbook.loader=debug",
		"executor=error",
	})
	require.NoError(t, err)
	assert.Equal(t, "warn", defaultLevel)
	assert.Equal(t, map[string]string{
		"playbook.loader": "debug",
		"executor":        "error",
	}, packages)
}

func TestParseLogLevelFlagsEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL_PLAYBOOK_LOADER", "debug")

	defaultLevel, packages, err := parseLogLevelFlags([]string{"info"})
	require.NoError(t, err)
	assert.Equal(t, "info", defaultLevel)
	assert.Equal(t, "debug", packages["playbook.loader"])
}

func TestParseLogLevelFlagsCLIOverridesEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL_EXECUTOR", "debug")

	_, packages, err := parseLogLevelFlags([]string{"executor=warn"})
	require.NoError(t, err)
	assert.Equal(t, "warn", packages["executor"])
}

func TestParseLogLevelFlagsInvalid(t *testing.T) {
	_, _, err := parseLogLevelFlags([]string{"loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	_, _, err = parseLogLevelFlags([]string{"playbook.loader=loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "playbook.loader")
}

func TestEnvKeyToPackageName(t *testing.T) {
	assert.Equal(t, "playbook.loader", envKeyToPackageName("LOG_LEVEL_PLAYBOOK_LOADER"))
	assert.Equal(t, "executor", envKeyToPackageName("LOG_LEVEL_EXECUTOR"))
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "fatal", "INFO"} {
		assert.NoError(t, validateLogLevel(level), level)
	}
	assert.Error(t, validateLogLevel("trace"))
	assert.Error(t, validateLogLevel(""))
}
