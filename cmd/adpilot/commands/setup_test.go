package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyecom/adpilot/internal/models"
)

func TestParseSignalsFlags(t *testing.T) {
	signals, err := parseSignals("", []string{
		"acos=0.82",
		"clicks=250",
		"paused=true",
		"match_type=broad",
	})
	require.NoError(t, err)

	assert.Equal(t, models.Num(0.82), signals["acos"])
	assert.Equal(t, models.Num(250), signals["clicks"])
	assert.Equal(t, models.Bool(true), signals["paused"])
	assert.Equal(t, models.Str("broad"), signals["match_type"])
}

func TestParseSignalsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")
	doc := `{"acos": 0.82, "clicks": 250, "paused": true, "match_type": "broad"}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	signals, err := parseSignals(path, nil)
	require.NoError(t, err)

	assert.Len(t, signals, 4)
	assert.Equal(t, models.Num(0.82), signals["acos"])
	assert.Equal(t, models.Str("broad"), signals["match_type"])
}

func TestParseSignalsFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"acos": 0.82}`), 0o600))

	signals, err := parseSignals(path, []string{"acos=0.55"})
	require.NoError(t, err)
	assert.Equal(t, models.Num(0.55), signals["acos"])
}

func TestParseSignalsInvalidFlag(t *testing.T) {
	_, err := parseSignals("", []string{"no-equals-sign"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected name=value")

	_, err = parseSignals("", []string{"=0.5"})
	assert.Error(t, err)
}

func TestParseSignalsMissingFile(t *testing.T) {
	_, err := parseSignals(filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "unix timestamp",
			value: "1756000000",
			want:  time.Unix(1756000000, 0).UTC(),
		},
		{
			name:  "rfc3339",
			value: "2026-08-20T12:00:00Z",
			want:  time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339 with offset normalizes to utc",
			value: "2026-08-20T21:00:00+09:00",
			want:  time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		},
		{
			name:    "negative unix",
			value:   "-100",
			wantErr: true,
		},
		{
			name:    "empty",
			value:   "",
			wantErr: true,
		},
		{
			name:    "garbage",
			value:   "not a date at all xyz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.value, "since")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseTimeHumanReadable(t *testing.T) {
	got, err := parseTime("7 days ago", "since")
	require.NoError(t, err)

	assert.False(t, got.IsZero())
	assert.True(t, got.Before(time.Now()), "a relative past date must be in the past")
}
