package playbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleVersion(t *testing.T) {
	obsID, version, err := ParseRuleVersion("ACOS_TOO_HIGH@1.3.0")
	require.NoError(t, err)
	assert.Equal(t, "ACOS_TOO_HIGH", obsID)
	assert.Equal(t, "1.3.0", version.String())

	for _, bad := range []string{"", "ACOS_TOO_HIGH", "@1.0.0", "ACOS_TOO_HIGH@", "ACOS_TOO_HIGH@not-a-version"} {
		_, _, err := ParseRuleVersion(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestNewerRuleVersion(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		candidate string
		want      bool
	}{
		{
			name:      "strictly newer",
			current:   "ACOS_TOO_HIGH@1.2.0",
			candidate: "ACOS_TOO_HIGH@1.3.0",
			want:      true,
		},
		{
			name:      "same version",
			current:   "ACOS_TOO_HIGH@1.2.0",
			candidate: "ACOS_TOO_HIGH@1.2.0",
			want:      false,
		},
		{
			name:      "older",
			current:   "ACOS_TOO_HIGH@1.2.0",
			candidate: "ACOS_TOO_HIGH@1.1.9",
			want:      false,
		},
		{
			name:      "different observation never supersedes",
			current:   "ACOS_TOO_HIGH@1.0.0",
			candidate: "WASTED_SPEND_HIGH@9.9.9",
			want:      false,
		},
		{
			name:      "prerelease below release",
			current:   "ACOS_TOO_HIGH@1.3.0",
			candidate: "ACOS_TOO_HIGH@1.3.1-rc.1",
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewerRuleVersion(tt.current, tt.candidate))
		})
	}
}
