package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracingProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "disabled is a no-op provider",
			cfg:  Config{Enabled: false},
		},
		{
			name: "insecure connection",
			cfg:  Config{Enabled: true, Endpoint: "localhost:4317"},
		},
		{
			name: "tls with insecure skip verify",
			cfg:  Config{Enabled: true, Endpoint: "localhost:4317", TLSInsecure: true},
		},
		{
			name: "tls with missing ca certificate",
			cfg:  Config{Enabled: true, Endpoint: "localhost:4317", TLSCAPath: "/no/such/ca.crt"},
			// CA file cannot be loaded
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewTracingProvider(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, provider)
			assert.Equal(t, tt.cfg.Enabled, provider.enabled)
		})
	}
}

func TestDisabledProviderStop(t *testing.T) {
	provider, err := NewTracingProvider(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, provider.Stop(context.Background()))
}
