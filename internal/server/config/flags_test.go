package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:8081", "-r", "127.0.0.1:50052", "-d", "memory", "-s", "secret",
				"-e", "test", "-m", "access_code", "-t", "30", "-v", "12", "-k", "gk", "-l", "zap",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "eu-west-1", "-x", "http://endpoint",
				"-unrelated", "value",
			},
			expected: &Config{
				EndpointAddrHTTP:      "127.0.0.1:8081",
				EndpointAddrGRPC:      "127.0.0.1:50052",
				DatabaseDSN:           "memory",
				SecretKey:             "secret",
				Environment:           "test",
				AuthMode:              "access_code",
				TurnTimeout:           30 * time.Second,
				TokenValidityDuration: 12 * time.Hour,
				GeminiAPIKey:          "gk",
				LogBackend:            "zap",
				S3RootUser:            "user",
				S3RootPassword:        "password",
				S3Bucket:              "bucket",
				S3Region:              "eu-west-1",
				S3BaseEndpoint:        "http://endpoint",
			},
		},
		{
			name: "access code provisioning",
			args: []string{"cmd", "-m", "access_code", "-create-code", "ops@example.com", "-code-name", "Ops", "-code-label=launch"},
			expected: &Config{
				AuthMode:        "access_code",
				CreateCodeEmail: "ops@example.com",
				CreateCodeName:  "Ops",
				CreateCodeLabel: "launch",
			},
		},
		{
			name:        "non-numeric timeout",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
