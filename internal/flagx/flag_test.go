package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-d", "postgres://db", "-x", "1"},
			allowed: []string{"-d"},
			want:    []string{"-d", "postgres://db"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=prod.json", "-a", ":8080"},
			allowed: []string{"--config"},
			want:    []string{"--config=prod.json"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag at end without value",
			args:    []string{"-s"},
			allowed: []string{"-s"},
			want:    []string{"-s"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "--config=alt.json"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "--config=alt.json"},
		},
		{
			name:    "repeated flag keeps order",
			args:    []string{"-m", "password", "-m", "access_code"},
			allowed: []string{"-m"},
			want:    []string{"-m", "password", "-m", "access_code"},
		},
		{
			name:    "empty input",
			args:    []string{},
			allowed: []string{"-a"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/gophchat.json", ConfigPath([]string{"-c", "/etc/gophchat.json", "-a", ":80"}))
	assert.Equal(t, "long.json", ConfigPath([]string{"-config", "long.json"}))
	assert.Equal(t, "second.json", ConfigPath([]string{"-c", "first.json", "-config", "second.json"}))
	assert.Empty(t, ConfigPath([]string{"-a", ":8080"}))
}
