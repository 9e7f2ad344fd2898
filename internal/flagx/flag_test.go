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
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.yaml", "-a", ":8080"},
			allowed: []string{"-c"},
			want:    []string{"-c", "conf.yaml"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-a", ":8080"},
			allowed: []string{"-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags and positionals ignored",
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
			args:    []string{"-d", "-t", "5"},
			allowed: []string{"-d", "-t"},
			want:    []string{"-d", "-t", "5"},
		},
		{
			name:    "several server flags kept in order",
			args:    []string{"-a", ":9090", "-c", "conf.json", "-d", "postgres://x", "--other", "v"},
			allowed: []string{"-a", "-d"},
			want:    []string{"-a", ":9090", "-d", "postgres://x"},
		},
		{
			name:    "empty args",
			args:    nil,
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

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "/etc/learnhub.yaml", ConfigFileFlag([]string{"-c", "/etc/learnhub.yaml"}))
	assert.Equal(t, "/etc/learnhub.json", ConfigFileFlag([]string{"-a", ":1", "-config", "/etc/learnhub.json"}))
	assert.Equal(t, "b.json", ConfigFileFlag([]string{"-c", "a.json", "-config=b.json"}))
	assert.Empty(t, ConfigFileFlag([]string{"-x", "1"}))
}
