package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Second, cfg.Interval())
	assert.NotEmpty(t, cfg.DatabasePath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(c *Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.DatabasePath = "" }, wantErr: true},
		{name: "interval too small", mutate: func(c *Config) { c.IntervalMS = 50 }, wantErr: true},
		{name: "interval too large", mutate: func(c *Config) { c.IntervalMS = 120000 }, wantErr: true},
		{name: "interval at lower bound", mutate: func(c *Config) { c.IntervalMS = 100 }},
		{name: "zero ttl allowed", mutate: func(c *Config) { c.SessionCacheTTL = 0 }},
		{name: "zero error limit rejected", mutate: func(c *Config) { c.ErrorLimit = 0 }, wantErr: true},
		{name: "empty cwd allowed", mutate: func(c *Config) { c.Cwd = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultDatabasePath(t *testing.T) {
	path := DefaultDatabasePath()
	assert.Contains(t, path, "opencode")
	assert.Contains(t, path, "opencode.db")
}
