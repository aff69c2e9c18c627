package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buddyctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func Test_LoadConfig(t *testing.T) {
	path := writeConfig(t, `
arena:
  size: 64KiB
  check_invariants: true
log:
  level: debug
  format: json
input:
  encoding: windows-1252
metrics:
  addr: ":9090"
  shutdown_timeout: 2s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Size(65536), cfg.Arena.Size)
	assert.True(t, cfg.Arena.CheckInvariants)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "windows-1252", cfg.Input.Encoding)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, 2*time.Second, cfg.Metrics.ShutdownTimeout.Duration)
}

func Test_LoadConfig_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "arena:\n  size: 1024\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Size(1024), cfg.Arena.Size)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "utf-8", cfg.Input.Encoding)
	assert.Equal(t, 5*time.Second, cfg.Metrics.ShutdownTimeout.Duration)
}

func Test_LoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeConfig(t, "arena:\n  size: lots\n"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "arena:\n  size: 8GiB\n"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "metrics:\n  shutdown_timeout: soon\n"))
	require.Error(t, err)
}

func Test_Config_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero arena", func(c *Config) { c.Arena.Size = 0 }},
		{"non power of two", func(c *Config) { c.Arena.Size = 1000 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad encoding", func(c *Config) { c.Input.Encoding = "ebcdic" }},
		{"negative timeout", func(c *Config) { c.Metrics.ShutdownTimeout.Duration = -time.Second }},
	}
	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func Test_ParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{"65536", 65536, false},
		{"64KiB", 65536, false},
		{"1 MiB", 1 << 20, false},
		{"2GiB", 1 << 31, false},
		{"4GiB", 0, true},
		{"big", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
