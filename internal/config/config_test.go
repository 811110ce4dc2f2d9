package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "NL", cfg.DomesticCountry)
	assert.Equal(t, "NUTS3:", cfg.RegionKeyPrefix)
	assert.Equal(t, ';', cfg.CSV.Rune())
	assert.Equal(t, 5000, cfg.Store.ChunkSize)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
input_dir: /data/in
domestic_country: BE
continue_on_error: false
csv:
  delimiter: tab
store:
  driver: sqlite3
  dsn: file:test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "BE", cfg.DomesticCountry)
	assert.False(t, cfg.ContinueOnError)
	assert.Equal(t, '\t', cfg.CSV.Rune())
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FREIGHT_STORE_CHUNK_SIZE", "250")
	t.Setenv("FREIGHT_LOG_LEVEL", "debug")
	t.Setenv("FREIGHT_CONTINUE_ON_ERROR", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Store.ChunkSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.ContinueOnError)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown driver", content: "store:\n  driver: mysql\n  dsn: x\n"},
		{name: "driver without dsn", content: "store:\n  driver: sqlite3\n"},
		{name: "lowercase country", content: "domestic_country: nl\n"},
		{name: "bad log level", content: "log_level: loud\n"},
		{name: "multi-character delimiter", content: "csv:\n  delimiter: ';;'\n"},
		{name: "malformed yaml", content: "input_dir: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
