package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, StreamDashboard, cfg.Stream)
	assert.Equal(t, SourceDir, cfg.Source)
	assert.Equal(t, 10, cfg.BucketMinutes)
	assert.Equal(t, 10, cfg.GapMinutes)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/exports
stream: ai
output: json
bucket_minutes: 15
gap_minutes: 5
watch:
  debounce: 2s
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/tmp/exports", cfg.DataDir)
	assert.Equal(t, StreamAI, cfg.Stream)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, 15*time.Minute, cfg.BucketSize())
	assert.Equal(t, 5*time.Minute, cfg.GapThreshold())
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format, "unset fields keep defaults")
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DAYSTREAM_DATA_DIR", "/env/exports")
	t.Setenv("DAYSTREAM_DB", "/env/db.sqlite")
	t.Setenv("DAYSTREAM_TZ", "UTC")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/env/exports", cfg.DataDir)
	assert.Equal(t, "/env/db.sqlite", cfg.DBPath)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty fields are filled", func(c *Config) { *c = Config{} }, false},
		{"bad stream", func(c *Config) { c.Stream = "feed" }, true},
		{"bad source", func(c *Config) { c.Source = "s3" }, true},
		{"bad output", func(c *Config) { c.Output = "xml" }, true},
		{"bucket not dividing day", func(c *Config) { c.BucketMinutes = 7 }, true},
		{"bucket larger than day", func(c *Config) { c.BucketMinutes = 2880 }, true},
		{"negative gap", func(c *Config) { c.GapMinutes = -1 }, true},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }, true},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Base" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Stream = StreamAI
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StreamAI, loaded.Stream)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data"), ExpandPath("~/data"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.Equal(t, "rel/~path", ExpandPath("rel/~path"))
}
