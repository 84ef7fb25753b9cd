package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFrom_ParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[general]
claude_dir = "/data/claude"

[cache]
backend = "sqlite"

[server]
addr = "127.0.0.1:9000"
open_browser = false

[pricing.sonnet]
input_per_mtok = 2.5
output_per_mtok = 10
cache_write_per_mtok = 3
cache_read_per_mtok = 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/claude", cfg.General.ResolveClaudeDir())
	assert.Equal(t, CacheSQLite, cfg.Cache.Backend)
	assert.Equal(t, "queries.db", filepath.Base(cfg.Cache.CachePath()))
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.False(t, cfg.Server.OpenBrowser)
	assert.Equal(t, 2.5, cfg.PricingTable().Resolve("claude-sonnet-4").InputPerMTok)
	// untouched sections keep their defaults
	assert.Equal(t, "flexoki-dark", cfg.Appearance.Theme)
}

func TestLoadFrom_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad toml", "[general\n"},
		{"bad backend", "[cache]\nbackend = \"redis\"\n"},
		{"unknown tier", "[pricing.gpt]\ninput_per_mtok = 1\n"},
		{"negative poll", "[server]\npoll_interval_sec = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.General.ClaudeDir = "/tmp/claude"
	cfg.Appearance.Theme = "tokyo-night"

	require.NoError(t, SaveTo(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/claude", got.General.ClaudeDir)
	assert.Equal(t, "tokyo-night", got.Appearance.Theme)
}

func TestCachePath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "compte", "queries.json"), CacheConfig{Backend: CacheJSON}.CachePath())
	assert.Equal(t, "/x/y.json", CacheConfig{Path: "/x/y.json"}.CachePath())
}
