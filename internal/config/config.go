package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all compte configuration.
type Config struct {
	General    GeneralConfig           `toml:"general"`
	Cache      CacheConfig             `toml:"cache"`
	Server     ServerConfig            `toml:"server"`
	Appearance AppearanceConfig        `toml:"appearance"`
	Pricing    map[string]ModelPricing `toml:"pricing,omitempty"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	ClaudeDir   string `toml:"claude_dir,omitempty"`
	DefaultDays int    `toml:"default_days"`
}

// Cache backends.
const (
	CacheJSON   = "json"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

// CacheConfig selects where parsed queries are persisted between runs.
type CacheConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path,omitempty"`
}

// ServerConfig holds settings for `compte serve`.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	OpenBrowser     bool   `toml:"open_browser"`
	PollIntervalSec int    `toml:"poll_interval_sec"`
	StaticDir       string `toml:"static_dir,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays: 0,
		},
		Cache: CacheConfig{
			Backend: CacheJSON,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:3456",
			OpenBrowser: true,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "compte")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "compte")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "compte")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "compte")
}

// CachePath returns the cache file location for the configured backend.
func (c CacheConfig) CachePath() string {
	if c.Path != "" {
		return c.Path
	}
	if c.Backend == CacheSQLite {
		return filepath.Join(CacheDir(), "queries.db")
	}
	return filepath.Join(CacheDir(), "queries.json")
}

// ResolveClaudeDir returns the configured Claude data directory, defaulting to ~/.claude.
func (g GeneralConfig) ResolveClaudeDir() string {
	if g.ClaudeDir != "" {
		return g.ClaudeDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// PricingTable builds the effective pricing table with overrides applied.
func (c Config) PricingTable() *PricingTable {
	return DefaultPricingTable().WithOverrides(c.Pricing)
}

// Validate reports configuration values that cannot be honoured.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case CacheJSON, CacheSQLite, CacheNone, "":
	default:
		return fmt.Errorf("cache.backend %q: must be one of json, sqlite, none", c.Cache.Backend)
	}
	if c.Server.PollIntervalSec < 0 {
		return fmt.Errorf("server.poll_interval_sec must not be negative")
	}
	for tier := range c.Pricing {
		if _, ok := DefaultPricing[tier]; !ok {
			return fmt.Errorf("pricing.%s: unknown tier", tier)
		}
	}
	return nil
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads a config file at an explicit path.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to an explicit path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
