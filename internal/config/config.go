// Package config handles hdsl configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"

	"github.com/hashward/hdsl/internal/atomicfile"
	"github.com/hashward/hdsl/internal/lexer"
)

// Config represents the hdsl configuration file.
type Config struct {
	// Database is the SQLite database path. "~" expands to the home directory.
	Database string `toml:"database"`

	Log         LogConfig         `toml:"log"`
	Output      OutputConfig      `toml:"output"`
	Permissions PermissionsConfig `toml:"permissions"`
	Scan        ScanConfig        `toml:"scan"`
	Watch       WatchConfig       `toml:"watch"`
	Wards       WardsConfig       `toml:"wards"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// Format is text or json.
	Format string `toml:"format"`
}

// OutputConfig controls how outcomes are printed.
type OutputConfig struct {
	// Format is table, json or yaml.
	Format string `toml:"format"`
	// Color is auto, always or never.
	Color string `toml:"color"`
	// Accent is an optional accent color: ANSI code ("0" to "255") or "#RRGGBB".
	Accent string `toml:"accent"`
	// CodeTheme sets the Glamour/Chroma theme for the rendered reference.
	CodeTheme string `toml:"code_theme"`
}

// PermissionsConfig restricts which tokens scripts may use.
type PermissionsConfig struct {
	// Allow lists token type names. Empty allows everything.
	Allow []string `toml:"allow"`
}

// ScanConfig tunes the scanner.
type ScanConfig struct {
	// Workers bounds concurrent hashing. Zero uses GOMAXPROCS.
	Workers int `toml:"workers"`
}

// WatchConfig tunes the watch daemon.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// WardsConfig tunes the ward scheduler.
type WardsConfig struct {
	PollSeconds int `toml:"poll_seconds"`
}

// Environment variables that override the file.
const (
	EnvDatabase  = "HDSL_DATABASE"
	EnvLogLevel  = "HDSL_LOG_LEVEL"
	EnvLogFormat = "HDSL_LOG_FORMAT"
	EnvConfig    = "HDSL_CONFIG"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "warn", Format: "text"},
		Output: OutputConfig{Format: "table", Color: "auto"},
		Watch:  WatchConfig{DebounceMS: 250},
		Wards:  WardsConfig{PollSeconds: 60},
	}
}

// Load loads the configuration from path, or the default location when
// path is empty. A missing file yields the defaults. Environment variables
// and a .env file in the working directory override file values.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	dotenv, err := readDotEnv(".env")
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFrom decodes a specific file over the defaults, without environment
// overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return env, nil
}

// ApplyEnv overrides file values with HDSL_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		c.Database = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = v
	}
}

// Validate rejects values outside their documented sets.
func (c *Config) Validate() error {
	checks := []struct {
		name, value string
		allowed     []string
	}{
		{"log.level", c.Log.Level, []string{"debug", "info", "warn", "error"}},
		{"log.format", c.Log.Format, []string{"text", "json"}},
		{"output.format", c.Output.Format, []string{"table", "json", "yaml"}},
		{"output.color", c.Output.Color, []string{"auto", "always", "never"}},
	}
	for _, chk := range checks {
		if !contains(chk.allowed, strings.ToLower(chk.value)) {
			return fmt.Errorf("%s must be one of %s, got %q", chk.name, strings.Join(chk.allowed, ", "), chk.value)
		}
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative")
	}
	if c.Wards.PollSeconds < 0 {
		return fmt.Errorf("wards.poll_seconds must not be negative")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DatabasePath returns the expanded database path, defaulting to
// ~/.local/share/hdsl/hdsl.db.
func (c *Config) DatabasePath() (string, error) {
	if strings.TrimSpace(c.Database) == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", fmt.Errorf("failed to find home directory: %w", err)
		}
		return filepath.Join(home, ".local", "share", "hdsl", "hdsl.db"), nil
	}
	p, err := homedir.Expand(c.Database)
	if err != nil {
		return "", fmt.Errorf("failed to expand database path: %w", err)
	}
	return filepath.Clean(p), nil
}

// Debounce returns the watch debounce delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// WardPoll returns how often the ward scheduler polls.
func (c *Config) WardPoll() time.Duration {
	return time.Duration(c.Wards.PollSeconds) * time.Second
}

// DefaultPath returns the default config file path.
// HDSL_CONFIG wins, then ~/.config/hdsl/config.toml (XDG style), then the
// OS-specific config directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	if xdgPath, err := XDGPath(); err == nil {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "hdsl", "config.toml")
	}
	return filepath.Join(".", "config.toml")
}

// XDGPath returns the XDG-style config path (~/.config/hdsl/config.toml).
func XDGPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hdsl", "config.toml"), nil
}

const defaultConfig = `# hdsl configuration

# SQLite database holding scanned records, bookmarks, wards and watches.
# database = "~/.local/share/hdsl/hdsl.db"

[log]
# debug, info, warn or error
level = "warn"
# text or json
format = "text"

[output]
# table, json or yaml
format = "table"
# auto, always or never
color = "auto"
# accent = "39"
# code_theme = "monokai"

[permissions]
# Token types scripts may use. Leave empty to allow everything.
# allow = ["find", "filesystem", "where", "columns", "columnref", "string", "wholenumber"]

[scan]
# Concurrent hashing workers; 0 uses every CPU.
workers = 0

[watch]
debounce_ms = 250

[wards]
poll_seconds = 60
`

// CreateDefault writes a commented default config to path if no file
// exists there, and returns whether it wrote one.
func CreateDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

// AllowList builds the token allow-list, or nil when every token is allowed.
func (c *Config) AllowList() (*lexer.AllowList, error) {
	if len(c.Permissions.Allow) == 0 {
		return nil, nil
	}
	return lexer.NewAllowList(c.Permissions.Allow)
}
