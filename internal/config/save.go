package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hashward/hdsl/internal/atomicfile"
)

type persistedConfig struct {
	Database    *string            `toml:"database,omitempty"`
	Log         *persistedLog      `toml:"log,omitempty"`
	Output      *persistedOutput   `toml:"output,omitempty"`
	Permissions *PermissionsConfig `toml:"permissions,omitempty"`
	Scan        *ScanConfig        `toml:"scan,omitempty"`
	Watch       *WatchConfig       `toml:"watch,omitempty"`
	Wards       *WardsConfig       `toml:"wards,omitempty"`
}

type persistedLog struct {
	Level  *string `toml:"level,omitempty"`
	Format *string `toml:"format,omitempty"`
}

type persistedOutput struct {
	Format    *string `toml:"format,omitempty"`
	Color     *string `toml:"color,omitempty"`
	Accent    *string `toml:"accent,omitempty"`
	CodeTheme *string `toml:"code_theme,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes the config to a specific path atomically. Empty values are
// omitted so that defaults keep applying to them.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = Default()
	}

	out := persistedConfig{Database: nonEmptyPtr(cfg.Database)}
	if lvl, fmtName := nonEmptyPtr(cfg.Log.Level), nonEmptyPtr(cfg.Log.Format); lvl != nil || fmtName != nil {
		out.Log = &persistedLog{Level: lvl, Format: fmtName}
	}
	o := persistedOutput{
		Format:    nonEmptyPtr(cfg.Output.Format),
		Color:     nonEmptyPtr(cfg.Output.Color),
		Accent:    nonEmptyPtr(cfg.Output.Accent),
		CodeTheme: nonEmptyPtr(cfg.Output.CodeTheme),
	}
	if o != (persistedOutput{}) {
		out.Output = &o
	}
	if len(cfg.Permissions.Allow) > 0 {
		out.Permissions = &cfg.Permissions
	}
	if cfg.Scan.Workers > 0 {
		out.Scan = &cfg.Scan
	}
	if cfg.Watch.DebounceMS > 0 {
		out.Watch = &cfg.Watch
	}
	if cfg.Wards.PollSeconds > 0 {
		out.Wards = &cfg.Wards
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
