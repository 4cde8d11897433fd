package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/hashward/hdsl/internal/config"
	"github.com/hashward/hdsl/internal/ui"
)

var (
	configSetDatabase  string
	configSetLogLevel  string
	configSetLogFormat string
	configSetFormat    string
	configSetColor     string
	configSetAccent    string
	configSetCodeTheme string
	configSetAllow     []string
	configSetWorkers   int
	configSetDebounce  int
	configSetPoll      int
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults, the config file, environment
variables and flags are applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		dbPath, err := c.DatabasePath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if isStructuredOutput() {
			outputSuccess(map[string]any{
				"config_path": resolvedConfigPath,
				"database":    dbPath,
				"config":      c,
			}, nil)
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Hint("# "+resolvedConfigPath))
		fmt.Fprintln(out, ui.Hint("# database: "+dbPath))
		return toml.NewEncoder(out).Encode(c)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings in the config file",
	Long: `Change settings in the config file. Only the flags given are changed;
environment variables and command-line overrides are not written.

Examples:
  hdsl config set --database ~/hdsl/index.db
  hdsl config set --color never --format json
  hdsl config set --allow find,filesystem,where,columnref,string`,
	Args: cobra.NoArgs,
	RunE: runConfigSet,
}

func init() {
	f := configSetCmd.Flags()
	f.StringVar(&configSetDatabase, "database", "", "Database path")
	f.StringVar(&configSetLogLevel, "level", "", "Log level: debug, info, warn or error")
	f.StringVar(&configSetLogFormat, "log-format", "", "Log format: text or json")
	f.StringVar(&configSetFormat, "format", "", "Output format: table, json or yaml")
	f.StringVar(&configSetColor, "color", "", "Color: auto, always or never")
	f.StringVar(&configSetAccent, "accent", "", "Accent color: ANSI code or #RRGGBB")
	f.StringVar(&configSetCodeTheme, "code-theme", "", "Syntax theme for rendered docs")
	f.StringSliceVar(&configSetAllow, "allow-tokens", nil, "Token types scripts may use")
	f.IntVar(&configSetWorkers, "workers", 0, "Concurrent hashing workers")
	f.IntVar(&configSetDebounce, "debounce-ms", 0, "Watch debounce in milliseconds")
	f.IntVar(&configSetPoll, "poll-seconds", 0, "Ward poll interval in seconds")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	// Start from the file alone so env and flag overrides are not persisted.
	fileCfg := config.Default()
	if _, err := os.Stat(resolvedConfigPath); err == nil {
		loaded, err := config.LoadFrom(resolvedConfigPath)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		fileCfg = loaded
	}

	f := cmd.Flags()
	var changed []string
	setString := func(name string, dst *string, value string) {
		if f.Changed(name) {
			*dst = strings.TrimSpace(value)
			changed = append(changed, name)
		}
	}
	setInt := func(name string, dst *int, value int) {
		if f.Changed(name) {
			*dst = value
			changed = append(changed, name)
		}
	}
	setString("database", &fileCfg.Database, configSetDatabase)
	setString("level", &fileCfg.Log.Level, configSetLogLevel)
	setString("log-format", &fileCfg.Log.Format, configSetLogFormat)
	setString("format", &fileCfg.Output.Format, configSetFormat)
	setString("color", &fileCfg.Output.Color, configSetColor)
	setString("accent", &fileCfg.Output.Accent, configSetAccent)
	setString("code-theme", &fileCfg.Output.CodeTheme, configSetCodeTheme)
	setInt("workers", &fileCfg.Scan.Workers, configSetWorkers)
	setInt("debounce-ms", &fileCfg.Watch.DebounceMS, configSetDebounce)
	setInt("poll-seconds", &fileCfg.Wards.PollSeconds, configSetPoll)
	if f.Changed("allow-tokens") {
		fileCfg.Permissions.Allow = configSetAllow
		if _, err := fileCfg.AllowList(); err != nil {
			return handleError(ErrInvalidInput, err, "Run 'hdsl docs tokens' for token names")
		}
		changed = append(changed, "allow-tokens")
	}

	if len(changed) == 0 {
		return handleError(ErrMissingArgument, errors.New("no settings given"), "Run 'hdsl config set --help' for the settings")
	}
	if err := fileCfg.Validate(); err != nil {
		return handleError(ErrInvalidInput, err, "")
	}
	if err := config.SaveTo(resolvedConfigPath, fileCfg); err != nil {
		return handleError(ErrFileWriteError, err, "")
	}

	if isStructuredOutput() {
		outputSuccess(map[string]any{"config_path": resolvedConfigPath, "changed": changed}, nil)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Successf("updated %s in %s", strings.Join(changed, ", "), ui.FilePath(resolvedConfigPath)))
	return nil
}
