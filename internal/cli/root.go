// Package cli implements the command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hashward/hdsl/internal/config"
	"github.com/hashward/hdsl/internal/logging"
	"github.com/hashward/hdsl/internal/ui"
)

var (
	// Global flags
	configPath   string
	databaseFlag string
	allowFlag    []string
	logLevelFlag string

	// Resolved values
	resolvedConfigPath string
	cfg                *config.Config
	logger             *slog.Logger
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("reported")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hdsl",
	Short: "HDSL - a query language for a hashed filesystem index",
	Long: `hdsl scans directory trees into a SQLite index of paths, sizes,
attributes, timestamps and SHA-256 hashes, and runs HDSL scripts against it.

Scripts find and purge records, check files against their stored hashes,
bookmark directories, exclude paths from scans, and schedule wards that
re-check paths on an interval.

Examples:
  hdsl exec -e "scan '~/photos'; find '~/photos' where size > 1000000;"
  hdsl exec nightly.hdsl
  hdsl watch
  hdsl docs language`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI. Errors not already shown to the user are printed
// to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(rootCmd.ErrOrStderr(), ui.Error(err.Error()))
	}
	return err
}

func init() {
	// Assigned here rather than in the rootCmd literal to avoid an
	// initialization cycle (loadGlobalConfig reaches rootCmd via outputError).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "completion", "help", "version":
			return nil
		}
		return loadGlobalConfig()
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/hdsl/config.toml)")
	rootCmd.PersistentFlags().StringVar(&databaseFlag, "db", "", "Path to the SQLite database (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "Output in YAML format")
	rootCmd.PersistentFlags().StringSliceVar(&allowFlag, "allow", nil, "Token types scripts may use (overrides [permissions] allow)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

// loadGlobalConfig loads the config file, applies flag overrides and sets up
// logging and styling.
func loadGlobalConfig() error {
	resolvedConfigPath = configPath
	if strings.TrimSpace(resolvedConfigPath) == "" {
		resolvedConfigPath = config.DefaultPath()
	}

	loaded, err := config.Load(resolvedConfigPath)
	if err != nil {
		return handleError(ErrConfigInvalid, err, "Fix the config file or pass --config")
	}
	if databaseFlag != "" {
		loaded.Database = databaseFlag
	}
	if len(allowFlag) > 0 {
		loaded.Permissions.Allow = allowFlag
	}
	if logLevelFlag != "" {
		loaded.Log.Level = logLevelFlag
	}
	if jsonOutput {
		loaded.Output.Format = "json"
	} else if yamlOutput {
		loaded.Output.Format = "yaml"
	}
	if err := loaded.Validate(); err != nil {
		return handleError(ErrConfigInvalid, err, "")
	}
	cfg = loaded

	logger, err = logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return handleError(ErrConfigInvalid, err, "")
	}

	if !ui.ColorEnabled(cfg.Output.Color, os.Stdout) {
		ui.DisableColor()
		color.NoColor = true
	} else {
		if cfg.Output.Accent != "" {
			ui.ConfigureTheme(cfg.Output.Accent)
		}
		color.NoColor = false
	}
	ui.ConfigureMarkdownCodeTheme(cfg.Output.CodeTheme)
	return nil
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// getLogger returns the process logger.
func getLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
