package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hashward/hdsl/internal/config"
	"github.com/hashward/hdsl/internal/store"
	"github.com/hashward/hdsl/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and database",
	Long: `Writes a commented default config file (unless one exists) and creates
the database with its schema.

The config file goes to --config, $HDSL_CONFIG, or
~/.config/hdsl/config.toml. The database goes to --db or the database
setting, by default ~/.local/share/hdsl/hdsl.db.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := config.CreateDefault(resolvedConfigPath)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		dbPath, err := getConfig().DatabasePath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		version, err := st.SchemaVersion()
		st.Close()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isStructuredOutput() {
			outputSuccess(map[string]any{
				"config_path":    resolvedConfigPath,
				"config_created": created,
				"database":       dbPath,
				"schema_version": version,
			}, nil)
			return nil
		}

		out := cmd.OutOrStdout()
		if created {
			fmt.Fprintln(out, ui.Successf("created config %s", ui.FilePath(resolvedConfigPath)))
		} else {
			fmt.Fprintln(out, ui.Infof("config %s already exists", ui.FilePath(resolvedConfigPath)))
		}
		fmt.Fprintln(out, ui.Successf("database %s (schema v%d)", ui.FilePath(dbPath), version))
		fmt.Fprintln(out, ui.Hint(`Next: hdsl exec -e "scan '/path/to/files';"`))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
