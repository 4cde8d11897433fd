package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hashward/hdsl/internal/outcome"
	"github.com/hashward/hdsl/internal/store"
	"github.com/hashward/hdsl/internal/ui"
)

var execScript string

var execCmd = &cobra.Command{
	Use:   "exec [file]",
	Short: "Run an HDSL script",
	Long: `Run an HDSL script from a file, from -e, or from stdin.

Statements run in order and stop at the first failure. Changes made by
statements before the failure are kept. Output goes to the console unless
the script or an earlier run redirected it with 'set stdout' or 'set stderr'.

Examples:
  hdsl exec -e "find '/data' where size > 1000000 order size desc;"
  hdsl exec nightly.hdsl
  echo "scan;" | hdsl exec -
  hdsl exec --json -e "check '/data';"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVarP(&execScript, "eval", "e", "", "Script text to run")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	source, err := readScript(cmd, execScript, args)
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	spinner := ui.NewSpinner(os.Stderr, !isStructuredOutput() && isatty.IsTerminal(os.Stderr.Fd()), "running")
	spinner.Start()
	start := time.Now()
	set := eng.interp.Run(cmd.Context(), source)
	spinner.Stop()

	return writeSet(cmd.Context(), cmd, eng.store, source, set, time.Since(start))
}

// readScript returns the -e text, the named file ("-" for stdin), or piped
// stdin.
func readScript(cmd *cobra.Command, inline string, args []string) (string, error) {
	if inline != "" {
		if len(args) > 0 {
			return "", handleError(ErrInvalidInput, fmt.Errorf("pass a script file or -e, not both"), "")
		}
		return inline, nil
	}
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			if os.IsNotExist(err) {
				return "", handleError(ErrFileNotFound, err, "")
			}
			return "", handleError(ErrFileReadError, err, "")
		}
		return string(data), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && len(args) == 0 && isatty.IsTerminal(f.Fd()) {
		return "", handleError(ErrMissingArgument, fmt.Errorf("no script given"), "Pass a file, -e 'script', or pipe a script on stdin")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", handleError(ErrFileReadError, fmt.Errorf("failed to read stdin: %w", err), "")
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", handleError(ErrMissingArgument, fmt.Errorf("script is empty"), "")
	}
	return string(data), nil
}

// writeSet prints a run's outcomes or diagnostics to the console or the
// redirect targets. A failed run returns errReported.
func writeSet(ctx context.Context, cmd *cobra.Command, st *store.Store, source string, set outcome.Set, elapsed time.Duration) error {
	stdout, err := openSink(ctx, st, "stdout", cmd.OutOrStdout())
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}
	stderr, err := openSink(ctx, st, "stderr", cmd.ErrOrStderr())
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}

	if isStructuredOutput() {
		resp := Response{OK: set.OK(), Data: set, Meta: &Meta{Count: len(set.Outcomes), QueryTimeMs: elapsed.Milliseconds()}}
		if !set.OK() {
			resp.Data = nil
			resp.Meta = nil
			resp.Error = &ErrorInfo{
				Code:    ErrScriptFailed,
				Message: set.Diagnostics[0].String(),
				Details: set.Diagnostics,
			}
		}
		if err := writeResponse(stdout, resp); err != nil {
			return err
		}
	} else {
		if stdout.Redirected() || stderr.Redirected() {
			ui.DisableColor()
		}
		display := ui.NewDisplayContextFor(os.Stdout)
		if stdout.Redirected() {
			display = ui.NewDisplayContextWithWidth(ui.DefaultTermWidth)
		}
		if set.OK() {
			fmt.Fprint(stdout, ui.RenderSet(display, source, set))
		} else {
			fmt.Fprint(stderr, ui.RenderDiagnostics(source, set.Diagnostics))
		}
	}

	if err := stdout.Flush(); err != nil {
		return handleError(ErrFileWriteError, err, "Run 'reset stdout;' to print to the console again")
	}
	if err := stderr.Flush(); err != nil {
		return handleError(ErrFileWriteError, err, "Run 'reset stderr;' to print to the console again")
	}
	if !set.OK() {
		return errReported
	}
	return nil
}
