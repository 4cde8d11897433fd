package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/hashward/hdsl/internal/diag"
	"github.com/hashward/hdsl/internal/outcome"
	"github.com/hashward/hdsl/internal/ui"
	"github.com/hashward/hdsl/internal/wards"
)

var wardsLoop bool

var wardsCmd = &cobra.Command{
	Use:   "wards",
	Short: "Run scheduled integrity checks",
	Long: `Wards are created with the 'ward' statement and re-run a check
statement for their path every interval. List them with:

  hdsl exec -e "find wards;"`,
}

var wardsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every ward that is due",
	Long: `Run each due ward's check statement in due order and advance its next
due time. With --loop, keep polling for due wards until interrupted.

Exits non-zero when a ward statement fails or finds a file that is not ok.`,
	Args: cobra.NoArgs,
	RunE: runWards,
}

func init() {
	wardsRunCmd.Flags().BoolVar(&wardsLoop, "loop", false, "Keep running due wards every poll interval")
	wardsCmd.AddCommand(wardsRunCmd)
	rootCmd.AddCommand(wardsCmd)
}

type wardReportView struct {
	Path        string            `json:"path" yaml:"path"`
	Statement   string            `json:"statement" yaml:"statement"`
	OK          bool              `json:"ok" yaml:"ok"`
	Failed      int               `json:"failed" yaml:"failed"`
	Outcomes    []outcome.Outcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func reportViews(reports []wards.Report) []wardReportView {
	views := make([]wardReportView, len(reports))
	for i, r := range reports {
		views[i] = wardReportView{
			Path:        r.Ward.Path,
			Statement:   r.Ward.Statement,
			OK:          r.OK(),
			Failed:      r.Failed,
			Outcomes:    r.Set.Outcomes,
			Diagnostics: r.Set.Diagnostics,
		}
	}
	return views
}

func runWards(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	sched := wards.New(eng.store, eng.interp, wards.Options{Logger: getLogger(), Poll: getConfig().WardPoll()})

	if wardsLoop {
		out := &lockedWriter{w: cmd.OutOrStdout()}
		err := sched.Start(cmd.Context(), func(reports []wards.Report) {
			printWardReports(out, reports)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	reports, err := sched.RunDue(cmd.Context())
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}

	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	if isStructuredOutput() {
		if failed > 0 {
			outputError(ErrWardFailed, fmt.Sprintf("%d of %d wards failed", failed, len(reports)), reportViews(reports), "")
			return errReported
		}
		outputSuccess(reportViews(reports), &Meta{Count: len(reports)})
		return nil
	}

	if len(reports) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Hint("no wards are due"))
		return nil
	}
	printWardReports(cmd.OutOrStdout(), reports)
	if failed > 0 {
		return errReported
	}
	return nil
}

func printWardReports(w io.Writer, reports []wards.Report) {
	display := ui.NewDisplayContext()
	for _, r := range reports {
		switch {
		case !r.Set.OK():
			fmt.Fprintln(w, ui.Error(fmt.Sprintf("%s: statement failed", ui.FilePath(r.Ward.Path))))
			fmt.Fprint(w, ui.RenderDiagnostics(r.Ward.Statement, r.Set.Diagnostics))
		case r.Failed > 0:
			fmt.Fprintln(w, ui.Error(fmt.Sprintf("%s %s", ui.FilePath(r.Ward.Path), ui.Count(r.Failed, "file changed", "files changed"))))
			for _, o := range r.Set.Outcomes {
				fmt.Fprint(w, ui.RenderOutcome(display, failingRows(o)))
			}
		default:
			fmt.Fprintln(w, ui.Success(ui.FilePath(r.Ward.Path)))
		}
	}
}

// failingRows keeps only the check rows that are not ok.
func failingRows(o outcome.Outcome) outcome.Outcome {
	rows := o.Rows[:0:0]
	for _, row := range o.Rows {
		if status, _ := row["status"].(string); status != "ok" {
			rows = append(rows, row)
		}
	}
	o.Rows = rows
	o.Total = len(rows)
	o.PageCount = 1
	return o
}

// lockedWriter serializes writes from the watcher and ward goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
