package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/ui"
	"github.com/hashward/hdsl/internal/wards"
	"github.com/hashward/hdsl/internal/watcher"
)

var watchWithWards bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan watched paths as they change",
	Long: `Watch every non-passive watch path and rescan files as they change.

Watches are added with the 'watch' statement. Passive watches are recorded
but not monitored. Rapid changes are debounced (watch.debounce_ms) and
rescanned together.

With --wards, due wards also run every wards.poll_seconds.

Examples:
  hdsl exec -e "watch '~/photos';"
  hdsl watch
  hdsl watch --wards --log-level info`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchWithWards, "wards", false, "Also run due wards")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	watches, err := eng.store.Watches(ctx)
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}
	roots := watcher.Roots(watches)
	if len(roots) == 0 {
		return handleError(ErrWatchFailed, errors.New("no active watches"), `Add one with: hdsl exec -e "watch '/path';"`)
	}

	out := &lockedWriter{w: cmd.OutOrStdout()}
	w, err := watcher.New(watcher.Config{
		Roots:         roots,
		Scanner:       eng.scanner,
		DebounceDelay: getConfig().Debounce(),
		Logger:        getLogger(),
		OnScan: func(paths []string, summary model.ScanSummary, err error) {
			if err != nil {
				fmt.Fprintln(out, ui.Error(fmt.Sprintf("rescan of %d paths failed: %v", len(paths), err)))
				return
			}
			fmt.Fprintln(out, ui.Successf("rescanned %d paths: %d inserted, %d updated, %d deleted",
				len(paths), summary.Inserted, summary.Updated, summary.Deleted))
		},
	})
	if err != nil {
		return handleError(ErrWatchFailed, err, "")
	}

	if watchWithWards {
		sched := wards.New(eng.store, eng.interp, wards.Options{Logger: getLogger(), Poll: getConfig().WardPoll()})
		go func() {
			_ = sched.Start(ctx, func(reports []wards.Report) {
				printWardReports(out, reports)
			})
		}()
	}

	go func() {
		<-w.Ready()
		for _, root := range roots {
			fmt.Fprintln(out, ui.Infof("watching %s", ui.FilePath(root)))
		}
		fmt.Fprintln(out, ui.Hint("Press Ctrl+C to stop"))
	}()

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return handleError(ErrWatchFailed, err, "")
	}
	return nil
}
