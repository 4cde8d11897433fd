// Package wards runs the check statements of wards that have come due.
package wards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/outcome"
)

// Store lists due wards and records their runs.
type Store interface {
	DueWards(ctx context.Context, now time.Time) ([]model.Ward, error)
	MarkWardRun(ctx context.Context, path string, ran time.Time) error
}

// Runner executes a ward's statement. *interp.Interpreter satisfies it.
type Runner interface {
	Run(ctx context.Context, source string) outcome.Set
}

// DefaultPoll is how often Start looks for due wards.
const DefaultPoll = time.Minute

// Report is the result of running one ward.
type Report struct {
	Ward model.Ward
	Set  outcome.Set
	// Failed counts checked files whose status was not ok.
	Failed int
}

// OK reports whether the statement ran and every file checked out.
func (r Report) OK() bool {
	return r.Set.OK() && r.Failed == 0
}

// Scheduler runs due wards against a Runner.
type Scheduler struct {
	store  Store
	runner Runner
	log    *slog.Logger
	now    func() time.Time
	poll   time.Duration
}

// Options configure a Scheduler.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	Poll   time.Duration
}

// New returns a Scheduler with defaults filled in.
func New(st Store, runner Runner, opts Options) *Scheduler {
	s := &Scheduler{store: st, runner: runner, log: opts.Logger, now: opts.Now, poll: opts.Poll}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "wards")
	if s.now == nil {
		s.now = time.Now
	}
	if s.poll <= 0 {
		s.poll = DefaultPoll
	}
	return s
}

// RunDue runs every ward due now, in due order, and advances each one's
// next due time whether or not its check passed.
func (s *Scheduler) RunDue(ctx context.Context) ([]Report, error) {
	now := s.now()
	due, err := s.store.DueWards(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due wards: %w", err)
	}

	reports := make([]Report, 0, len(due))
	for _, w := range due {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep := Report{Ward: w, Set: s.runner.Run(ctx, w.Statement)}
		rep.Failed = failures(rep.Set)

		switch {
		case !rep.Set.OK():
			s.log.Warn("ward statement failed", "path", w.Path, "diagnostics", len(rep.Set.Diagnostics),
				"first", rep.Set.Diagnostics[0].String())
		case rep.Failed > 0:
			s.log.Warn("ward found changed files", "path", w.Path, "failed", rep.Failed)
		default:
			s.log.Info("ward passed", "path", w.Path)
		}

		if err := s.store.MarkWardRun(ctx, w.Path, now); err != nil {
			return reports, fmt.Errorf("advance ward %s: %w", w.Path, err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func failures(set outcome.Set) int {
	n := 0
	for _, o := range set.Outcomes {
		for _, row := range o.Rows {
			if status, ok := row["status"].(string); ok && status != string(model.CheckOK) {
				n++
			}
		}
	}
	return n
}

// Start runs due wards every poll interval until ctx is cancelled. Each
// batch's reports go to onRun when it is non-nil.
func (s *Scheduler) Start(ctx context.Context, onRun func([]Report)) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		reports, err := s.RunDue(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("ward run failed", "error", err)
		}
		if onRun != nil && len(reports) > 0 {
			onRun(reports)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
