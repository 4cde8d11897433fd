package wards

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashward/hdsl/internal/diag"
	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/outcome"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	due    []model.Ward
	marked map[string]time.Time
	err    error
}

func (f *fakeStore) DueWards(_ context.Context, at time.Time) ([]model.Ward, error) {
	var out []model.Ward
	for _, w := range f.due {
		if !w.Due.After(at) {
			out = append(out, w)
		}
	}
	return out, f.err
}

func (f *fakeStore) MarkWardRun(_ context.Context, path string, ran time.Time) error {
	if f.marked == nil {
		f.marked = map[string]time.Time{}
	}
	f.marked[path] = ran
	return nil
}

type fakeRunner struct {
	ran     []string
	results map[string]outcome.Set
}

func (f *fakeRunner) Run(_ context.Context, source string) outcome.Set {
	f.ran = append(f.ran, source)
	return f.results[source]
}

func checkSet(statuses ...model.CheckStatus) outcome.Set {
	o := outcome.Outcome{Statement: "check"}
	for _, s := range statuses {
		o.Rows = append(o.Rows, outcome.Row{"status": string(s)})
	}
	return outcome.Succeeded([]outcome.Outcome{o})
}

func newScheduler(st Store, r Runner) *Scheduler {
	return New(st, r, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return now },
	})
}

func TestRunDue(t *testing.T) {
	st := &fakeStore{due: []model.Ward{
		{Path: "/a", Statement: "check within '/a';", Due: now.Add(-time.Hour)},
		{Path: "/b", Statement: "check within '/b';", Due: now},
		{Path: "/c", Statement: "check within '/c';", Due: now.Add(time.Minute)},
		{Path: "/d", Statement: "check within '/d';", Due: now.Add(-time.Minute)},
	}}
	runner := &fakeRunner{results: map[string]outcome.Set{
		"check within '/a';": checkSet(model.CheckOK, model.CheckOK),
		"check within '/b';": checkSet(model.CheckOK, model.CheckModified, model.CheckMissing),
		"check within '/d';": outcome.Failed([]diag.Diagnostic{diag.New(1, 1, "boom")}),
	}}

	reports, err := newScheduler(st, runner).RunDue(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.True(t, reports[0].OK())
	assert.Equal(t, 2, reports[1].Failed)
	assert.False(t, reports[1].OK())
	assert.False(t, reports[2].OK())

	assert.NotContains(t, runner.ran, "check within '/c';")
	assert.Equal(t, map[string]time.Time{"/a": now, "/b": now, "/d": now}, st.marked)
}

func TestRunDueStoreError(t *testing.T) {
	st := &fakeStore{err: errors.New("locked")}
	_, err := newScheduler(st, &fakeRunner{}).RunDue(context.Background())
	assert.ErrorContains(t, err, "locked")
}

func TestStartStopsOnCancel(t *testing.T) {
	st := &fakeStore{due: []model.Ward{{Path: "/a", Statement: "s", Due: now}}}
	runner := &fakeRunner{results: map[string]outcome.Set{"s": checkSet(model.CheckOK)}}
	s := newScheduler(st, runner)

	ctx, cancel := context.WithCancel(context.Background())
	var got []Report
	err := s.Start(ctx, func(r []Report) {
		got = r
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1)
	assert.Equal(t, "/a", got[0].Ward.Path)
}
