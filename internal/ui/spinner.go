package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerTick = 80 * time.Millisecond

// Spinner draws a busy indicator with the elapsed time while a script runs.
type Spinner struct {
	out     io.Writer
	animate bool
	message string

	started bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewSpinner returns a spinner that draws to out. A spinner that does not
// animate writes nothing.
func NewSpinner(out io.Writer, animate bool, message string) *Spinner {
	return &Spinner{
		out:     out,
		animate: animate,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	if !s.animate || s.started {
		return
	}
	s.started = true
	go s.loop(time.Now())
}

func (s *Spinner) loop(started time.Time) {
	defer close(s.done)
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.stop:
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
			elapsed := time.Since(started).Truncate(time.Second)
			fmt.Fprintf(s.out, "\r%s %s", Bold.Render(spinnerFrames[frame%len(spinnerFrames)]),
				Muted.Render(fmt.Sprintf("%s %s", s.message, elapsed)))
		}
	}
}

// Stop clears the spinner line. Calling it again, or without Start, is a
// no-op.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		if s.started {
			<-s.done
		}
	})
}
