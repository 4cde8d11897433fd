package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashward/hdsl/internal/atomicfile"
	"github.com/hashward/hdsl/internal/store"
)

// sink is an output stream that either passes through to the console or,
// when the stream was redirected with `set stdout|stderr`, collects the
// output and replaces the target file on Flush.
type sink struct {
	console io.Writer
	path    string
	buf     bytes.Buffer
}

// openSink resolves the redirection setting for key ("stdout" or "stderr").
func openSink(ctx context.Context, st *store.Store, key string, console io.Writer) (*sink, error) {
	path, err := st.Setting(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return &sink{console: console}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s redirection: %w", key, err)
	}
	return &sink{console: console, path: path}, nil
}

func (s *sink) Write(p []byte) (int, error) {
	if s.path == "" {
		return s.console.Write(p)
	}
	return s.buf.Write(p)
}

// Redirected reports whether output goes to a file.
func (s *sink) Redirected() bool {
	return s.path != ""
}

// Flush writes collected output to the redirect target.
func (s *sink) Flush() error {
	if s.path == "" {
		return nil
	}
	if err := atomicfile.WriteFile(s.path, s.buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write redirected output: %w", err)
	}
	return nil
}
