// Package atomicfile replaces files without exposing partial writes.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteFile writes data to path on the OS filesystem atomically.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return WriteFileFs(afero.NewOsFs(), path, data, perm)
}

// WriteFileFs writes data to a temporary file next to path and renames it
// into place.
//
// If perm is 0 the existing file's mode is kept, falling back to 0644.
func WriteFileFs(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	if perm == 0 {
		if st, err := fs.Stat(path); err == nil {
			perm = st.Mode().Perm()
		} else {
			perm = 0o644
		}
	}

	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	// Some filesystems cannot chmod; the content is what matters.
	_ = fs.Chmod(tmpPath, perm)

	// Renaming over an existing file fails on Windows.
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(path)
		if err2 := fs.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename temp file: %w", err)
		}
	}

	committed = true
	return nil
}
