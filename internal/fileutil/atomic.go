// Package fileutil writes extracted files without exposing partial content.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const dirPerm = 0o750

// WriteAtomic writes data to a temp file next to target and renames it into
// place, creating parent directories as needed. On failure target is left
// untouched.
func WriteAtomic(target string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".js5-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func(err error) error {
		return errors.Join(err, os.Remove(tmpPath))
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return cleanup(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return cleanup(err)
	}
	return nil
}
