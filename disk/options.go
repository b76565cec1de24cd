package disk

import (
	"log/slog"
	"os"
)

const (
	defaultDirPerm  = 0o750
	defaultFilePerm = 0o640
)

// Option configures a Store.
type Option func(*Store)

// WithReadOnly opens every file read-only. Write and Remove return ErrReadOnly,
// and the data file must already exist.
func WithReadOnly(readOnly bool) Option {
	return func(s *Store) {
		s.readOnly = readOnly
	}
}

// WithDirPerm sets the permissions used when creating the cache directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithFilePerm sets the permissions used when creating data and index files.
func WithFilePerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.filePerm = mode
	}
}

// WithLogger sets the logger for store operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}
