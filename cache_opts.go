package js5

import (
	"log/slog"

	"github.com/meigma/js5/disk"
)

// Option configures a Cache.
type Option func(*Cache)

// WithReadOnly opens the cache files read-only. Writes then fail with
// ErrReadOnly, and the sector file must already exist.
func WithReadOnly(readOnly bool) Option {
	return func(c *Cache) {
		c.readOnly = readOnly
	}
}

// WithLogger sets the logger for the cache, its store and its archives.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithArchiveOptions sets options applied to every archive the cache opens.
func WithArchiveOptions(opts ...ArchiveOption) Option {
	return func(c *Cache) {
		c.archiveOpts = append(c.archiveOpts, opts...)
	}
}

// WithDiskOptions passes options through to the underlying disk store.
func WithDiskOptions(opts ...disk.Option) Option {
	return func(c *Cache) {
		c.diskOpts = append(c.diskOpts, opts...)
	}
}
