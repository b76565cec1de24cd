package js5

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/meigma/js5/disk"
)

// Cache is an open cache directory: a disk store plus the archives opened
// through it.
//
// A Cache is not safe for concurrent use.
type Cache struct {
	store       *disk.Store
	archives    map[uint8]*Archive
	readOnly    bool
	archiveOpts []ArchiveOption
	diskOpts    []disk.Option
	logger      *slog.Logger
	closed      bool
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Open opens the cache in dir, creating it unless read-only.
func Open(dir string, opts ...Option) (*Cache, error) {
	c := &Cache{archives: make(map[uint8]*Archive)}
	for _, opt := range opts {
		opt(c)
	}

	diskOpts := []disk.Option{disk.WithReadOnly(c.readOnly), disk.WithLogger(c.logger)}
	store, err := disk.Open(dir, append(diskOpts, c.diskOpts...)...)
	if err != nil {
		return nil, err
	}
	c.store = store
	c.log().Debug("opened cache", "dir", dir, "archives", store.ArchiveCount(), "read_only", c.readOnly)
	return c, nil
}

// Store returns the underlying disk store.
func (c *Cache) Store() *disk.Store { return c.store }

// ArchiveCount returns the number of archives in the cache.
func (c *Cache) ArchiveCount() int { return c.store.ArchiveCount() }

// Archive returns archive id, opening it on first use.
//
// id may equal ArchiveCount() to start a new archive.
func (c *Cache) Archive(id uint8) (*Archive, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if a, ok := c.archives[id]; ok && !a.closed {
		return a, nil
	}
	opts := append([]ArchiveOption{WithArchiveLogger(c.logger)}, c.archiveOpts...)
	a, err := OpenArchive(c.store, id, opts...)
	if err != nil {
		return nil, err
	}
	c.archives[id] = a
	return a, nil
}

// CreateArchive starts the next archive. Its index file is created by the
// first group written to it.
func (c *Cache) CreateArchive() (*Archive, error) {
	n := c.store.ArchiveCount()
	if n >= disk.MaxArchives {
		return nil, fmt.Errorf("cache already holds %d archives", n)
	}
	return c.Archive(uint8(n)) //nolint:gosec // bounded by MaxArchives
}

// Close commits every open archive in ascending id order, then closes the
// store. If any archive fails to commit, the errors are returned joined and
// the cache stays open so Close can be retried.
func (c *Cache) Close() error {
	if c.closed {
		return nil
	}

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(c.archives)) {
		if err := c.archives[id].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		// Archives that failed to commit stay open; the store is kept so
		// Close can be retried.
		return errors.Join(errs...)
	}
	c.closed = true
	return c.store.Close()
}
