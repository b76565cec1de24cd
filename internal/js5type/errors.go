package js5type

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrNotFound is returned when an index entry, archive, group or file does not exist.
	ErrNotFound = errors.New("js5: not found")

	// ErrCorruption is returned when on-disk data disagrees with what the caller expected,
	// such as a sector header naming a different container or chain position.
	ErrCorruption = errors.New("js5: corrupt data")

	// ErrSizeMismatch is returned when decompressed data differs from its declared length.
	ErrSizeMismatch = errors.New("js5: size mismatch")

	// ErrUnsupportedFormat is returned for unknown compression or settings format opcodes.
	ErrUnsupportedFormat = errors.New("js5: unsupported format")

	// ErrReadOnly is returned when writing to or removing from a read-only store.
	ErrReadOnly = errors.New("js5: store is read-only")

	// ErrSizeOverflow is returned when a length does not fit its on-disk field.
	ErrSizeOverflow = errors.New("js5: size overflow")

	// ErrClosed is returned when using an archive or cache after Close.
	ErrClosed = errors.New("js5: closed")
)
