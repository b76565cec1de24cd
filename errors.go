package js5

import (
	"github.com/meigma/js5/disk"
	"github.com/meigma/js5/internal/js5type"
)

// Errors re-exported from js5type.
var (
	// ErrNotFound is returned when an archive, group, file or container does not exist.
	ErrNotFound = js5type.ErrNotFound

	// ErrCorruption is returned when stored data is inconsistent, such as a
	// sector chain that belongs to another container or a checksum mismatch.
	ErrCorruption = js5type.ErrCorruption

	// ErrSizeMismatch is returned when decompressed data differs from its declared length.
	ErrSizeMismatch = js5type.ErrSizeMismatch

	// ErrUnsupportedFormat is returned for unknown compression or settings formats.
	ErrUnsupportedFormat = js5type.ErrUnsupportedFormat

	// ErrReadOnly is returned when modifying a read-only cache.
	ErrReadOnly = js5type.ErrReadOnly

	// ErrSizeOverflow is returned when a value does not fit its encoded field.
	ErrSizeOverflow = js5type.ErrSizeOverflow

	// ErrClosed is returned when using an archive or cache after Close.
	ErrClosed = js5type.ErrClosed
)

// SectorError describes a sector whose header disagrees with the chain being
// walked. It unwraps to ErrCorruption.
type SectorError = disk.SectorError
