package disk

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/wire"
)

// IndexEntrySize is the on-disk size of an index entry.
const IndexEntrySize = 6

// IndexEntry locates a container's chain in the data file.
type IndexEntry struct {
	// Size is the container length in bytes. Zero marks a removed entry.
	Size uint32

	// Sector is the number of the chain's first sector.
	Sector uint32
}

// IsZero reports whether e is an empty slot.
func (e IndexEntry) IsZero() bool {
	return e == IndexEntry{}
}

// Present reports whether e describes a stored container. A zero size is a
// tombstone whatever its sector.
func (e IndexEntry) Present() bool {
	return e.Size != 0
}

func (e IndexEntry) encode() []byte {
	b := make([]byte, IndexEntrySize)
	wire.PutMedium(b[0:3], e.Size)
	wire.PutMedium(b[3:6], e.Sector)
	return b
}

func decodeIndexEntry(b []byte) IndexEntry {
	return IndexEntry{Size: wire.Medium(b[0:3]), Sector: wire.Medium(b[3:6])}
}

// indexFile is a flat array of entries addressed by container id.
type indexFile struct {
	id   uint8
	f    *os.File
	size int64
}

func openIndexFile(id uint8, path string, flag int, perm os.FileMode) (*indexFile, error) {
	f, err := os.OpenFile(path, flag, perm) //nolint:gosec // path is built from the store directory
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &indexFile{id: id, f: f, size: info.Size()}, nil
}

// Capacity returns the number of entry slots the file holds.
func (x *indexFile) Capacity() int {
	return int(x.size / IndexEntrySize)
}

func entryOffset(containerID uint32) int64 {
	return int64(containerID) * IndexEntrySize
}

// Read returns the entry for containerID. Slots past the end of the file are ErrNotFound.
func (x *indexFile) Read(containerID uint32) (IndexEntry, error) {
	off := entryOffset(containerID)
	if off+IndexEntrySize > x.size {
		return IndexEntry{}, fmt.Errorf("%w: index %d container %d", js5type.ErrNotFound, x.id, containerID)
	}
	var b [IndexEntrySize]byte
	if _, err := x.f.ReadAt(b[:], off); err != nil {
		if errors.Is(err, io.EOF) {
			return IndexEntry{}, fmt.Errorf("%w: index %d container %d", js5type.ErrNotFound, x.id, containerID)
		}
		return IndexEntry{}, fmt.Errorf("read index %d entry %d: %w", x.id, containerID, err)
	}
	return decodeIndexEntry(b[:]), nil
}

// Contains reports whether containerID has an entry with a non-zero size.
func (x *indexFile) Contains(containerID uint32) (bool, error) {
	e, err := x.Read(containerID)
	if errors.Is(err, js5type.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Present(), nil
}

// Write stores e for containerID, growing the file as needed.
func (x *indexFile) Write(containerID uint32, e IndexEntry) error {
	if e.Size > wire.MaxMedium || e.Sector > wire.MaxMedium {
		return fmt.Errorf("%w: index entry %+v", js5type.ErrSizeOverflow, e)
	}
	off := entryOffset(containerID)
	if _, err := x.f.WriteAt(e.encode(), off); err != nil {
		return fmt.Errorf("write index %d entry %d: %w", x.id, containerID, err)
	}
	x.size = max(x.size, off+IndexEntrySize)
	return nil
}

// Remove zero-fills the slot for containerID. Slots past the end are left alone.
func (x *indexFile) Remove(containerID uint32) error {
	if entryOffset(containerID)+IndexEntrySize > x.size {
		return nil
	}
	return x.Write(containerID, IndexEntry{})
}

// List returns the container ids with non-zero sizes, in ascending order.
func (x *indexFile) List() ([]uint32, error) {
	buf := make([]byte, x.Capacity()*IndexEntrySize)
	if _, err := x.f.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read index %d: %w", x.id, err)
	}
	var ids []uint32
	for i := 0; i+IndexEntrySize <= len(buf); i += IndexEntrySize {
		if decodeIndexEntry(buf[i : i+IndexEntrySize]).Present() {
			ids = append(ids, uint32(i/IndexEntrySize)) //nolint:gosec // bounded by the file size
		}
	}
	return ids, nil
}

func (x *indexFile) Close() error {
	return x.f.Close()
}
