// Package disk implements the sector-allocated cache store: one data file of
// 520-byte sectors and one index file per archive, plus the master index.
//
// Directory layout:
//
//	main_file_cache.dat2     sectors
//	main_file_cache.idx0..N  per-archive index files, contiguous from 0
//	main_file_cache.idx255   master index holding archive settings
//
// A Store is meant for a single writer. It performs no locking.
package disk

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/wire"
)

const (
	// MasterIndex is the index file id holding archive settings.
	MasterIndex uint8 = 255

	// MaxArchives is the number of archive ids below MasterIndex.
	MaxArchives = int(MasterIndex)

	// MaxContainerSize is the largest container an index entry can describe.
	MaxContainerSize = wire.MaxMedium

	// DataFileName is the name of the sector file.
	DataFileName = "main_file_cache.dat2"

	indexFilePrefix = "main_file_cache.idx"
)

// IndexFileName returns the file name of index file id.
func IndexFileName(id uint8) string {
	return fmt.Sprintf("%s%d", indexFilePrefix, id)
}

// Store reads and writes containers addressed by index id and container id.
type Store struct {
	dir          string
	readOnly     bool
	dirPerm      os.FileMode
	filePerm     os.FileMode
	data         *dataFile
	indexes      map[uint8]*indexFile
	archiveCount int
	logger       *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Open opens the store rooted at dir, creating it unless read-only.
//
// Archive index files are probed from idx0 upward; the first missing one
// sets ArchiveCount. Every file is held open until Close.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store dir is empty")
	}
	s := &Store{
		dir:      dir,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
		indexes:  make(map[uint8]*indexFile),
	}
	for _, opt := range opts {
		opt(s)
	}

	flag := os.O_RDWR | os.O_CREATE
	if s.readOnly {
		flag = os.O_RDONLY
	} else if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, err
	}

	data, err := openDataFile(filepath.Join(dir, DataFileName), flag, s.filePerm, s.log())
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	s.data = data

	for id := range MaxArchives {
		path := filepath.Join(dir, IndexFileName(uint8(id)))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		idx, err := openIndexFile(uint8(id), path, flag&^os.O_CREATE, s.filePerm)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open index %d: %w", id, err), s.Close())
		}
		s.indexes[uint8(id)] = idx
		s.archiveCount++
	}

	masterPath := filepath.Join(dir, IndexFileName(MasterIndex))
	master, err := openIndexFile(MasterIndex, masterPath, flag, s.filePerm)
	switch {
	case err == nil:
		s.indexes[MasterIndex] = master
	case s.readOnly && errors.Is(err, os.ErrNotExist):
		// A read-only cache without settings still serves raw containers.
	default:
		return nil, errors.Join(fmt.Errorf("open master index: %w", err), s.Close())
	}

	s.log().Debug("opened store", "dir", dir, "archives", s.archiveCount, "read_only", s.readOnly, "data_size", s.data.size)
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// ReadOnly reports whether the store rejects writes.
func (s *Store) ReadOnly() bool { return s.readOnly }

// ArchiveCount returns the number of archive index files. Writing to index
// id ArchiveCount creates the next archive.
func (s *Store) ArchiveCount() int { return s.archiveCount }

// index returns the open index file for id.
func (s *Store) index(id uint8) (*indexFile, error) {
	idx, ok := s.indexes[id]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", js5type.ErrNotFound, id)
	}
	return idx, nil
}

// createArchive creates the index file for the next archive id.
func (s *Store) createArchive(id uint8) (*indexFile, error) {
	path := filepath.Join(s.dir, IndexFileName(id))
	idx, err := openIndexFile(id, path, os.O_RDWR|os.O_CREATE, s.filePerm)
	if err != nil {
		return nil, fmt.Errorf("create index %d: %w", id, err)
	}
	s.indexes[id] = idx
	s.archiveCount++
	s.log().Info("created archive", "archive", id)
	return idx, nil
}

// Read returns the container stored at (indexID, containerID). A removed or
// empty entry reads as an empty slice.
func (s *Store) Read(indexID uint8, containerID uint32) ([]byte, error) {
	idx, err := s.index(indexID)
	if err != nil {
		return nil, err
	}
	entry, err := idx.Read(containerID)
	if err != nil {
		return nil, err
	}
	if entry.Size == 0 {
		return []byte{}, nil
	}
	data, err := s.data.Read(indexID, containerID, entry)
	if err != nil {
		return nil, fmt.Errorf("read index %d container %d: %w", indexID, containerID, err)
	}
	return data, nil
}

// Write stores data at (indexID, containerID).
//
// An existing chain is rewritten in place; if it turns out to be damaged or
// shared, the container is written to a fresh chain at the end of the file
// instead. A zero-size entry has no chain, so writing over it appends.
// Writing to index id ArchiveCount creates that archive.
func (s *Store) Write(indexID uint8, containerID uint32, data []byte) error {
	if s.readOnly {
		return js5type.ErrReadOnly
	}
	if len(data) > MaxContainerSize {
		return fmt.Errorf("%w: container of %d bytes exceeds %d", js5type.ErrSizeOverflow, len(data), MaxContainerSize)
	}

	idx, ok := s.indexes[indexID]
	if !ok {
		if indexID == MasterIndex || int(indexID) != s.archiveCount {
			return fmt.Errorf("%w: index %d (next archive is %d)", js5type.ErrNotFound, indexID, s.archiveCount)
		}
		var err error
		if idx, err = s.createArchive(indexID); err != nil {
			return err
		}
	}

	overwrite, err := idx.Contains(containerID)
	if err != nil {
		return err
	}
	var first uint32
	if overwrite {
		entry, err := idx.Read(containerID)
		if err != nil {
			return err
		}
		first = entry.Sector
	} else if first, err = s.data.nextFreeSector(); err != nil {
		return err
	}

	size := uint32(len(data)) //nolint:gosec // bounded by MaxContainerSize
	if err := idx.Write(containerID, IndexEntry{Size: size, Sector: first}); err != nil {
		return err
	}
	err = s.data.Write(indexID, containerID, first, data, overwrite)
	if overwrite && errors.Is(err, js5type.ErrCorruption) {
		s.log().Warn("existing chain unusable, appending", "index", indexID, "container", containerID, "sector", first, "error", err)
		if first, err = s.data.nextFreeSector(); err != nil {
			return err
		}
		if err := idx.Write(containerID, IndexEntry{Size: size, Sector: first}); err != nil {
			return err
		}
		err = s.data.Write(indexID, containerID, first, data, false)
	}
	if err != nil {
		return fmt.Errorf("write index %d container %d: %w", indexID, containerID, err)
	}
	return nil
}

// Remove clears the index entry of (indexID, containerID). The sectors stay
// in the data file.
func (s *Store) Remove(indexID uint8, containerID uint32) error {
	if s.readOnly {
		return js5type.ErrReadOnly
	}
	idx, err := s.index(indexID)
	if err != nil {
		return err
	}
	return idx.Remove(containerID)
}

// Exists reports whether (indexID, containerID) has an entry with a non-zero size.
func (s *Store) Exists(indexID uint8, containerID uint32) (bool, error) {
	idx, ok := s.indexes[indexID]
	if !ok {
		return false, nil
	}
	return idx.Contains(containerID)
}

// Capacity returns the number of entry slots in index file indexID.
func (s *Store) Capacity(indexID uint8) (int, error) {
	idx, err := s.index(indexID)
	if err != nil {
		return 0, err
	}
	return idx.Capacity(), nil
}

// List returns the container ids with non-zero sizes in index file indexID.
func (s *Store) List(indexID uint8) ([]uint32, error) {
	idx, err := s.index(indexID)
	if err != nil {
		return nil, err
	}
	return idx.List()
}

// Close closes the data file and every index file.
func (s *Store) Close() error {
	var errs []error
	if s.data != nil {
		errs = append(errs, s.data.Close())
		s.data = nil
	}
	for _, id := range slices.Sorted(maps.Keys(s.indexes)) {
		errs = append(errs, s.indexes[id].Close())
		delete(s.indexes, id)
	}
	return errors.Join(errs...)
}
