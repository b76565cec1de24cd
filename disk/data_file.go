package disk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/wire"
)

// dataFile holds every sector of the cache.
//
// Chains are never reclaimed: a rewrite that shrinks a container leaves the
// tail of its old chain orphaned, and growth always appends at the end of
// the file. Compaction is left to external tools.
type dataFile struct {
	f      *os.File
	size   int64
	logger *slog.Logger
}

func openDataFile(path string, flag int, perm os.FileMode, logger *slog.Logger) (*dataFile, error) {
	f, err := os.OpenFile(path, flag, perm) //nolint:gosec // path is built from the store directory
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &dataFile{f: f, size: info.Size(), logger: logger}, nil
}

// nextFreeSector returns the first sector number past the end of the file.
func (d *dataFile) nextFreeSector() (uint32, error) {
	n := (d.size + SectorSize - 1) / SectorSize
	if n > wire.MaxMedium {
		return 0, fmt.Errorf("%w: data file holds %d sectors", js5type.ErrSizeOverflow, n)
	}
	return uint32(n), nil //nolint:gosec // bounded above
}

// readSector reads the header and up to n payload bytes of sector.
func (d *dataFile) readSector(sector, containerID uint32, n int) (*Sector, error) {
	off := int64(sector) * SectorSize
	buf := make([]byte, headerSize(containerID)+n)
	if off+int64(len(buf)) > d.size {
		return nil, fmt.Errorf("%w: sector %d extends past end of data file", js5type.ErrCorruption, sector)
	}
	if _, err := d.f.ReadAt(buf, off); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: sector %d truncated", js5type.ErrCorruption, sector)
		}
		return nil, fmt.Errorf("read sector %d: %w", sector, err)
	}
	return DecodeSector(containerID, buf)
}

// Read collects the chain described by e.
func (d *dataFile) Read(indexFileID uint8, containerID uint32, e IndexEntry) ([]byte, error) {
	out := make([]byte, 0, e.Size)
	chunk := dataSize(containerID)
	sector := e.Sector
	for position := 0; len(out) < int(e.Size); position++ {
		if position > 0 && sector == 0 {
			return nil, fmt.Errorf("%w: index %d container %d chain ends after %d of %d bytes",
				js5type.ErrCorruption, indexFileID, containerID, len(out), e.Size)
		}
		n := min(int(e.Size)-len(out), chunk)
		s, err := d.readSector(sector, containerID, n)
		if err != nil {
			return nil, err
		}
		if err := s.validate(sector, indexFileID, containerID, uint16(position)); err != nil { //nolint:gosec // positions wrap like the on-disk field
			return nil, err
		}
		out = append(out, s.Data...)
		sector = s.Next
	}
	return out, nil
}

// Write stores data as the chain of containerID starting at first.
//
// With overwrite set, the existing chain is followed and each sector's header
// is validated before it is replaced; a sector owned by anything else yields
// a *SectorError before it is touched. Once the old chain ends, or without
// overwrite, new sectors are appended at the end of the file.
func (d *dataFile) Write(indexFileID uint8, containerID uint32, first uint32, data []byte, overwrite bool) error {
	chunk := dataSize(containerID)
	sector := first
	for position, start := 0, 0; start < len(data); position, start = position+1, start+chunk {
		end := min(start+chunk, len(data))
		last := end == len(data)

		var next uint32
		if overwrite {
			if int64(sector)*SectorSize >= d.size {
				overwrite = false
			} else {
				s, err := d.readSector(sector, containerID, 0)
				if err != nil {
					return err
				}
				if err := s.validate(sector, indexFileID, containerID, uint16(position)); err != nil { //nolint:gosec // positions wrap like the on-disk field
					return err
				}
				next = s.Next
			}
		}
		if !last && (next == 0 || next == sector) {
			free, err := d.nextFreeSector()
			if err != nil {
				return err
			}
			next = free
			if next <= sector {
				next = sector + 1
			}
			if next > wire.MaxMedium {
				return fmt.Errorf("%w: sector %d", js5type.ErrSizeOverflow, next)
			}
		}
		if last {
			next = 0
		}

		s := Sector{
			SectorHeader: SectorHeader{
				ContainerID: containerID,
				Position:    uint16(position), //nolint:gosec // positions wrap like the on-disk field
				Next:        next,
				IndexFileID: indexFileID,
			},
			Data: data[start:end],
		}
		off := int64(sector) * SectorSize
		b := s.Encode()
		if _, err := d.f.WriteAt(b, off); err != nil {
			return fmt.Errorf("write sector %d: %w", sector, err)
		}
		d.size = max(d.size, off+int64(len(b)))
		d.logger.Debug("wrote sector", "index", indexFileID, "container", containerID, "sector", sector, "position", position, "next", next)
		sector = next
	}
	return nil
}

func (d *dataFile) Close() error {
	return d.f.Close()
}
