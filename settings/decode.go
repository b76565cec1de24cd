package settings

import (
	"fmt"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/wire"
)

// Decode parses a settings record.
func Decode(b []byte) (*Settings, error) {
	r := wire.NewReader(b)
	format := Format(r.U8())
	switch format {
	case FormatUnversioned, FormatVersioned, FormatVersionedLarge:
	default:
		if r.Err() != nil {
			return nil, fmt.Errorf("%w: settings: %w", js5type.ErrCorruption, r.Err())
		}
		return nil, fmt.Errorf("%w: settings format %d", js5type.ErrUnsupportedFormat, uint8(format))
	}

	s := New()
	if format != FormatUnversioned {
		v := r.U32()
		s.Version = &v
	}
	flags := r.U8()

	count := func() uint32 {
		if format == FormatVersionedLarge {
			return r.LargeSmart()
		}
		return uint32(r.U16())
	}

	n := int(count())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: settings header: %w", js5type.ErrCorruption, err)
	}
	// Every group needs at least a crc and a version.
	if n > r.Remaining()/8 {
		return nil, fmt.Errorf("%w: settings declares %d groups in %d bytes", js5type.ErrCorruption, n, r.Remaining())
	}

	groups := make([]*Group, n)
	var id uint32
	for i := range groups {
		id += count()
		groups[i] = &Group{ID: id}
	}

	if flags&FlagNameHashes != 0 {
		for _, g := range groups {
			h := r.I32()
			g.NameHash = &h
		}
	}
	for _, g := range groups {
		g.CRC = r.I32()
	}
	if flags&FlagUncompressedCRC != 0 {
		for _, g := range groups {
			c := r.I32()
			g.UncompressedCRC = &c
		}
	}
	if flags&FlagWhirlpool != 0 {
		for _, g := range groups {
			var digest [WhirlpoolSize]byte
			copy(digest[:], r.Raw(WhirlpoolSize))
			g.Whirlpool = &digest
		}
	}
	if flags&FlagSizes != 0 {
		for _, g := range groups {
			g.Sizes = &Sizes{Compressed: r.U32(), Uncompressed: r.U32()}
		}
	}
	for _, g := range groups {
		g.Version = r.U32()
	}

	fileCounts := make([]int, n)
	for i := range fileCounts {
		fileCounts[i] = int(count())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: settings: %w", js5type.ErrCorruption, err)
	}
	for i, g := range groups {
		if fileCounts[i] > r.Remaining() {
			return nil, fmt.Errorf("%w: group %d declares %d files in %d bytes", js5type.ErrCorruption, g.ID, fileCounts[i], r.Remaining())
		}
		g.Files = make([]File, fileCounts[i])
		var fileID uint32
		for j := range g.Files {
			fileID += count()
			g.Files[j].ID = fileID
		}
	}
	if flags&FlagNameHashes != 0 {
		for _, g := range groups {
			for j := range g.Files {
				h := r.I32()
				g.Files[j].NameHash = &h
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: settings: %w", js5type.ErrCorruption, err)
	}

	for _, g := range groups {
		if _, dup := s.Groups[g.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate group id %d", js5type.ErrCorruption, g.ID)
		}
		s.Groups[g.ID] = g
	}
	return s, nil
}
