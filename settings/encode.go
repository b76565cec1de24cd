package settings

import (
	"fmt"
	"math"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/wire"
)

// Format selects the layout needed for s: unversioned settings use
// FormatUnversioned, versioned ones FormatVersioned unless a count or delta
// exceeds 16 bits, which requires FormatVersionedLarge.
func (s *Settings) Format() (Format, error) {
	large, err := s.needsLarge()
	if err != nil {
		return 0, err
	}
	switch {
	case s.Version == nil && large:
		return 0, fmt.Errorf("%w: unversioned settings cannot hold counts or deltas above %d", js5type.ErrUnsupportedFormat, math.MaxUint16)
	case s.Version == nil:
		return FormatUnversioned, nil
	case large:
		return FormatVersionedLarge, nil
	}
	return FormatVersioned, nil
}

// needsLarge reports whether any count or delta overflows 16 bits. It also
// validates that file ids are strictly ascending and that values fit the
// large-smart range.
func (s *Settings) needsLarge() (bool, error) {
	large := false
	check := func(v uint32) error {
		if v > wire.MaxLargeSmart {
			return fmt.Errorf("%w: value %d exceeds %d", js5type.ErrSizeOverflow, v, wire.MaxLargeSmart)
		}
		if v > math.MaxUint16 {
			large = true
		}
		return nil
	}

	if len(s.Groups) > wire.MaxLargeSmart {
		return false, fmt.Errorf("%w: %d groups", js5type.ErrSizeOverflow, len(s.Groups))
	}
	if err := check(uint32(len(s.Groups))); err != nil { //nolint:gosec // bounded above
		return false, err
	}
	var prev uint32
	for _, id := range s.GroupIDs() {
		g := s.Groups[id]
		if g.ID != id {
			return false, fmt.Errorf("settings: group keyed %d has id %d", id, g.ID)
		}
		if err := check(id - prev); err != nil {
			return false, err
		}
		prev = id

		if len(g.Files) > wire.MaxLargeSmart {
			return false, fmt.Errorf("%w: group %d has %d files", js5type.ErrSizeOverflow, id, len(g.Files))
		}
		if err := check(uint32(len(g.Files))); err != nil { //nolint:gosec // bounded above
			return false, err
		}
		var prevFile uint32
		for i, f := range g.Files {
			if i > 0 && f.ID <= prevFile {
				return false, fmt.Errorf("settings: group %d file ids not ascending at %d", id, f.ID)
			}
			if err := check(f.ID - prevFile); err != nil {
				return false, err
			}
			prevFile = f.ID
		}
	}
	return large, nil
}

// Encode serializes s.
func Encode(s *Settings) ([]byte, error) {
	format, err := s.Format()
	if err != nil {
		return nil, err
	}
	flags := s.Flags()
	ids := s.GroupIDs()
	groups := make([]*Group, len(ids))
	for i, id := range ids {
		groups[i] = s.Groups[id]
	}

	w := wire.NewWriter(16 + len(groups)*32)
	putCount := func(v uint32) {
		if format == FormatVersionedLarge {
			// Range checked by Format.
			_ = w.LargeSmart(v)
			return
		}
		w.U16(uint16(v)) //nolint:gosec // range checked by Format
	}

	w.U8(uint8(format))
	if s.Version != nil {
		w.U32(*s.Version)
	}
	w.U8(flags)

	putCount(uint32(len(groups))) //nolint:gosec // range checked by Format
	var prev uint32
	for _, g := range groups {
		putCount(g.ID - prev)
		prev = g.ID
	}

	if flags&FlagNameHashes != 0 {
		for _, g := range groups {
			w.I32(deref(g.NameHash))
		}
	}
	for _, g := range groups {
		w.I32(g.CRC)
	}
	if flags&FlagUncompressedCRC != 0 {
		for _, g := range groups {
			w.I32(deref(g.UncompressedCRC))
		}
	}
	if flags&FlagWhirlpool != 0 {
		var zero [WhirlpoolSize]byte
		for _, g := range groups {
			if g.Whirlpool == nil {
				w.Raw(zero[:])
				continue
			}
			w.Raw(g.Whirlpool[:])
		}
	}
	if flags&FlagSizes != 0 {
		for _, g := range groups {
			sizes := Sizes{}
			if g.Sizes != nil {
				sizes = *g.Sizes
			}
			w.U32(sizes.Compressed)
			w.U32(sizes.Uncompressed)
		}
	}
	for _, g := range groups {
		w.U32(g.Version)
	}

	for _, g := range groups {
		putCount(uint32(len(g.Files))) //nolint:gosec // range checked by Format
	}
	for _, g := range groups {
		var prevFile uint32
		for _, f := range g.Files {
			putCount(f.ID - prevFile)
			prevFile = f.ID
		}
	}
	if flags&FlagNameHashes != 0 {
		for _, g := range groups {
			for _, f := range g.Files {
				w.I32(deref(f.NameHash))
			}
		}
	}
	return w.Bytes(), nil
}

func deref(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}
