// Package settings encodes the per-archive metadata record stored in the
// master index: group ids, checksums, versions and file lists, with optional
// name hash, whirlpool, size and uncompressed checksum columns.
package settings

import (
	"maps"
	"slices"
)

// Format is the settings record layout, stored as its first byte.
type Format uint8

const (
	// FormatUnversioned has no version field and 16-bit counts and deltas.
	FormatUnversioned Format = 5

	// FormatVersioned adds a 32-bit version.
	FormatVersioned Format = 6

	// FormatVersionedLarge uses large-smart counts and deltas.
	FormatVersionedLarge Format = 7
)

// String returns the human-readable name of the format.
func (f Format) String() string {
	switch f {
	case FormatUnversioned:
		return "unversioned"
	case FormatVersioned:
		return "versioned"
	case FormatVersionedLarge:
		return "versioned-large"
	default:
		return "unknown"
	}
}

// Flag bits selecting the optional columns.
const (
	FlagNameHashes      uint8 = 0x01
	FlagWhirlpool       uint8 = 0x02
	FlagSizes           uint8 = 0x04
	FlagUncompressedCRC uint8 = 0x08
)

// WhirlpoolSize is the length of a whirlpool digest.
const WhirlpoolSize = 64

// Sizes records a group's stored and raw lengths.
type Sizes struct {
	Compressed   uint32
	Uncompressed uint32
}

// File describes one file of a group.
type File struct {
	ID       uint32
	NameHash *int32
}

// Group describes one stored group.
type Group struct {
	ID      uint32
	Version uint32

	// CRC is the CRC-32 of the stored container, excluding its version trailer.
	CRC int32

	NameHash        *int32
	UncompressedCRC *int32
	Whirlpool       *[WhirlpoolSize]byte
	Sizes           *Sizes

	// Files is kept in strictly ascending id order.
	Files []File
}

// FileIDs returns the group's file ids in order.
func (g *Group) FileIDs() []uint32 {
	ids := make([]uint32, len(g.Files))
	for i, f := range g.Files {
		ids[i] = f.ID
	}
	return ids
}

// FileIndex returns the position of file id within Files.
func (g *Group) FileIndex(id uint32) (int, bool) {
	return slices.BinarySearchFunc(g.Files, id, func(f File, id uint32) int {
		switch {
		case f.ID < id:
			return -1
		case f.ID > id:
			return 1
		}
		return 0
	})
}

// Settings is the decoded metadata of one archive.
type Settings struct {
	// Version is nil for unversioned archives.
	Version *uint32

	// Groups maps group id to its metadata.
	Groups map[uint32]*Group
}

// New returns empty settings.
func New() *Settings {
	return &Settings{Groups: make(map[uint32]*Group)}
}

// GroupIDs returns the group ids in ascending order.
func (s *Settings) GroupIDs() []uint32 {
	return slices.Sorted(maps.Keys(s.Groups))
}

// FindByName returns the first group, by ascending id, whose name hash matches.
func (s *Settings) FindByName(hash int32) (*Group, bool) {
	for _, id := range s.GroupIDs() {
		g := s.Groups[id]
		if g.NameHash != nil && *g.NameHash == hash {
			return g, true
		}
	}
	return nil, false
}

// Flags computes the optional-column flags: a column is present when any
// group (or, for name hashes, any file) carries a value for it.
func (s *Settings) Flags() uint8 {
	var flags uint8
	for _, g := range s.Groups {
		if g.NameHash != nil {
			flags |= FlagNameHashes
		}
		for _, f := range g.Files {
			if f.NameHash != nil {
				flags |= FlagNameHashes
			}
		}
		if g.Whirlpool != nil {
			flags |= FlagWhirlpool
		}
		if g.Sizes != nil {
			flags |= FlagSizes
		}
		if g.UncompressedCRC != nil {
			flags |= FlagUncompressedCRC
		}
	}
	return flags
}
