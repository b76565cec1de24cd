package js5

import "fmt"

// File is one file of a group.
type File struct {
	ID uint32

	// NameHash is the optional hash of the file's name, see NameHash.
	NameHash *int32

	Data []byte
}

// Group is a decoded group with its files in ascending id order.
type Group struct {
	ID uint32

	// NameHash is the optional hash of the group's name, see NameHash.
	NameHash *int32

	// Version is recorded in the archive settings and, truncated to 16 bits,
	// in the container trailer.
	Version uint32

	// Chunks controls how a multi-file group is interleaved on write.
	// Zero writes a single chunk.
	Chunks uint8

	Files []File
}

// File returns the file with the given id.
func (g *Group) File(id uint32) (*File, bool) {
	for i := range g.Files {
		if g.Files[i].ID == id {
			return &g.Files[i], true
		}
	}
	return nil, false
}

// FileByName returns the first file whose name hash matches name.
func (g *Group) FileByName(name string) (*File, bool) {
	h := NameHash(name)
	for i := range g.Files {
		if g.Files[i].NameHash != nil && *g.Files[i].NameHash == h {
			return &g.Files[i], true
		}
	}
	return nil, false
}

func (g *Group) validate() error {
	if len(g.Files) == 0 {
		return fmt.Errorf("group %d: no files", g.ID)
	}
	for i := 1; i < len(g.Files); i++ {
		if g.Files[i].ID <= g.Files[i-1].ID {
			return fmt.Errorf("group %d: file ids must be strictly ascending (%d after %d)",
				g.ID, g.Files[i].ID, g.Files[i-1].ID)
		}
	}
	return nil
}
