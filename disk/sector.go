package disk

import (
	"fmt"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/wire"
)

const (
	// SectorSize is the on-disk size of every sector.
	SectorSize = 520

	// SectorHeaderSize is the header size of a sector owned by a container id up to 0xFFFF.
	SectorHeaderSize = 8

	// ExtendedSectorHeaderSize is the header size for larger container ids.
	ExtendedSectorHeaderSize = 10

	// SectorDataSize is the payload capacity of a normal sector.
	SectorDataSize = SectorSize - SectorHeaderSize

	// ExtendedSectorDataSize is the payload capacity of an extended sector.
	ExtendedSectorDataSize = SectorSize - ExtendedSectorHeaderSize
)

// maxNormalContainerID is the largest id that fits the two-byte header field.
const maxNormalContainerID = 0xFFFF

// IsExtended reports whether sectors of containerID use the four-byte id field.
func IsExtended(containerID uint32) bool {
	return containerID > maxNormalContainerID
}

func headerSize(containerID uint32) int {
	if IsExtended(containerID) {
		return ExtendedSectorHeaderSize
	}
	return SectorHeaderSize
}

func dataSize(containerID uint32) int {
	return SectorSize - headerSize(containerID)
}

// SectorHeader identifies the owner of a sector and links it into a chain.
type SectorHeader struct {
	ContainerID uint32
	Position    uint16
	Next        uint32
	IndexFileID uint8
}

// Sector is one link of a container's chain.
type Sector struct {
	SectorHeader
	Data []byte
}

// Encode serializes s. A short final chunk is not padded.
func (s *Sector) Encode() []byte {
	w := wire.NewWriter(headerSize(s.ContainerID) + len(s.Data))
	if IsExtended(s.ContainerID) {
		w.U32(s.ContainerID)
	} else {
		w.U16(uint16(s.ContainerID))
	}
	w.U16(s.Position)
	w.U24(s.Next)
	w.U8(s.IndexFileID)
	w.Raw(s.Data)
	return w.Bytes()
}

// DecodeSector parses b as a sector belonging to containerID. The narrow
// header does not say whether it is extended, so the caller supplies the id
// it expects. Data aliases b.
func DecodeSector(containerID uint32, b []byte) (*Sector, error) {
	r := wire.NewReader(b)
	var s Sector
	if IsExtended(containerID) {
		s.ContainerID = r.U32()
	} else {
		s.ContainerID = uint32(r.U16())
	}
	s.Position = r.U16()
	s.Next = r.U24()
	s.IndexFileID = r.U8()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: sector header: %w", js5type.ErrCorruption, err)
	}
	s.Data = b[r.Offset():]
	return &s, nil
}

// SectorError reports a sector whose header disagrees with the chain being walked.
type SectorError struct {
	// Sector is the sector number that was read.
	Sector uint32

	// Want is the header the chain expected, Got what the sector holds.
	// Next is not compared.
	Want, Got SectorHeader
}

func (e *SectorError) Error() string {
	return fmt.Sprintf("js5: sector %d belongs to index %d container %d position %d, want index %d container %d position %d",
		e.Sector, e.Got.IndexFileID, e.Got.ContainerID, e.Got.Position,
		e.Want.IndexFileID, e.Want.ContainerID, e.Want.Position)
}

// Unwrap makes SectorError match ErrCorruption.
func (e *SectorError) Unwrap() error {
	return js5type.ErrCorruption
}

// validate checks that h is the position-th link of containerID in indexFileID.
func (h *SectorHeader) validate(sector uint32, indexFileID uint8, containerID uint32, position uint16) error {
	if h.IndexFileID == indexFileID && h.ContainerID == containerID && h.Position == position {
		return nil
	}
	return &SectorError{
		Sector: sector,
		Want:   SectorHeader{ContainerID: containerID, Position: position, IndexFileID: indexFileID},
		Got:    SectorHeader{ContainerID: h.ContainerID, Position: h.Position, IndexFileID: h.IndexFileID},
	}
}
