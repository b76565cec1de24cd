package disk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/testutil"
)

func TestSectorRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		containerID uint32
		header      int
		extended    bool
	}{
		{name: "normal", containerID: 1234, header: SectorHeaderSize},
		{name: "normal max", containerID: 0xFFFF, header: SectorHeaderSize},
		{name: "extended min", containerID: 0x10000, header: ExtendedSectorHeaderSize, extended: true},
		{name: "extended large", containerID: 0x7FFFFFFF, header: ExtendedSectorHeaderSize, extended: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.extended, IsExtended(tt.containerID))

			in := &Sector{
				SectorHeader: SectorHeader{ContainerID: tt.containerID, Position: 513, Next: 0xABCDEF, IndexFileID: 7},
				Data:         testutil.Payload(uint64(tt.containerID), SectorSize-tt.header),
			}
			enc := in.Encode()
			assert.Len(t, enc, SectorSize)

			out, err := DecodeSector(tt.containerID, enc)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestSectorHeaderLayout(t *testing.T) {
	t.Parallel()

	normal := (&Sector{SectorHeader: SectorHeader{ContainerID: 0x0102, Position: 0x0304, Next: 0x050607, IndexFileID: 8}}).Encode()
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, normal)

	extended := (&Sector{SectorHeader: SectorHeader{ContainerID: 0x01020304, Position: 0x0506, Next: 0x070809, IndexFileID: 10}}).Encode()
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}, extended)
}

func TestDecodeSectorShort(t *testing.T) {
	t.Parallel()

	_, err := DecodeSector(1, []byte{0, 1, 0})
	assert.ErrorIs(t, err, js5type.ErrCorruption)
}

func TestSectorValidate(t *testing.T) {
	t.Parallel()

	h := SectorHeader{ContainerID: 5, Position: 2, IndexFileID: 3}
	require.NoError(t, h.validate(9, 3, 5, 2))

	for _, err := range []error{
		h.validate(9, 4, 5, 2),
		h.validate(9, 3, 6, 2),
		h.validate(9, 3, 5, 1),
	} {
		assert.ErrorIs(t, err, js5type.ErrCorruption)
		var serr *SectorError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, uint32(9), serr.Sector)
		assert.Equal(t, h.Position, serr.Got.Position)
	}
}
