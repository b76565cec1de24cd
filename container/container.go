// Package container implements the envelope the cache stores for every group
// and archive settings record: a compression opcode and length header, an
// optionally XTEA-encrypted payload, and an optional 16-bit version trailer.
//
// Layout (big-endian):
//
//	compression  u8
//	length       u32   compressed payload length
//	uncompressed u32   present unless compression is none
//	payload      [length]byte
//	version      u16   optional
//
// Encryption covers the payload bytes only; both length fields and the
// version trailer stay in the clear.
package container

import (
	"fmt"
	"math"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/wire"
	"github.com/meigma/js5/internal/xtea"
)

// Compression identifies the compression algorithm applied to a payload.
type Compression = js5type.Compression

// Key is a four-word XTEA key. The zero Key means no encryption.
type Key = xtea.Key

// ZeroKey is the no-encryption sentinel.
var ZeroKey = xtea.ZeroKey

// Re-export compression constants.
const (
	CompressionNone  = js5type.CompressionNone
	CompressionBzip2 = js5type.CompressionBzip2
	CompressionGzip  = js5type.CompressionGzip
	CompressionLZMA  = js5type.CompressionLZMA
)

// baseHeaderSize covers the opcode and compressed length.
const baseHeaderSize = 5

// versionSize is the length of the optional version trailer.
const versionSize = 2

// Container is the decoded form of a stored blob.
type Container struct {
	// Data is the uncompressed payload.
	Data []byte

	// Key encrypts the payload when non-zero.
	Key Key

	// Compression is the algorithm applied to Data on encode.
	Compression Compression

	// Version is the optional 16-bit trailer. Nil means none is written.
	Version *uint16
}

// HasVersion reports whether the container carries a version trailer.
func (c *Container) HasVersion() bool {
	return c.Version != nil
}

// Encode compresses, encrypts and frames the container.
func (c *Container) Encode() ([]byte, error) {
	if err := c.Compression.Valid(); err != nil {
		return nil, err
	}
	compressed, err := compress(c.Compression, c.Data)
	if err != nil {
		return nil, err
	}
	if len(compressed) > math.MaxInt32 || len(c.Data) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: container payload of %d bytes", js5type.ErrSizeOverflow, len(c.Data))
	}

	headerEnd := baseHeaderSize + c.Compression.HeaderSize()
	size := headerEnd + len(compressed)
	if c.Version != nil {
		size += versionSize
	}

	w := wire.NewWriter(size)
	w.U8(uint8(c.Compression))
	w.U32(uint32(len(compressed))) //nolint:gosec // bounded above
	if c.Compression != CompressionNone {
		w.U32(uint32(len(c.Data))) //nolint:gosec // bounded above
	}
	w.Raw(compressed)
	if c.Version != nil {
		w.U16(*c.Version)
	}

	out := w.Bytes()
	xtea.Encrypt(out, headerEnd, headerEnd+len(compressed), c.Key)
	return out, nil
}

// Decode parses, decrypts and decompresses b using key.
//
// b is decrypted in place when key is non-zero. For uncompressed containers
// the returned Data aliases b.
func Decode(b []byte, key Key) (*Container, error) {
	r := wire.NewReader(b)
	compression := Compression(r.U8())
	length := r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: container header: %w", js5type.ErrCorruption, err)
	}
	if err := compression.Valid(); err != nil {
		return nil, err
	}

	var uncompressed uint32
	if compression != CompressionNone {
		uncompressed = r.U32()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w: container header: %w", js5type.ErrCorruption, err)
		}
	}
	if uint64(length) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: container declares %d payload bytes, %d present", js5type.ErrCorruption, length, r.Remaining())
	}
	if uncompressed > math.MaxInt32 {
		return nil, fmt.Errorf("%w: uncompressed length %d", js5type.ErrSizeOverflow, uncompressed)
	}

	headerEnd := r.Offset()
	payloadEnd := headerEnd + int(length)
	xtea.Decrypt(b, headerEnd, payloadEnd, key)

	data, err := decompress(compression, b[headerEnd:payloadEnd], int(uncompressed))
	if err != nil {
		return nil, err
	}

	c := &Container{
		Data:        data,
		Key:         key,
		Compression: compression,
	}
	if len(b)-payloadEnd >= versionSize {
		v := uint16(b[payloadEnd])<<8 | uint16(b[payloadEnd+1])
		c.Version = &v
	}
	return c, nil
}

// PayloadLen returns the length of an encoded container excluding any
// version trailer, which is the region group checksums cover.
func PayloadLen(b []byte) (int, error) {
	r := wire.NewReader(b)
	compression := Compression(r.U8())
	length := r.U32()
	if err := r.Err(); err != nil {
		return 0, fmt.Errorf("%w: container header: %w", js5type.ErrCorruption, err)
	}
	if err := compression.Valid(); err != nil {
		return 0, err
	}
	end := uint64(baseHeaderSize+compression.HeaderSize()) + uint64(length)
	if end > uint64(len(b)) {
		return 0, fmt.Errorf("%w: container declares %d payload bytes, %d present", js5type.ErrCorruption, length, len(b))
	}
	return int(end), nil
}
