// Package checksum computes the group digests recorded in archive settings.
package checksum

import (
	"hash/crc32"

	"github.com/jzelinskie/whirlpool"
)

// WhirlpoolSize is the length of a whirlpool digest.
const WhirlpoolSize = 64

// CRC returns the IEEE CRC-32 of b as the signed value settings store.
func CRC(b []byte) int32 {
	return int32(crc32.ChecksumIEEE(b)) //nolint:gosec // two's complement reinterpretation
}

// Whirlpool returns the 512-bit whirlpool digest of b.
func Whirlpool(b []byte) *[WhirlpoolSize]byte {
	h := whirlpool.New()
	h.Write(b)
	var digest [WhirlpoolSize]byte
	copy(digest[:], h.Sum(nil))
	return &digest
}
