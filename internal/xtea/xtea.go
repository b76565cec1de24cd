// Package xtea applies the XTEA block cipher to byte ranges of container
// payloads. Only whole 8-byte blocks inside the range are transformed; a
// trailing partial block is left in the clear.
package xtea

import (
	"encoding/binary"

	"golang.org/x/crypto/xtea"
)

// Key is a 128-bit XTEA key expressed as four 32-bit words.
type Key [4]uint32

// ZeroKey is the sentinel meaning "not encrypted".
var ZeroKey Key

// IsZero reports whether k is the no-encryption sentinel.
func (k Key) IsZero() bool {
	return k == ZeroKey
}

func (k Key) cipher() *xtea.Cipher {
	var raw [16]byte
	for i, word := range k {
		binary.BigEndian.PutUint32(raw[i*4:], word)
	}
	// NewCipher only fails on a key length other than 16.
	c, err := xtea.NewCipher(raw[:])
	if err != nil {
		panic(err)
	}
	return c
}

// Encrypt enciphers every whole block of b[start:end] in place.
func Encrypt(b []byte, start, end int, k Key) {
	if k.IsZero() {
		return
	}
	c := k.cipher()
	for off := start; off+xtea.BlockSize <= end; off += xtea.BlockSize {
		block := b[off : off+xtea.BlockSize]
		c.Encrypt(block, block)
	}
}

// Decrypt deciphers every whole block of b[start:end] in place.
func Decrypt(b []byte, start, end int, k Key) {
	if k.IsZero() {
		return
	}
	c := k.cipher()
	for off := start; off+xtea.BlockSize <= end; off += xtea.BlockSize {
		block := b[off : off+xtea.BlockSize]
		c.Decrypt(block, block)
	}
}
