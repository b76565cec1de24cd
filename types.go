package js5

import (
	"github.com/meigma/js5/disk"
	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/xtea"
)

// Compression identifies the compression algorithm applied to a container.
type Compression = js5type.Compression

// Key is a four-word XTEA key. The zero Key means no encryption.
type Key = xtea.Key

// ZeroKey is the no-encryption key.
var ZeroKey = xtea.ZeroKey

// Compression constants.
const (
	CompressionNone  = js5type.CompressionNone
	CompressionBzip2 = js5type.CompressionBzip2
	CompressionGzip  = js5type.CompressionGzip
	CompressionLZMA  = js5type.CompressionLZMA
)

// MasterIndex is the index id holding archive settings.
const MasterIndex = disk.MasterIndex

// ParseCompression maps a compression name ("none", "bzip2", "gzip", "lzma")
// to its constant.
func ParseCompression(name string) (Compression, error) {
	return js5type.ParseCompression(name)
}

// Store is the container storage an Archive works against.
//
// Implementations are not required to be safe for concurrent use.
// Writing to index id ArchiveCount() creates the next archive.
type Store interface {
	Read(indexID uint8, containerID uint32) ([]byte, error)
	Write(indexID uint8, containerID uint32, data []byte) error
	Remove(indexID uint8, containerID uint32) error
	ArchiveCount() int
}

var _ Store = (*disk.Store)(nil)
