package js5type

import "fmt"

// Compression identifies the compression algorithm applied to a container payload.
// The numeric value is the opcode stored in the container header.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionBzip2
	CompressionGzip
	CompressionLZMA
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionBzip2:
		return "bzip2"
	case CompressionGzip:
		return "gzip"
	case CompressionLZMA:
		return "lzma"
	default:
		return "unknown"
	}
}

// Valid returns nil if c is a known compression opcode.
func (c Compression) Valid() error {
	switch c {
	case CompressionNone, CompressionBzip2, CompressionGzip, CompressionLZMA:
		return nil
	}
	return fmt.Errorf("%w: compression opcode %d", ErrUnsupportedFormat, uint8(c))
}

// HeaderSize is the number of extra container header bytes the algorithm needs.
// Compressed payloads carry their uncompressed length; stored ones do not.
func (c Compression) HeaderSize() int {
	if c == CompressionNone {
		return 0
	}
	return 4
}

// ParseCompression maps a name as produced by String back to its Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "bzip2":
		return CompressionBzip2, nil
	case "gzip":
		return CompressionGzip, nil
	case "lzma":
		return CompressionLZMA, nil
	}
	return 0, fmt.Errorf("%w: compression %q", ErrUnsupportedFormat, name)
}
