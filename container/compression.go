package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz/lzma"

	"github.com/meigma/js5/internal/js5type"
)

// bzip2Header is the stream header the cache omits from stored BZIP2 payloads:
// magic "BZ", version 'h' and block size '1' (100k).
var bzip2Header = []byte("BZh1")

// lzmaPropsSize is the length of the properties prefix (lc/lp/pb byte plus
// dictionary size) kept in stored LZMA payloads. The classic header's
// following 8-byte uncompressed size is dropped.
const lzmaPropsSize = 5

// compress transforms raw with the given algorithm.
func compress(c js5type.Compression, raw []byte) ([]byte, error) {
	switch c {
	case js5type.CompressionNone:
		return raw, nil
	case js5type.CompressionBzip2:
		return compressBzip2(raw)
	case js5type.CompressionGzip:
		return compressGzip(raw)
	case js5type.CompressionLZMA:
		return compressLZMA(raw)
	}
	return nil, c.Valid()
}

// decompress reverses compress. size is the declared uncompressed length and
// bounds the output; a result of any other length is ErrSizeMismatch.
func decompress(c js5type.Compression, data []byte, size int) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case js5type.CompressionNone:
		return data, nil
	case js5type.CompressionBzip2:
		out, err = decompressBzip2(data, size)
	case js5type.CompressionGzip:
		out, err = decompressGzip(data, size)
	case js5type.CompressionLZMA:
		out, err = decompressLZMA(data, size)
	default:
		return nil, c.Valid()
	}
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", c, err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: %s payload inflated to %d bytes, header declares %d", js5type.ErrSizeMismatch, c, len(out), size)
	}
	return out, nil
}

// maxInflateRatio caps the buffer preallocated from a declared length.
const maxInflateRatio = 64

// readBounded reads at most size+1 bytes so that oversized streams are
// detected without inflating them completely. The initial buffer is sized
// from the compressed length n, not from size alone.
func readBounded(r io.Reader, size, n int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, min(size, maxInflateRatio*n+bytes.MinRead)))
	if _, err := io.Copy(buf, io.LimitReader(r, int64(size)+1)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func compressBzip2(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestSpeed})
	if err != nil {
		return nil, fmt.Errorf("create bzip2 writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, fmt.Errorf("bzip2: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close bzip2 writer: %w", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, bzip2Header) {
		return nil, fmt.Errorf("bzip2: unexpected stream header %q", out[:min(len(out), len(bzip2Header))])
	}
	return out[len(bzip2Header):], nil
}

func decompressBzip2(data []byte, size int) ([]byte, error) {
	stream := io.MultiReader(bytes.NewReader(bzip2Header), bytes.NewReader(data))
	r, err := bzip2.NewReader(stream, nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readBounded(r, size, len(data))
}

func compressGzip(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte, size int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readBounded(r, size, len(data))
}

func compressLZMA(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{
		SizeInHeader: true,
		Size:         int64(len(raw)),
	}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create lzma writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, fmt.Errorf("lzma: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close lzma writer: %w", err)
	}
	out := buf.Bytes()
	if len(out) < lzma.HeaderLen {
		return nil, fmt.Errorf("lzma: short stream of %d bytes", len(out))
	}
	// Keep the properties, drop the 8-byte size that follows them.
	stored := make([]byte, 0, len(out)-8)
	stored = append(stored, out[:lzmaPropsSize]...)
	return append(stored, out[lzma.HeaderLen:]...), nil
}

func decompressLZMA(data []byte, size int) ([]byte, error) {
	if len(data) < lzmaPropsSize {
		return nil, fmt.Errorf("lzma: short stream of %d bytes", len(data))
	}
	header := make([]byte, lzma.HeaderLen)
	copy(header, data[:lzmaPropsSize])
	binary.LittleEndian.PutUint64(header[lzmaPropsSize:], uint64(size)) //nolint:gosec // size is a non-negative length
	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(data[lzmaPropsSize:])))
	if err != nil {
		return nil, err
	}
	return readBounded(r, size, len(data))
}
