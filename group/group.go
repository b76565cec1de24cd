// Package group packs the files of a group into a single container payload.
//
// A single-file group is stored verbatim. A multi-file group is split into
// chunks: each file contributes one contiguous piece per chunk, pieces are
// laid out chunk-major, and a trailer records every piece length as a delta
// against the previous file's piece in the same chunk:
//
//	chunk 0: file 0 piece, file 1 piece, ...
//	chunk 1: file 0 piece, file 1 piece, ...
//	...
//	deltas   [chunks][files]i32
//	chunks   u8
package group

import (
	"errors"
	"fmt"
	"math"

	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/wire"
)

// MaxChunks is the largest chunk count the one-byte trailer can express.
const MaxChunks = math.MaxUint8

// Data is the decoded content of a group.
type Data struct {
	// Files holds each file's bytes in ascending file id order.
	Files [][]byte

	// Chunks is the number of chunks a multi-file group is split into.
	// It is ignored for single-file groups.
	Chunks uint8
}

// Encode serializes d into a container payload.
func Encode(d *Data) ([]byte, error) {
	switch len(d.Files) {
	case 0:
		return nil, errors.New("group: no files")
	case 1:
		return d.Files[0], nil
	}

	chunks := int(d.Chunks)
	if chunks == 0 {
		chunks = 1
	}

	total := 0
	for _, f := range d.Files {
		total += len(f)
	}
	trailer := chunks*len(d.Files)*4 + 1
	if total > math.MaxInt32-trailer {
		return nil, fmt.Errorf("%w: group of %d bytes", js5type.ErrSizeOverflow, total)
	}

	w := wire.NewWriter(total + trailer)
	lengths := make([][]int, chunks)
	for c := range chunks {
		lengths[c] = make([]int, len(d.Files))
		for i, f := range d.Files {
			start, end := pieceBounds(len(f), chunks, c)
			w.Raw(f[start:end])
			lengths[c][i] = end - start
		}
	}
	for c := range chunks {
		prev := 0
		for _, n := range lengths[c] {
			w.I32(int32(n - prev)) //nolint:gosec // bounded by the overflow check above
			prev = n
		}
	}
	w.U8(uint8(chunks))
	return w.Bytes(), nil
}

// pieceBounds returns the [start, end) range of the c-th of chunks pieces of
// a file of n bytes. Pieces are ceil(n/chunks) long; trailing ones may be
// short or empty.
func pieceBounds(n, chunks, c int) (start, end int) {
	size := (n + chunks - 1) / chunks
	start = min(c*size, n)
	end = min(start+size, n)
	return start, end
}

// Decode splits a container payload into fileCount files.
//
// Single-file groups alias b. Multi-file groups stored in one chunk alias b
// as well; groups with more chunks are reassembled into fresh buffers.
func Decode(b []byte, fileCount int) (*Data, error) {
	switch {
	case fileCount <= 0:
		return nil, fmt.Errorf("group: invalid file count %d", fileCount)
	case fileCount == 1:
		return &Data{Files: [][]byte{b}, Chunks: 1}, nil
	case len(b) == 0:
		return nil, fmt.Errorf("%w: empty multi-file group", js5type.ErrCorruption)
	}

	chunks := int(b[len(b)-1])
	trailerStart := len(b) - 1 - chunks*fileCount*4
	if chunks == 0 || trailerStart < 0 {
		return nil, fmt.Errorf("%w: group trailer of %d chunks x %d files does not fit %d bytes", js5type.ErrCorruption, chunks, fileCount, len(b))
	}

	r := wire.NewReader(b[trailerStart : len(b)-1])
	lengths := make([][]int, chunks)
	sizes := make([]int, fileCount)
	offset := 0
	for c := range chunks {
		lengths[c] = make([]int, fileCount)
		n := 0
		for i := range fileCount {
			n += int(r.I32())
			if n < 0 {
				return nil, fmt.Errorf("%w: negative piece length in chunk %d file %d", js5type.ErrCorruption, c, i)
			}
			lengths[c][i] = n
			sizes[i] += n
			offset += n
		}
	}
	if offset > trailerStart {
		return nil, fmt.Errorf("%w: group pieces cover %d bytes, %d available", js5type.ErrCorruption, offset, trailerStart)
	}

	files := make([][]byte, fileCount)
	offset = 0
	if chunks == 1 {
		for i, n := range lengths[0] {
			files[i] = b[offset : offset+n : offset+n]
			offset += n
		}
		return &Data{Files: files, Chunks: 1}, nil
	}

	for i, size := range sizes {
		files[i] = make([]byte, 0, size)
	}
	for c := range chunks {
		for i, n := range lengths[c] {
			files[i] = append(files[i], b[offset:offset+n]...)
			offset += n
		}
	}
	return &Data{Files: files, Chunks: uint8(chunks)}, nil //nolint:gosec // read from a single byte
}
