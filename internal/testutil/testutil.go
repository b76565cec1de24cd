package testutil

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/js5/internal/js5type"
)

// Payload returns n deterministic pseudo-random bytes for seed.
func Payload(seed uint64, n int) []byte {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
	return b
}

// Compressible returns n deterministic bytes drawn from a small alphabet.
func Compressible(seed uint64, n int) []byte {
	rng := rand.New(rand.NewPCG(seed, ^seed))
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(rng.IntN(8))
	}
	return b
}

// MemStore is an in-memory container store for tests.
//
// Like the disk store, writing to index id ArchiveCount creates an archive
// and the master index always exists.
type MemStore struct {
	containers   map[uint8]map[uint32][]byte
	archiveCount int
	readOnly     bool

	// Writes counts successful Write calls per index id.
	Writes map[uint8]int
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		containers: map[uint8]map[uint32][]byte{255: {}},
		Writes:     make(map[uint8]int),
	}
}

// SetReadOnly makes Write and Remove fail with ErrReadOnly.
func (m *MemStore) SetReadOnly(readOnly bool) {
	m.readOnly = readOnly
}

// ArchiveCount returns the number of archives created so far.
func (m *MemStore) ArchiveCount() int {
	return m.archiveCount
}

// Read returns a copy of the stored container.
func (m *MemStore) Read(indexID uint8, containerID uint32) ([]byte, error) {
	idx, ok := m.containers[indexID]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", js5type.ErrNotFound, indexID)
	}
	data, ok := idx[containerID]
	if !ok {
		return nil, fmt.Errorf("%w: index %d container %d", js5type.ErrNotFound, indexID, containerID)
	}
	return bytes.Clone(data), nil
}

// Write stores a copy of data.
func (m *MemStore) Write(indexID uint8, containerID uint32, data []byte) error {
	if m.readOnly {
		return js5type.ErrReadOnly
	}
	idx, ok := m.containers[indexID]
	if !ok {
		if int(indexID) != m.archiveCount {
			return fmt.Errorf("%w: index %d", js5type.ErrNotFound, indexID)
		}
		idx = make(map[uint32][]byte)
		m.containers[indexID] = idx
		m.archiveCount++
	}
	idx[containerID] = bytes.Clone(data)
	m.Writes[indexID]++
	return nil
}

// Remove deletes the container if present.
func (m *MemStore) Remove(indexID uint8, containerID uint32) error {
	if m.readOnly {
		return js5type.ErrReadOnly
	}
	idx, ok := m.containers[indexID]
	if !ok {
		return fmt.Errorf("%w: index %d", js5type.ErrNotFound, indexID)
	}
	delete(idx, containerID)
	return nil
}

// IDs returns the container ids stored in indexID.
func (m *MemStore) IDs(indexID uint8) []uint32 {
	ids := make([]uint32, 0, len(m.containers[indexID]))
	for id := range m.containers[indexID] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Corrupt flips one byte of a stored container.
func (m *MemStore) Corrupt(tb testing.TB, indexID uint8, containerID uint32, offset int) {
	tb.Helper()
	data, ok := m.containers[indexID][containerID]
	require.True(tb, ok, "container %d/%d not stored", indexID, containerID)
	require.Less(tb, offset, len(data))
	data[offset] ^= 0xFF
}
