package js5

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/js5/internal/checksum"
	"github.com/meigma/js5/internal/testutil"
	"github.com/meigma/js5/settings"
)

var testKey = Key{0xdeadbeef, 0x01234567, 0x89abcdef, 0x0badf00d}

func openArchive(t *testing.T, store Store, id uint8, opts ...ArchiveOption) *Archive {
	t.Helper()
	a, err := OpenArchive(store, id, opts...)
	require.NoError(t, err)
	return a
}

func sampleGroup(id uint32, chunks uint8) *Group {
	return &Group{
		ID:       id,
		NameHash: hashOf(fmt.Sprintf("group%d", id)),
		Version:  100 + id,
		Chunks:   chunks,
		Files: []File{
			{ID: 0, NameHash: hashOf("first"), Data: testutil.Compressible(uint64(id), 700)},
			{ID: 2, Data: nil},
			{ID: 5, NameHash: hashOf("third"), Data: testutil.Payload(uint64(id), 1500)},
		},
	}
}

func assertGroup(t *testing.T, want, got *Group) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.NameHash, got.NameHash)
	require.Len(t, got.Files, len(want.Files))
	for i := range want.Files {
		assert.Equal(t, want.Files[i].ID, got.Files[i].ID)
		assert.Equal(t, want.Files[i].NameHash, got.Files[i].NameHash)
		assert.Equal(t, want.Files[i].Data, got.Files[i].Data, "file %d", want.Files[i].ID)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	compressions := []Compression{CompressionNone, CompressionBzip2, CompressionGzip, CompressionLZMA}
	keys := []Key{ZeroKey, testKey}
	for _, c := range compressions {
		for _, key := range keys {
			for _, chunks := range []uint8{1, 4} {
				name := fmt.Sprintf("%s/encrypted=%t/chunks=%d", c, !key.IsZero(), chunks)
				t.Run(name, func(t *testing.T) {
					t.Parallel()

					store := testutil.NewMemStore()
					a := openArchive(t, store, 0, WithCompression(c))
					g := sampleGroup(3, chunks)
					single := &Group{ID: 9, Files: []File{{ID: 0, Data: []byte("lonely")}}}
					require.NoError(t, a.WriteGroup(g, key))
					require.NoError(t, a.WriteGroup(single, key))
					require.NoError(t, a.Close())

					a = openArchive(t, store, 0)
					assert.Equal(t, []uint32{3, 9}, a.GroupIDs())

					got, err := a.ReadGroup(3, key)
					require.NoError(t, err)
					assertGroup(t, g, got)
					assert.Equal(t, chunks, got.Chunks)

					got, err = a.ReadGroup(9, key)
					require.NoError(t, err)
					assertGroup(t, single, got)
				})
			}
		}
	}
}

func TestArchiveSettingsWrittenOnClose(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	assert.False(t, a.Dirty())

	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.WriteGroup(sampleGroup(2, 1), ZeroKey))
	assert.True(t, a.Dirty())
	assert.Equal(t, 2, store.Writes[0])
	assert.Zero(t, store.Writes[MasterIndex])

	// A second handle sees the old (empty) settings until Close.
	other := openArchive(t, store, 0)
	assert.Empty(t, other.GroupIDs())

	require.NoError(t, a.Close())
	assert.Equal(t, 1, store.Writes[MasterIndex])
	require.NoError(t, a.Close())
	assert.Equal(t, 1, store.Writes[MasterIndex])

	assert.Equal(t, []uint32{1, 2}, openArchive(t, store, 0).GroupIDs())
}

func TestArchiveCleanCloseWritesNothing(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.Close())

	a = openArchive(t, store, 0)
	_, err := a.ReadGroup(1, ZeroKey)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.Equal(t, 1, store.Writes[MasterIndex])
}

func TestArchiveChecksumCoversStoredPayload(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0, WithSizes(true), WithUncompressedCRC(true), WithWhirlpool(true))
	g := sampleGroup(4, 1)
	require.NoError(t, a.WriteGroup(g, testKey))

	stored, err := store.Read(0, 4)
	require.NoError(t, err)
	payload := stored[:len(stored)-2]

	gs, ok := a.Group(4)
	require.True(t, ok)
	assert.Equal(t, checksum.CRC(payload), gs.CRC)
	assert.Equal(t, checksum.Whirlpool(payload), gs.Whirlpool)
	require.NotNil(t, gs.Sizes)
	assert.Equal(t, uint32(len(payload)), gs.Sizes.Compressed)
	require.NotNil(t, gs.UncompressedCRC)
	assert.Equal(t, uint32(104), gs.Version)
	assert.Equal(t, []uint32{0, 2, 5}, gs.FileIDs())

	// The trailer carries the low 16 bits of the version.
	assert.Equal(t, []byte{0, 104}, stored[len(stored)-2:])
}

func TestArchiveWithoutVersionTrailer(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0, WithVersionTrailer(false), WithCompression(CompressionNone))
	require.NoError(t, a.WriteGroup(&Group{ID: 1, Version: 5, Files: []File{{Data: []byte("abc")}}}, ZeroKey))

	stored, err := store.Read(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 3, 'a', 'b', 'c'}, stored)

	gs, _ := a.Group(1)
	assert.Equal(t, checksum.CRC(stored), gs.CRC)
}

func TestArchiveOptionalColumnsPersist(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0, WithWhirlpool(true))
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.Close())

	// Reopened without the option, the archive keeps recording digests.
	a = openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(2, 1), ZeroKey))
	gs, ok := a.Group(2)
	require.True(t, ok)
	assert.NotNil(t, gs.Whirlpool)
	assert.Nil(t, gs.Sizes)
	assert.Equal(t, settings.FlagNameHashes|settings.FlagWhirlpool, a.Settings().Flags())
}

func TestArchiveReadByName(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.WriteGroup(sampleGroup(2, 1), ZeroKey))

	g, err := a.ReadGroupByName("GROUP2", ZeroKey)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), g.ID)

	f, ok := g.FileByName("third")
	require.True(t, ok)
	assert.Equal(t, testutil.Payload(2, 1500), f.Data)

	_, err = a.ReadGroupByName("missing", ZeroKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveReadFile(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))

	data, err := a.ReadFile(1, 0, ZeroKey)
	require.NoError(t, err)
	assert.Equal(t, testutil.Compressible(1, 700), data)

	_, err = a.ReadFile(1, 1, ZeroKey)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.ReadFile(8, 0, ZeroKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveOverwriteGroup(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))

	replacement := &Group{ID: 1, Version: 2, Files: []File{{ID: 4, Data: []byte("new")}}}
	require.NoError(t, a.WriteGroup(replacement, ZeroKey))

	got, err := a.ReadGroup(1, ZeroKey)
	require.NoError(t, err)
	assertGroup(t, replacement, got)
	assert.Equal(t, []uint32{1}, a.GroupIDs())
}

func TestArchiveRemoveGroup(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.WriteGroup(sampleGroup(2, 1), ZeroKey))
	require.NoError(t, a.Close())

	a = openArchive(t, store, 0)
	require.NoError(t, a.RemoveGroup(1))
	assert.ErrorIs(t, a.RemoveGroup(1), ErrNotFound)
	_, err := a.ReadGroup(1, ZeroKey)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []uint32{2}, store.IDs(0))
	require.NoError(t, a.Close())

	assert.Equal(t, []uint32{2}, openArchive(t, store, 0).GroupIDs())
}

func TestArchiveWrongKey(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), testKey))

	_, err := a.ReadGroup(1, Key{1, 2, 3, 4})
	assert.Error(t, err)
}

func TestArchiveVersion(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	assert.Nil(t, a.Version())
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.SetVersion(7))
	require.NoError(t, a.Close())

	a = openArchive(t, store, 0)
	require.NotNil(t, a.Version())
	assert.Equal(t, uint32(7), *a.Version())
}

func TestArchivePromotedToVersioned(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.WriteGroup(&Group{ID: 70000, Files: []File{{Data: []byte("far")}}}, ZeroKey))
	require.NoError(t, a.Close())

	a = openArchive(t, store, 0)
	require.NotNil(t, a.Version())
	assert.Zero(t, *a.Version())
	format, err := a.Settings().Format()
	require.NoError(t, err)
	assert.Equal(t, settings.FormatVersionedLarge, format)
	assert.Equal(t, []uint32{1, 70000}, a.GroupIDs())
}

func TestArchiveSettingsCompression(t *testing.T) {
	t.Parallel()

	for _, c := range []Compression{CompressionNone, CompressionBzip2, CompressionGzip, CompressionLZMA} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()

			store := testutil.NewMemStore()
			a := openArchive(t, store, 0, WithSettingsCompression(c))
			require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
			require.NoError(t, a.Close())

			raw, err := store.Read(MasterIndex, 0)
			require.NoError(t, err)
			assert.Equal(t, byte(c), raw[0])
			assert.Equal(t, []uint32{1}, openArchive(t, store, 0).GroupIDs())
		})
	}
}

func TestArchiveWriteInvalid(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)

	assert.Error(t, a.WriteGroup(&Group{ID: 1}, ZeroKey))
	assert.Error(t, a.WriteGroup(&Group{ID: 1, Files: []File{{ID: 2}, {ID: 1}}}, ZeroKey))
	assert.False(t, a.Dirty())
	assert.Empty(t, store.IDs(0))
}

func TestArchiveReadOnlyStore(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.Close())

	store.SetReadOnly(true)
	a = openArchive(t, store, 0)
	err := a.WriteGroup(sampleGroup(2, 1), ZeroKey)
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, a.RemoveGroup(1), ErrReadOnly)
	assert.False(t, a.Dirty())
	assert.Equal(t, []uint32{1}, a.GroupIDs())
	require.NoError(t, a.Close())
}

func TestOpenArchiveErrors(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()

	_, err := OpenArchive(store, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = OpenArchive(store, MasterIndex)
	assert.Error(t, err)

	_, err = OpenArchive(store, 0, WithCompression(Compression(9)))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	require.NoError(t, store.Write(MasterIndex, 0, []byte{7, 0, 0, 0, 0}))
	_, err = OpenArchive(store, 0)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestArchiveClosed(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	require.NoError(t, a.Close())

	_, err := a.ReadGroup(1, ZeroKey)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey), ErrClosed)
	assert.ErrorIs(t, a.RemoveGroup(1), ErrClosed)
	assert.ErrorIs(t, a.SetVersion(1), ErrClosed)
	_, err = a.Verify(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestArchiveVerify(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0, WithWhirlpool(true), WithSizes(true))
	for id := uint32(1); id <= 5; id++ {
		key := ZeroKey
		if id%2 == 0 {
			key = testKey
		}
		require.NoError(t, a.WriteGroup(sampleGroup(id, 2), key))
	}
	keys := VerifyWithKeys(func(_ uint8, group uint32) Key {
		if group%2 == 0 {
			return testKey
		}
		return ZeroKey
	})

	results, err := a.Verify(context.Background(), keys, VerifyWithWorkers(3))
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.OK(), "group %d: %v", r.Group, r.Err)
	}

	store.Corrupt(t, 0, 3, 12)
	require.NoError(t, store.Remove(0, 5))

	results, err = a.Verify(context.Background(), keys)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.ErrorIs(t, results[2].Err, ErrCorruption)
	assert.ErrorIs(t, results[4].Err, ErrNotFound)
	for _, i := range []int{0, 1, 3} {
		assert.True(t, results[i].OK(), "group %d: %v", results[i].Group, results[i].Err)
	}

	// Without keys the encrypted groups fail to decode.
	results, err = a.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, results[1].OK())
	assert.False(t, results[3].OK())
}

func TestArchiveStoresCopies(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	a := openArchive(t, store, 0)
	data := []byte("mutable")
	require.NoError(t, a.WriteGroup(&Group{ID: 1, Files: []File{{Data: data}}}, ZeroKey))
	copy(data, "XXXXXXX")

	got, err := a.ReadFile(1, 0, ZeroKey)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("mutable"), got))
}
