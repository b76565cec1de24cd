package js5

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/js5/disk"
	"github.com/meigma/js5/internal/testutil"
)

func openCache(t *testing.T, dir string, opts ...Option) *Cache {
	t.Helper()
	c, err := Open(dir, opts...)
	require.NoError(t, err)
	return c
}

func TestCacheWriteReopenRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := openCache(t, dir, WithArchiveOptions(WithWhirlpool(true)))
	assert.Zero(t, c.ArchiveCount())

	for range 2 {
		a, err := c.CreateArchive()
		require.NoError(t, err)
		require.NoError(t, a.WriteGroup(sampleGroup(uint32(a.ID())+1, 2), ZeroKey))
		require.NoError(t, a.WriteGroup(&Group{ID: 70000, Files: []File{{Data: testutil.Payload(9, 4000)}}}, testKey))
	}
	assert.Equal(t, 2, c.ArchiveCount())
	require.NoError(t, c.Close())

	for _, name := range []string{disk.DataFileName, disk.IndexFileName(0), disk.IndexFileName(1), disk.IndexFileName(MasterIndex)} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	c = openCache(t, dir, WithReadOnly(true))
	defer c.Close()
	assert.Equal(t, 2, c.ArchiveCount())
	for id := range uint8(2) {
		a, err := c.Archive(id)
		require.NoError(t, err)
		assert.Equal(t, []uint32{uint32(id) + 1, 70000}, a.GroupIDs())

		g, err := a.ReadGroup(uint32(id)+1, ZeroKey)
		require.NoError(t, err)
		assertGroup(t, sampleGroup(uint32(id)+1, 2), g)

		data, err := a.ReadFile(70000, 0, testKey)
		require.NoError(t, err)
		assert.Equal(t, testutil.Payload(9, 4000), data)

		gs, _ := a.Group(70000)
		assert.NotNil(t, gs.Whirlpool)
	}
}

func TestCacheArchiveIsShared(t *testing.T) {
	t.Parallel()

	c := openCache(t, t.TempDir())
	defer c.Close()

	a, err := c.Archive(0)
	require.NoError(t, err)
	b, err := c.Archive(0)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = c.Archive(1)
	assert.ErrorIs(t, err, ErrNotFound)

	// A closed archive is reopened from the store.
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, a.Close())
	b, err = c.Archive(0)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, []uint32{1}, b.GroupIDs())
}

func TestCacheReadOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Open(dir, WithReadOnly(true))
	require.Error(t, err)

	c := openCache(t, dir)
	a, err := c.Archive(0)
	require.NoError(t, err)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, c.Close())

	c = openCache(t, dir, WithReadOnly(true))
	a, err = c.Archive(0)
	require.NoError(t, err)
	assert.ErrorIs(t, a.WriteGroup(sampleGroup(2, 1), ZeroKey), ErrReadOnly)
	assert.ErrorIs(t, a.RemoveGroup(1), ErrReadOnly)
	_, err = a.ReadGroup(1, ZeroKey)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestCacheClose(t *testing.T) {
	t.Parallel()

	c := openCache(t, t.TempDir())
	a, err := c.Archive(0)
	require.NoError(t, err)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, a.Dirty())

	_, err = c.Archive(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Verify(context.Background(), nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCacheCloseRetryAfterFailedCommit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := openCache(t, dir)
	a, err := c.Archive(0)
	require.NoError(t, err)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))

	a.cfg.settingsCompression = Compression(9)
	require.ErrorIs(t, c.Close(), ErrUnsupportedFormat)
	assert.True(t, a.Dirty())

	// The store is still usable and the archive still reachable.
	b, err := c.Archive(0)
	require.NoError(t, err)
	assert.Same(t, a, b)
	_, err = a.ReadGroup(1, ZeroKey)
	require.NoError(t, err)

	a.cfg.settingsCompression = CompressionGzip
	require.NoError(t, c.Close())
	assert.False(t, a.Dirty())

	c = openCache(t, dir, WithReadOnly(true))
	defer c.Close()
	a, err = c.Archive(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, a.GroupIDs())
}

func TestCacheUnclosedArchiveLosesSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := disk.Open(dir)
	require.NoError(t, err)
	a, err := OpenArchive(store, 0)
	require.NoError(t, err)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	// Close the files without committing the archive.
	require.NoError(t, store.Close())

	c := openCache(t, dir)
	defer c.Close()
	assert.Equal(t, 1, c.ArchiveCount())
	b, err := c.Archive(0)
	require.NoError(t, err)
	assert.Empty(t, b.GroupIDs())
}

func TestCacheVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := openCache(t, dir, WithArchiveOptions(WithSizes(true), WithUncompressedCRC(true)))
	for range 3 {
		a, err := c.CreateArchive()
		require.NoError(t, err)
		for id := uint32(0); id < 4; id++ {
			require.NoError(t, a.WriteGroup(sampleGroup(id, 3), ZeroKey))
		}
	}
	require.NoError(t, c.Close())

	c = openCache(t, dir)
	defer c.Close()

	results, err := c.Verify(context.Background(), nil, VerifyWithWorkers(2))
	require.NoError(t, err)
	require.Len(t, results, 12)
	for _, r := range results {
		assert.True(t, r.OK(), "archive %d group %d: %v", r.Archive, r.Group, r.Err)
	}

	// Replace a container behind the archive's back.
	require.NoError(t, c.Store().Write(1, 2, []byte{0, 0, 0, 0, 1, 'x'}))

	results, err = c.Verify(context.Background(), []uint8{1})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, uint8(1), results[2].Archive)
	assert.Equal(t, uint32(2), results[2].Group)
	assert.ErrorIs(t, results[2].Err, ErrCorruption)

	_, err = c.Verify(context.Background(), []uint8{3})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	c := openCache(t, t.TempDir(), WithLogger(logger))
	a, err := c.Archive(0)
	require.NoError(t, err)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, c.Close())

	assert.Contains(t, buf.String(), "committed archive settings")
}

func TestCacheDiskOptions(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "cache")
	c := openCache(t, dir, WithDiskOptions(disk.WithFilePerm(0o600)))
	a, err := c.Archive(0)
	require.NoError(t, err)
	require.NoError(t, a.WriteGroup(sampleGroup(1, 1), ZeroKey))
	require.NoError(t, c.Close())

	info, err := os.Stat(filepath.Join(dir, disk.DataFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
