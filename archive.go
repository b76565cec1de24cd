package js5

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/meigma/js5/container"
	"github.com/meigma/js5/group"
	"github.com/meigma/js5/internal/checksum"
	"github.com/meigma/js5/settings"
)

// Archive is an open archive: its settings held in memory and the store its
// groups live in.
//
// Group data is written through to the store immediately; the settings
// describing it are written only by Close. An Archive is not safe for
// concurrent use.
type Archive struct {
	id       uint8
	store    Store
	settings *settings.Settings
	columns  uint8 // optional settings columns recorded on write
	dirty    bool
	closed   bool
	cfg      archiveConfig
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.cfg.logger
}

// OpenArchive loads the settings of archive id from store.
//
// id may equal store.ArchiveCount(): the archive is then new and its index
// file is created by the first WriteGroup. Missing settings are treated as
// an empty archive.
func OpenArchive(store Store, id uint8, opts ...ArchiveOption) (*Archive, error) {
	if id == MasterIndex {
		return nil, fmt.Errorf("archive %d: reserved for the master index", id)
	}
	if int(id) > store.ArchiveCount() {
		return nil, fmt.Errorf("%w: archive %d (cache has %d)", ErrNotFound, id, store.ArchiveCount())
	}

	cfg := defaultArchiveConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.compression.Valid(); err != nil {
		return nil, err
	}
	if err := cfg.settingsCompression.Valid(); err != nil {
		return nil, err
	}

	s, err := loadSettings(store, id)
	if err != nil {
		return nil, fmt.Errorf("archive %d: %w", id, err)
	}

	a := &Archive{
		id:       id,
		store:    store,
		settings: s,
		columns:  s.Flags() &^ settings.FlagNameHashes,
		cfg:      cfg,
	}
	if cfg.whirlpool {
		a.columns |= settings.FlagWhirlpool
	}
	if cfg.sizes {
		a.columns |= settings.FlagSizes
	}
	if cfg.uncompressedCRC {
		a.columns |= settings.FlagUncompressedCRC
	}
	a.log().Debug("opened archive", "archive", id, "groups", len(s.Groups))
	return a, nil
}

func loadSettings(store Store, id uint8) (*settings.Settings, error) {
	b, err := store.Read(MasterIndex, uint32(id))
	switch {
	case errors.Is(err, ErrNotFound):
		return settings.New(), nil
	case err != nil:
		return nil, err
	case len(b) == 0:
		return settings.New(), nil
	}
	c, err := container.Decode(b, ZeroKey)
	if err != nil {
		return nil, fmt.Errorf("settings container: %w", err)
	}
	s, err := settings.Decode(c.Data)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

// ID returns the archive id.
func (a *Archive) ID() uint8 { return a.id }

// Settings returns the in-memory settings. Callers must not modify them.
func (a *Archive) Settings() *settings.Settings { return a.settings }

// GroupIDs returns the archive's group ids in ascending order.
func (a *Archive) GroupIDs() []uint32 { return a.settings.GroupIDs() }

// Group returns the settings entry of group id.
func (a *Archive) Group(id uint32) (*settings.Group, bool) {
	g, ok := a.settings.Groups[id]
	return g, ok
}

// Version returns the settings version, or nil for an unversioned archive.
func (a *Archive) Version() *uint32 { return a.settings.Version }

// SetVersion stamps the settings with v, making the archive versioned.
func (a *Archive) SetVersion(v uint32) error {
	if a.closed {
		return ErrClosed
	}
	a.settings.Version = &v
	a.dirty = true
	return nil
}

// Dirty reports whether Close will write new settings.
func (a *Archive) Dirty() bool { return a.dirty }

// ReadGroup reads and decodes group id, decrypting it with key.
func (a *Archive) ReadGroup(id uint32, key Key) (*Group, error) {
	if a.closed {
		return nil, ErrClosed
	}
	gs, ok := a.settings.Groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: archive %d group %d", ErrNotFound, a.id, id)
	}
	return a.readGroup(gs, key)
}

// ReadGroupByName reads the first group, by ascending id, whose name hash
// matches name.
func (a *Archive) ReadGroupByName(name string, key Key) (*Group, error) {
	if a.closed {
		return nil, ErrClosed
	}
	gs, ok := a.settings.FindByName(NameHash(name))
	if !ok {
		return nil, fmt.Errorf("%w: archive %d group %q", ErrNotFound, a.id, name)
	}
	return a.readGroup(gs, key)
}

// ReadFile reads a single file of group groupID.
func (a *Archive) ReadFile(groupID, fileID uint32, key Key) ([]byte, error) {
	g, err := a.ReadGroup(groupID, key)
	if err != nil {
		return nil, err
	}
	f, ok := g.File(fileID)
	if !ok {
		return nil, fmt.Errorf("%w: archive %d group %d file %d", ErrNotFound, a.id, groupID, fileID)
	}
	return f.Data, nil
}

func (a *Archive) readGroup(gs *settings.Group, key Key) (*Group, error) {
	b, err := a.store.Read(a.id, gs.ID)
	if err != nil {
		return nil, fmt.Errorf("archive %d group %d: %w", a.id, gs.ID, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: archive %d group %d has no data", ErrNotFound, a.id, gs.ID)
	}
	c, err := container.Decode(b, key)
	if err != nil {
		return nil, fmt.Errorf("archive %d group %d: %w", a.id, gs.ID, err)
	}
	d, err := group.Decode(c.Data, len(gs.Files))
	if err != nil {
		return nil, fmt.Errorf("archive %d group %d: %w", a.id, gs.ID, err)
	}

	g := &Group{
		ID:       gs.ID,
		NameHash: gs.NameHash,
		Version:  gs.Version,
		Chunks:   d.Chunks,
		Files:    make([]File, len(gs.Files)),
	}
	for i, fs := range gs.Files {
		g.Files[i] = File{ID: fs.ID, NameHash: fs.NameHash, Data: d.Files[i]}
	}
	return g, nil
}

// WriteGroup encodes g, encrypts it with key and writes it to the store,
// replacing any existing group with the same id. The settings entry is
// updated in memory and persisted by Close.
func (a *Archive) WriteGroup(g *Group, key Key) error {
	if a.closed {
		return ErrClosed
	}
	if err := g.validate(); err != nil {
		return fmt.Errorf("archive %d: %w", a.id, err)
	}

	files := make([][]byte, len(g.Files))
	for i, f := range g.Files {
		files[i] = f.Data
	}
	raw, err := group.Encode(&group.Data{Files: files, Chunks: g.Chunks})
	if err != nil {
		return fmt.Errorf("archive %d group %d: %w", a.id, g.ID, err)
	}

	c := &container.Container{
		Data:        raw,
		Key:         key,
		Compression: a.cfg.compression,
	}
	if !a.cfg.noVersionTrailer {
		v := uint16(g.Version) //nolint:gosec // the trailer holds the low 16 bits
		c.Version = &v
	}
	enc, err := c.Encode()
	if err != nil {
		return fmt.Errorf("archive %d group %d: %w", a.id, g.ID, err)
	}
	n, err := container.PayloadLen(enc)
	if err != nil {
		return fmt.Errorf("archive %d group %d: %w", a.id, g.ID, err)
	}
	stored := enc[:n]

	gs := &settings.Group{
		ID:       g.ID,
		Version:  g.Version,
		CRC:      checksum.CRC(stored),
		NameHash: g.NameHash,
		Files:    make([]settings.File, len(g.Files)),
	}
	for i, f := range g.Files {
		gs.Files[i] = settings.File{ID: f.ID, NameHash: f.NameHash}
	}
	if a.columns&settings.FlagWhirlpool != 0 {
		gs.Whirlpool = checksum.Whirlpool(stored)
	}
	if a.columns&settings.FlagSizes != 0 {
		gs.Sizes = &settings.Sizes{
			Compressed:   uint32(n),        //nolint:gosec // bounded by the store's container limit
			Uncompressed: uint32(len(raw)), //nolint:gosec // group payloads fit in memory
		}
	}
	if a.columns&settings.FlagUncompressedCRC != 0 {
		crc := checksum.CRC(raw)
		gs.UncompressedCRC = &crc
	}

	if err := a.store.Write(a.id, g.ID, enc); err != nil {
		return fmt.Errorf("archive %d group %d: %w", a.id, g.ID, err)
	}
	a.settings.Groups[g.ID] = gs
	a.dirty = true
	a.log().Debug("wrote group",
		"archive", a.id,
		"group", g.ID,
		"files", len(g.Files),
		"stored", len(enc),
		"compression", a.cfg.compression)
	return nil
}

// RemoveGroup deletes group id from the store and the settings.
func (a *Archive) RemoveGroup(id uint32) error {
	if a.closed {
		return ErrClosed
	}
	if _, ok := a.settings.Groups[id]; !ok {
		return fmt.Errorf("%w: archive %d group %d", ErrNotFound, a.id, id)
	}
	if err := a.store.Remove(a.id, id); err != nil {
		return fmt.Errorf("archive %d group %d: %w", a.id, id, err)
	}
	delete(a.settings.Groups, id)
	a.dirty = true
	return nil
}

// Close writes the settings if any group changed and releases the archive.
// Close is idempotent; after a failed commit the archive stays open so the
// caller may retry.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	if a.dirty {
		if err := a.commit(); err != nil {
			return err
		}
	}
	a.closed = true
	return nil
}

func (a *Archive) commit() error {
	if a.settings.Version == nil {
		if _, err := a.settings.Format(); errors.Is(err, ErrUnsupportedFormat) {
			var v uint32
			a.settings.Version = &v
			a.log().Warn("promoting archive to versioned settings", "archive", a.id, "reason", err)
		}
	}
	b, err := settings.Encode(a.settings)
	if err != nil {
		return fmt.Errorf("archive %d settings: %w", a.id, err)
	}
	enc, err := (&container.Container{
		Data:        b,
		Compression: a.cfg.settingsCompression,
	}).Encode()
	if err != nil {
		return fmt.Errorf("archive %d settings: %w", a.id, err)
	}
	if err := a.store.Write(MasterIndex, uint32(a.id), enc); err != nil {
		return fmt.Errorf("archive %d settings: %w", a.id, err)
	}
	a.dirty = false
	a.log().Info("committed archive settings",
		"archive", a.id,
		"groups", len(a.settings.Groups),
		"bytes", len(enc))
	return nil
}
