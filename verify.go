package js5

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meigma/js5/internal/batch"
)

// KeyFunc returns the XTEA key of a group.
type KeyFunc func(archive uint8, group uint32) Key

// VerifyResult is the outcome of checking one group.
type VerifyResult = batch.Result

// VerifyOption configures Verify.
type VerifyOption func(*verifyConfig)

type verifyConfig struct {
	keys           KeyFunc
	workers        int
	readAheadBytes int64
}

// VerifyWithKeys sets the key source for encrypted groups.
// By default every group is decoded with ZeroKey.
func VerifyWithKeys(keys KeyFunc) VerifyOption {
	return func(c *verifyConfig) {
		c.keys = keys
	}
}

// VerifyWithWorkers sets the number of checking workers.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func VerifyWithWorkers(n int) VerifyOption {
	return func(c *verifyConfig) {
		c.workers = n
	}
}

// VerifyWithReadAheadBytes caps the container bytes read but not yet
// checked. The default is 64 MiB; 0 disables the cap.
func VerifyWithReadAheadBytes(limit int64) VerifyOption {
	return func(c *verifyConfig) {
		c.readAheadBytes = limit
	}
}

// Verify checks every group of the given archives, or of all archives when
// none are named. Each group's stored container is matched against the
// checksums and sizes in its settings and then fully decoded.
//
// Failing groups are reported in the results; the error is reserved for
// archives that cannot be opened and for cancellation.
func (c *Cache) Verify(ctx context.Context, archives []uint8, opts ...VerifyOption) ([]VerifyResult, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if len(archives) == 0 {
		for id := range c.store.ArchiveCount() {
			archives = append(archives, uint8(id)) //nolint:gosec // archive ids fit in a byte
		}
	}
	open := make([]*Archive, 0, len(archives))
	for _, id := range archives {
		if int(id) >= c.store.ArchiveCount() {
			return nil, fmt.Errorf("%w: archive %d", ErrNotFound, id)
		}
		a, err := c.Archive(id)
		if err != nil {
			return nil, err
		}
		open = append(open, a)
	}
	return verify(ctx, c.store, open, c.logger, opts...)
}

// Verify checks every group of the archive, see Cache.Verify.
func (a *Archive) Verify(ctx context.Context, opts ...VerifyOption) ([]VerifyResult, error) {
	if a.closed {
		return nil, ErrClosed
	}
	return verify(ctx, a.store, []*Archive{a}, a.cfg.logger, opts...)
}

func verify(ctx context.Context, store Store, archives []*Archive, logger *slog.Logger, opts ...VerifyOption) ([]VerifyResult, error) {
	cfg := verifyConfig{readAheadBytes: 64 << 20}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.keys == nil {
		cfg.keys = func(uint8, uint32) Key { return ZeroKey }
	}

	// The source runs on the processor's producer goroutine only, so the
	// store still sees a single caller.
	ai, gi := 0, 0
	var ids []uint32
	src := func() (*batch.Task, error) {
		for ai < len(archives) {
			a := archives[ai]
			if ids == nil {
				ids = a.GroupIDs()
			}
			if gi == len(ids) {
				ai, gi, ids = ai+1, 0, nil
				continue
			}
			gs := a.settings.Groups[ids[gi]]
			gi++

			task := &batch.Task{Archive: a.id, Group: gs, Key: cfg.keys(a.id, gs.ID)}
			data, err := store.Read(a.id, gs.ID)
			switch {
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorruption):
				task.ReadErr = err
			case err != nil:
				return nil, fmt.Errorf("archive %d group %d: %w", a.id, gs.ID, err)
			default:
				task.Data = data
			}
			return task, nil
		}
		return nil, nil
	}

	p := batch.NewProcessor(
		batch.WithWorkers(cfg.workers),
		batch.WithReadAheadBytes(cfg.readAheadBytes),
		batch.WithProcessorLogger(logger),
	)
	return p.Process(ctx, src)
}
