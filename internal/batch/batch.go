// Package batch verifies stored groups against their archive settings.
//
// Containers are read serially from a single producer so the underlying
// store is never accessed concurrently; hashing and decoding run on a
// worker pool.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/meigma/js5/container"
	"github.com/meigma/js5/group"
	"github.com/meigma/js5/internal/checksum"
	"github.com/meigma/js5/internal/js5type"
	"github.com/meigma/js5/internal/xtea"
	"github.com/meigma/js5/settings"
)

// Task is one raw group container to check.
type Task struct {
	Archive uint8
	Group   *settings.Group
	Data    []byte
	Key     xtea.Key

	// ReadErr records a failed store read; the task is reported without
	// being checked.
	ReadErr error
}

// Result is the outcome of checking one group.
type Result struct {
	Archive uint8
	Group   uint32
	Err     error
}

// OK reports whether the group passed every check.
func (r Result) OK() bool { return r.Err == nil }

// Source yields the next task, or nil once exhausted. It is only called
// from the producer goroutine.
type Source func() (*Task, error)

// Processor checks group containers on a pool of workers.
type Processor struct {
	workers        int // 0 = GOMAXPROCS, <0 = serial
	readAheadBytes int64
	logger         *slog.Logger
}

func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of checking workers.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithReadAheadBytes caps the bytes read but not yet checked.
// A value of 0 disables the budget.
func WithReadAheadBytes(limit int64) ProcessorOption {
	return func(p *Processor) {
		if limit < 0 {
			limit = 0
		}
		p.readAheadBytes = limit
	}
}

// WithProcessorLogger sets the logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a new verifier.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) workerCount() int {
	switch {
	case p.workers < 0:
		return 1
	case p.workers == 0:
		return max(1, runtime.GOMAXPROCS(0))
	default:
		return p.workers
	}
}

// Process drains src and checks every task. Results are ordered by archive
// then group id. A group failing its checks is reported in its Result; the
// returned error is reserved for source failures and cancellation.
func (p *Processor) Process(ctx context.Context, src Source) ([]Result, error) {
	workers := p.workerCount()

	var budget *semaphore.Weighted
	if p.readAheadBytes > 0 {
		budget = semaphore.NewWeighted(p.readAheadBytes)
	}

	tasks := make(chan *Task, workers)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(tasks)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			task, err := src()
			if err != nil {
				return err
			}
			if task == nil {
				return nil
			}
			if budget != nil {
				if err := budget.Acquire(ctx, p.weight(task)); err != nil {
					return err
				}
			}
			select {
			case tasks <- task:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	var (
		mu      sync.Mutex
		results []Result
	)
	for range workers {
		eg.Go(func() error {
			for task := range tasks {
				res := Result{Archive: task.Archive, Group: task.Group.ID, Err: Check(task)}
				if budget != nil {
					budget.Release(p.weight(task))
				}
				if res.Err != nil {
					p.log().Warn("group failed verification",
						"archive", res.Archive,
						"group", res.Group,
						"error", res.Err)
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(results, func(a, b Result) int {
		if a.Archive != b.Archive {
			return int(a.Archive) - int(b.Archive)
		}
		switch {
		case a.Group < b.Group:
			return -1
		case a.Group > b.Group:
			return 1
		}
		return 0
	})
	return results, nil
}

// weight is the budget charge for a task, clamped so a single oversized
// container cannot deadlock the producer.
func (p *Processor) weight(t *Task) int64 {
	return min(max(int64(len(t.Data)), 1), p.readAheadBytes)
}

// Check verifies one raw container against its settings: checksums over the
// stored payload first, then a full decode with the task's key.
func Check(t *Task) error {
	if t.ReadErr != nil {
		return t.ReadErr
	}
	gs := t.Group
	if len(t.Data) == 0 {
		return fmt.Errorf("%w: group %d has no data", js5type.ErrNotFound, gs.ID)
	}

	n, err := container.PayloadLen(t.Data)
	if err != nil {
		return err
	}
	stored := t.Data[:n]
	if crc := checksum.CRC(stored); crc != gs.CRC {
		return fmt.Errorf("%w: crc %08x, want %08x", js5type.ErrCorruption, uint32(crc), uint32(gs.CRC)) //nolint:gosec // hex display
	}
	if gs.Whirlpool != nil && !bytes.Equal(checksum.Whirlpool(stored)[:], gs.Whirlpool[:]) {
		return fmt.Errorf("%w: whirlpool digest mismatch", js5type.ErrCorruption)
	}
	if gs.Sizes != nil && uint64(gs.Sizes.Compressed) != uint64(n) {
		return fmt.Errorf("%w: stored size %d, want %d", js5type.ErrSizeMismatch, n, gs.Sizes.Compressed)
	}

	// Decode decrypts in place.
	c, err := container.Decode(bytes.Clone(t.Data), t.Key)
	if err != nil {
		return err
	}
	if gs.Sizes != nil && uint64(gs.Sizes.Uncompressed) != uint64(len(c.Data)) {
		return fmt.Errorf("%w: uncompressed size %d, want %d", js5type.ErrSizeMismatch, len(c.Data), gs.Sizes.Uncompressed)
	}
	if gs.UncompressedCRC != nil && checksum.CRC(c.Data) != *gs.UncompressedCRC {
		return fmt.Errorf("%w: uncompressed crc mismatch", js5type.ErrCorruption)
	}
	if _, err := group.Decode(c.Data, len(gs.Files)); err != nil {
		return err
	}
	return nil
}
