// Package persistence is the durable store for contract rows and
// per-chain cursors. Writes are batched on a single writer goroutine so
// the storage engine only ever sees one writer transaction at a time.
package persistence

import (
	"context"
	"sync"
	"time"

	"chainwatch/internal/config"
	"chainwatch/internal/core/db"
	"chainwatch/internal/errors"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

const (
	defaultBatchSize     = 100
	defaultBatchInterval = 500 * time.Millisecond
	backpressureFactor   = 10

	batchRetryBase    = time.Second
	batchRetryCap     = 30 * time.Second
	batchRetryAttempts = 5
)

// Store is the write-side of the persistence layer.
type Store interface {
	// Enqueue appends row to the pending write queue. It blocks if the
	// queue is at its high-water mark (backpressure).
	Enqueue(ctx context.Context, row types.ContractRow) error

	// AdvanceCursor enqueues a cursor update for chain. Multiple updates
	// for the same chain within a batch collapse to the last one.
	AdvanceCursor(ctx context.Context, chain types.ChainType, height uint64) error

	// ReadCursor returns the last durably processed block for chain, or
	// found=false if the chain has never been observed.
	ReadCursor(ctx context.Context, chain types.ChainType) (height uint64, found bool, err error)

	// Flush synchronously drains pending writes and returns how many
	// rows were persisted.
	Flush(ctx context.Context) (int, error)

	// Close flushes pending writes and releases resources.
	Close(ctx context.Context) error

	// Fatal reports batch writes that exhausted their retry budget on
	// the background writer path (not one driven by an explicit Flush
	// or Close call, whose errors already return to their caller). A
	// value received here means rows are being dropped and the caller
	// should initiate shutdown.
	Fatal() <-chan error
}

type cursorUpdate struct {
	chain  types.ChainType
	height uint64
}

type writeItem struct {
	row    *types.ContractRow
	cursor *cursorUpdate
}

type store struct {
	database      *db.DB
	log           logger.Logger
	batchSize     int
	batchInterval time.Duration

	mu     sync.Mutex
	queue  []writeItem
	notify chan struct{}

	flushReq  chan chan flushResult
	closeOnce sync.Once
	stop      chan struct{}
	stopped   chan struct{}
	fatal     chan error
}

type flushResult struct {
	count int
	err   error
}

// New builds a Store backed by database, starting its writer goroutine.
func New(database *db.DB, cfg config.PersistenceConfig, log logger.Logger) Store {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	interval := defaultBatchInterval
	if cfg.BatchIntervalMillis > 0 {
		interval = time.Duration(cfg.BatchIntervalMillis) * time.Millisecond
	}

	s := &store{
		database:      database,
		log:           log,
		batchSize:     batchSize,
		batchInterval: interval,
		notify:        make(chan struct{}, 1),
		flushReq:      make(chan chan flushResult),
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
		fatal:         make(chan error, 1),
	}

	go s.run()
	return s
}

func (s *store) Enqueue(ctx context.Context, row types.ContractRow) error {
	return s.push(ctx, writeItem{row: &row})
}

func (s *store) AdvanceCursor(ctx context.Context, chain types.ChainType, height uint64) error {
	return s.push(ctx, writeItem{cursor: &cursorUpdate{chain: chain, height: height}})
}

func (s *store) ReadCursor(ctx context.Context, chain types.ChainType) (uint64, bool, error) {
	return scanCursor(ctx, s.database, chain)
}

func (s *store) Fatal() <-chan error {
	return s.fatal
}

// push enqueues item, blocking while the queue is at the backpressure
// high-water mark.
func (s *store) push(ctx context.Context, item writeItem) error {
	for {
		s.mu.Lock()
		if len(s.queue) < s.batchSize*backpressureFactor {
			s.queue = append(s.queue, item)
			s.mu.Unlock()
			select {
			case s.notify <- struct{}{}:
			default:
			}
			return nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Flush blocks until every item enqueued before the call returns has been
// durably written.
func (s *store) Flush(ctx context.Context) (int, error) {
	reply := make(chan flushResult, 1)
	select {
	case s.flushReq <- reply:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.stopped:
		return 0, errors.NewPersistenceError("flush", context.Canceled)
	}

	select {
	case res := <-reply:
		return res.count, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		_, err = s.Flush(ctx)
		close(s.stop)
		<-s.stopped
	})
	return err
}

// run is the single dedicated writer goroutine: it batches on size or
// time, whichever comes first, and serializes every write transaction.
func (s *store) run() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.batchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.drainAndWrite(context.Background())
			return

		case reply := <-s.flushReq:
			count, err := s.drainAndWrite(context.Background())
			reply <- flushResult{count: count, err: err}

		case <-s.notify:
			s.maybeWriteFullBatch()

		case <-ticker.C:
			if _, err := s.drainAndWrite(context.Background()); err != nil {
				s.reportFatal(err)
			}
		}
	}
}

func (s *store) maybeWriteFullBatch() {
	s.mu.Lock()
	ready := len(s.queue) >= s.batchSize
	s.mu.Unlock()
	if ready {
		if _, err := s.drainAndWrite(context.Background()); err != nil {
			s.reportFatal(err)
		}
	}
}

// reportFatal delivers a batch-write failure that exhausted its retry
// budget to Fatal's channel. The channel is buffered by one; a later
// fatal error while the first is still unconsumed is dropped rather than
// blocking the writer goroutine, since the caller only needs to learn
// that persistence has failed, not see every subsequent failure.
func (s *store) reportFatal(err error) {
	select {
	case s.fatal <- err:
	default:
	}
}

// drainAndWrite takes every currently queued item and commits it in one
// transaction, retrying the whole batch with exponential backoff on
// failure.
func (s *store) drainAndWrite(ctx context.Context) (int, error) {
	s.mu.Lock()
	items := s.queue
	s.queue = nil
	s.mu.Unlock()

	if len(items) == 0 {
		return 0, nil
	}

	rows, cursors := splitBatch(items)

	backoff := batchRetryBase
	var lastErr error
	for attempt := 0; attempt < batchRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > batchRetryCap {
				backoff = batchRetryCap
			}
		}

		if err := writeBatch(ctx, s.database, rows, cursors); err != nil {
			lastErr = err
			s.log.Warn("persistence batch write failed, retrying",
				logger.Int("attempt", attempt+1), logger.Error(err))
			continue
		}
		return len(rows), nil
	}

	return 0, errors.NewPersistenceError("write_batch", lastErr)
}

// splitBatch separates row upserts from cursor updates, collapsing
// cursor updates per chain so the last one wins.
func splitBatch(items []writeItem) ([]types.ContractRow, map[types.ChainType]uint64) {
	var rows []types.ContractRow
	cursors := map[types.ChainType]uint64{}

	for _, item := range items {
		if item.row != nil {
			rows = append(rows, *item.row)
		}
		if item.cursor != nil {
			cursors[item.cursor.chain] = item.cursor.height
		}
	}
	return rows, cursors
}
