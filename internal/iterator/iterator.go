// Package iterator implements the Block Iterator and Tip Tracker: it
// delivers every block in a configured height range exactly once, in
// ascending order, with its transactions, while fetching ahead in parallel.
package iterator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noahsaso/argus-sub001/internal/constants"
	"github.com/noahsaso/argus-sub001/internal/model"
	"github.com/noahsaso/argus-sub001/internal/node"
)

// BlockHeader is the minimal per-block data delivered to OnBlock.
type BlockHeader struct {
	Height     uint64
	TimeUnixMs int64
}

// Callbacks are invoked by Iterate. OnBlock and OnTx run inline on the
// consumer loop and must return promptly; the ordering guarantee depends
// on it.
type Callbacks struct {
	OnBlock func(header BlockHeader)
	OnTx    func(tx model.DecodedTx, header BlockHeader)
	OnError func(err error)
}

// Config configures a single Iterate run.
type Config struct {
	StartHeight uint64
	// EndHeight is inclusive; zero means unbounded (follow the chain tip).
	EndHeight uint64
	// BufferSize bounds the number of in-flight block fetches.
	BufferSize int
	// ThrowErrors, when true, re-raises the first Block/Tx error after
	// reporting it via OnError, terminating Iterate.
	ThrowErrors bool
}

type bufferedEntry struct {
	block *node.FetchedBlock
	err   error
}

// Iterator drives the fetch-ahead / ordered-consume pipeline.
type Iterator struct {
	client Client
	logger *zap.Logger
	config Config
	tip    *tipTracker

	stopped atomic.Bool

	bufMu   sync.Mutex
	bufCond *sync.Cond
	buffer  map[uint64]bufferedEntry
}

// New constructs an Iterator. BufferSize defaults to
// constants.DefaultBufferSize when unset.
func New(client Client, logger *zap.Logger, config Config) *Iterator {
	if config.BufferSize <= 0 {
		config.BufferSize = constants.DefaultBufferSize
	}
	it := &Iterator{
		client: client,
		logger: logger,
		config: config,
		buffer: make(map[uint64]bufferedEntry),
		tip:    newTipTracker(client, logger),
	}
	it.bufCond = sync.NewCond(&it.bufMu)
	return it
}

// StopFetching signals a clean shutdown. Iterate drains any buffered
// blocks already fetched, then returns.
func (it *Iterator) StopFetching() {
	it.stopped.Store(true)
	it.bufMu.Lock()
	it.bufCond.Broadcast()
	it.bufMu.Unlock()
}

// Iterate begins consumption and blocks until stopped, the end height is
// reached, or ctx is cancelled.
func (it *Iterator) Iterate(ctx context.Context, callbacks Callbacks) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Wake any blocked consumer wait when the run context ends, even if
	// that happens via parent cancellation rather than StopFetching.
	go func() {
		<-ctx.Done()
		it.bufMu.Lock()
		it.bufCond.Broadcast()
		it.bufMu.Unlock()
	}()

	it.tip.run(ctx)
	if err := it.tip.WaitReady(ctx); err != nil {
		return err
	}

	startHeight := it.config.StartHeight
	earliest, _, err := it.client.Status(ctx)
	if err != nil {
		return err
	}
	minStart := earliest + constants.DefaultEarliestHeightMargin
	if startHeight < minStart {
		if callbacks.OnError != nil {
			callbacks.OnError(&StartHeightTooLowError{Requested: startHeight, Clamped: minStart})
		}
		startHeight = minStart
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		it.fetchLoop(ctx, startHeight)
	}()

	runErr := it.consumeLoop(ctx, startHeight, callbacks)
	cancel()
	wg.Wait()
	return runErr
}

func (it *Iterator) fetchLoop(ctx context.Context, startHeight uint64) {
	sem := make(chan struct{}, it.config.BufferSize)
	var wg sync.WaitGroup
	defer wg.Wait()

	height := startHeight
	for {
		if it.stopped.Load() {
			return
		}
		if it.config.EndHeight > 0 && height > it.config.EndHeight {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		for it.tip.Latest() < height {
			select {
			case <-ctx.Done():
				return
			case <-time.After(constants.DefaultTipPollInterval):
			}
			if it.stopped.Load() {
				return
			}
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		wg.Add(1)
		go func(h uint64) {
			defer wg.Done()
			defer func() { <-sem }()
			it.fetchOne(ctx, h)
		}(height)

		height++
	}
}

func (it *Iterator) fetchOne(ctx context.Context, height uint64) {
	fetched, err := it.fetchWithRetry(ctx, height)
	it.storeBuffered(height, fetched, err)
}

func (it *Iterator) fetchWithRetry(ctx context.Context, height uint64) (*node.FetchedBlock, error) {
	attempt := 0
	delay := constants.DefaultNodeReadBaseDelay

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		fb, err := it.client.FetchBlock(ctx, height)
		if err == nil {
			return fb, nil
		}

		switch {
		case isHeightNotYetCommitted(err):
			it.logger.Debug("block not yet committed, retrying same height", zap.Uint64("height", height))
			if werr := it.sleep(ctx, constants.DefaultBlockNotYetCommittedRetryDelay); werr != nil {
				return nil, werr
			}
			continue
		case isRateLimit(err):
			it.logger.Warn("rate limited fetching block, backing off", zap.Uint64("height", height))
			if werr := it.sleep(ctx, constants.RateLimitRetryDelay); werr != nil {
				return nil, werr
			}
			continue
		}

		attempt++
		if attempt >= constants.DefaultNodeReadMaxAttempts {
			return nil, err
		}
		it.logger.Warn("retrying block fetch",
			zap.Uint64("height", height),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if werr := it.sleep(ctx, delay); werr != nil {
			return nil, werr
		}
		delay *= 2
		if delay > constants.MaxWebSocketReconnectBackoff {
			delay = constants.MaxWebSocketReconnectBackoff
		}
	}
}

func (it *Iterator) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (it *Iterator) storeBuffered(height uint64, fetched *node.FetchedBlock, err error) {
	it.bufMu.Lock()
	if err != nil {
		it.buffer[height] = bufferedEntry{err: err}
	} else {
		it.buffer[height] = bufferedEntry{block: fetched}
	}
	it.bufCond.Broadcast()
	it.bufMu.Unlock()
}

func (it *Iterator) consumeLoop(ctx context.Context, startHeight uint64, callbacks Callbacks) error {
	current := startHeight
	for {
		if it.config.EndHeight > 0 && current > it.config.EndHeight {
			return nil
		}

		entry, ok := it.waitForEntry(ctx, current)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}

		if entry.err != nil {
			blockErr := &BlockError{Height: current, Err: entry.err}
			if callbacks.OnError != nil {
				callbacks.OnError(blockErr)
			}
			if it.config.ThrowErrors {
				return blockErr
			}
			current++
			continue
		}

		header := BlockHeader{Height: entry.block.Height, TimeUnixMs: entry.block.TimeUnixMs}
		if callbacks.OnBlock != nil {
			callbacks.OnBlock(header)
		}

		if terminated := it.emitTxs(entry.block, header, callbacks); terminated != nil {
			return terminated
		}

		current++
	}
}

func (it *Iterator) emitTxs(block *node.FetchedBlock, header BlockHeader, callbacks Callbacks) error {
	for _, tx := range block.Txs {
		if decodeErr, failed := block.TxErrors[tx.Index]; failed {
			txErr := &TxError{Height: header.Height, Index: tx.Index, Err: decodeErr}
			if callbacks.OnError != nil {
				callbacks.OnError(txErr)
			}
			if it.config.ThrowErrors {
				return txErr
			}
			continue
		}
		if callbacks.OnTx != nil {
			callbacks.OnTx(tx, header)
		}
	}
	return nil
}

// waitForEntry blocks until the buffer holds an entry for height, the
// iterator is stopped, or ctx ends. The returned bool is false in the
// latter two cases.
func (it *Iterator) waitForEntry(ctx context.Context, height uint64) (bufferedEntry, bool) {
	it.bufMu.Lock()
	defer it.bufMu.Unlock()

	for {
		if entry, ok := it.buffer[height]; ok {
			delete(it.buffer, height)
			return entry, true
		}
		if it.stopped.Load() || ctx.Err() != nil {
			return bufferedEntry{}, false
		}
		it.bufCond.Wait()
	}
}

func isHeightNotYetCommitted(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "must be less than or equal to the current blockchain height") ||
		strings.Contains(msg, "height") && strings.Contains(msg, "is not available")
}

func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit")
}
