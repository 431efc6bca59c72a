// Package exporter implements the Batched Trace Exporter: it buffers
// per-state-key events coming from trace handlers and flushes them to the
// extract job queue in batches that never mix blocks and collapse
// intra-block duplicates for the same (handler, id).
package exporter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noahsaso/argus-sub001/internal/constants"
)

// Item is a single trace-handler observation queued for export.
type Item struct {
	Handler     string
	ID          string
	Background  bool
	Data        any
	BlockHeight uint64
}

func (i Item) key() string { return i.Handler + "\x00" + i.ID }

// Batch is a flushed, deduped group of items for a single block height.
type Batch struct {
	BlockHeight uint64
	Items       []Item
}

// Sink delivers a flushed batch to a named topic (the main "extract" queue
// or the "extract-background" queue).
type Sink interface {
	Enqueue(ctx context.Context, topic string, batch Batch) error
}

// Config configures flush thresholds.
type Config struct {
	MaxBatchSize int
	DebounceMs   time.Duration
}

// Exporter buffers items and flushes deduped batches to Sink.
type Exporter struct {
	sink    Sink
	logger  *zap.Logger
	config  Config
	metrics *metrics

	mu            sync.Mutex
	order         []string
	items         map[string]Item
	pendingHeight uint64
	hasPending    bool
	debounce      *time.Timer

	closed bool
}

// New constructs an Exporter. MaxBatchSize/DebounceMs default to the
// constants package values when unset.
func New(sink Sink, logger *zap.Logger, config Config) *Exporter {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = constants.DefaultMaxBatchSize
	}
	if config.DebounceMs <= 0 {
		config.DebounceMs = constants.DefaultDebounceDelay
	}
	return &Exporter{
		sink:    sink,
		logger:  logger,
		config:  config,
		metrics: newMetrics(),
		items:   make(map[string]Item),
	}
}

// ExportItems appends items to the pending buffer. If currentBlockHeight
// exceeds the height of the already-buffered items, the existing buffer is
// flushed first so no batch mixes two block heights.
func (e *Exporter) ExportItems(ctx context.Context, items []Item, currentBlockHeight uint64) {
	e.mu.Lock()

	if e.hasPending && currentBlockHeight > e.pendingHeight {
		snapshot := e.snapshotLocked()
		e.stopDebounceLocked()
		e.mu.Unlock()
		e.flush(ctx, snapshot)
		e.mu.Lock()
	}

	for _, item := range items {
		key := item.key()
		if _, exists := e.items[key]; !exists {
			e.order = append(e.order, key)
		}
		e.items[key] = item
		e.metrics.itemsReceived.Inc()
	}
	e.pendingHeight = currentBlockHeight
	e.hasPending = len(e.order) > 0

	if len(e.order) >= e.config.MaxBatchSize {
		snapshot := e.snapshotLocked()
		e.stopDebounceLocked()
		e.mu.Unlock()
		e.flush(ctx, snapshot)
		return
	}

	e.resetDebounceLocked(ctx)
	e.mu.Unlock()
}

// Close stops the debounce timer and flushes any pending batch.
func (e *Exporter) Close(ctx context.Context) {
	e.mu.Lock()
	e.closed = true
	snapshot := e.snapshotLocked()
	e.stopDebounceLocked()
	e.mu.Unlock()
	if len(snapshot.Items) > 0 {
		e.flush(ctx, snapshot)
	}
}

// snapshotLocked copies and clears the current buffer. Caller holds e.mu.
func (e *Exporter) snapshotLocked() Batch {
	batch := Batch{BlockHeight: e.pendingHeight, Items: make([]Item, 0, len(e.order))}
	for _, key := range e.order {
		batch.Items = append(batch.Items, e.items[key])
	}
	e.order = nil
	e.items = make(map[string]Item)
	e.hasPending = false
	return batch
}

func (e *Exporter) resetDebounceLocked(ctx context.Context) {
	e.stopDebounceLocked()
	if e.closed {
		return
	}
	e.debounce = time.AfterFunc(e.config.DebounceMs, func() {
		e.mu.Lock()
		if e.closed || !e.hasPending {
			e.mu.Unlock()
			return
		}
		snapshot := e.snapshotLocked()
		e.mu.Unlock()
		e.flush(ctx, snapshot)
	})
}

func (e *Exporter) stopDebounceLocked() {
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
}

// flush splits the batch by background need and enqueues both halves in
// parallel. A sub-batch whose enqueue fails is logged and merged back into
// the pending buffer so the next flush retries it.
func (e *Exporter) flush(ctx context.Context, batch Batch) {
	if len(batch.Items) == 0 {
		return
	}

	var main, background []Item
	for _, item := range batch.Items {
		if item.Background {
			background = append(background, item)
		} else {
			main = append(main, item)
		}
	}

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []Item

	enqueue := func(topic string, group []Item) {
		defer wg.Done()
		if len(group) == 0 {
			return
		}
		err := e.sink.Enqueue(ctx, topic, Batch{BlockHeight: batch.BlockHeight, Items: group})
		if err != nil {
			e.logger.Error("failed to flush export batch",
				zap.String("topic", topic),
				zap.Uint64("block_height", batch.BlockHeight),
				zap.Int("items", len(group)),
				zap.Error(err),
			)
			e.metrics.flushErrors.Inc()
			failedMu.Lock()
			failed = append(failed, group...)
			failedMu.Unlock()
			return
		}
		e.metrics.batchesFlushed.Inc()
		e.metrics.itemsFlushed.Add(float64(len(group)))
	}

	wg.Add(2)
	go enqueue(constants.TopicExtract, main)
	go enqueue(constants.TopicExtractBackground, background)
	wg.Wait()

	if len(failed) > 0 {
		e.requeue(failed, batch.BlockHeight)
	}
}

// requeue reinserts items that failed to flush, preserving last-write-wins
// against anything newer that arrived while the flush was in flight.
func (e *Exporter) requeue(items []Item, blockHeight uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range items {
		key := item.key()
		if _, exists := e.items[key]; exists {
			continue
		}
		e.order = append(e.order, key)
		e.items[key] = item
	}
	if !e.hasPending || blockHeight > e.pendingHeight {
		e.pendingHeight = blockHeight
	}
	e.hasPending = len(e.order) > 0
}
