package iterator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noahsaso/argus-sub001/internal/constants"
)

// tipTracker maintains the highest known chain height, fed by a WebSocket
// NewBlock subscription and a polling fallback. Either source alone is
// sufficient to mark the tracker ready.
type tipTracker struct {
	client Client
	logger *zap.Logger

	mu     sync.RWMutex
	latest uint64

	ready     chan struct{}
	readyOnce sync.Once
}

func newTipTracker(client Client, logger *zap.Logger) *tipTracker {
	return &tipTracker{
		client: client,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// run starts the poll and subscribe loops. Both exit when ctx is done.
func (t *tipTracker) run(ctx context.Context) {
	go t.pollLoop(ctx)
	go t.subscribeLoop(ctx)
}

func (t *tipTracker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(constants.DefaultTipPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, latest, err := t.client.Status(ctx)
			if err != nil {
				t.logger.Warn("tip poll failed", zap.Error(err))
				continue
			}
			t.advance(latest)
		}
	}
}

func (t *tipTracker) subscribeLoop(ctx context.Context) {
	subscriber := fmt.Sprintf("argus-sub001-tip-%d", time.Now().UnixNano())
	backoffDelay := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		heights, unsub, err := t.client.SubscribeNewBlock(ctx, subscriber)
		if err != nil {
			t.logger.Warn("new block subscription failed, reconnecting",
				zap.Duration("backoff", backoffDelay),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoffDelay):
			}
			backoffDelay *= 2
			if backoffDelay > constants.MaxWebSocketReconnectBackoff {
				backoffDelay = constants.MaxWebSocketReconnectBackoff
			}
			continue
		}

		backoffDelay = time.Second
		t.drainHeights(ctx, heights)
		unsub()
	}
}

func (t *tipTracker) drainHeights(ctx context.Context, heights <-chan int64) {
	for {
		select {
		case <-ctx.Done():
			return
		case h, ok := <-heights:
			if !ok {
				return
			}
			t.advance(uint64(h))
		}
	}
}

func (t *tipTracker) advance(height uint64) {
	t.mu.Lock()
	if height > t.latest {
		t.latest = height
	}
	t.mu.Unlock()
	t.readyOnce.Do(func() { close(t.ready) })
}

// Latest returns the highest height observed so far.
func (t *tipTracker) Latest() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// WaitReady blocks until the first height has been observed, or ctx ends.
func (t *tipTracker) WaitReady(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
