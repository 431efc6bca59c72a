package iterator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/noahsaso/argus-sub001/internal/model"
	"github.com/noahsaso/argus-sub001/internal/node"
	"github.com/noahsaso/argus-sub001/internal/testutil"
)

type fakeClient struct {
	mu       sync.Mutex
	blocks   map[uint64]*node.FetchedBlock
	errs     map[uint64]error
	earliest uint64
	latest   uint64
}

func newFakeClient(earliest, latest uint64) *fakeClient {
	return &fakeClient{
		blocks:   make(map[uint64]*node.FetchedBlock),
		errs:     make(map[uint64]error),
		earliest: earliest,
		latest:   latest,
	}
}

func (f *fakeClient) Status(ctx context.Context) (uint64, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.earliest, f.latest, nil
}

func (f *fakeClient) FetchBlock(ctx context.Context, height uint64) (*node.FetchedBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[height]; ok {
		return nil, err
	}
	if b, ok := f.blocks[height]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("fake client: no such block %d", height)
}

func (f *fakeClient) SubscribeNewBlock(ctx context.Context, subscriber string) (<-chan int64, func(), error) {
	f.mu.Lock()
	latest := f.latest
	f.mu.Unlock()
	ch := make(chan int64, 1)
	ch <- int64(latest)
	return ch, func() {}, nil
}

func testBlock(height uint64, txs ...model.DecodedTx) *node.FetchedBlock {
	b := testutil.NewTestBlock(height)
	return &node.FetchedBlock{Height: b.Height, TimeUnixMs: b.TimeUnixMs, Txs: txs}
}

func TestIterateDeliversBlocksInOrder(t *testing.T) {
	client := newFakeClient(0, 105)
	for h := uint64(100); h <= 105; h++ {
		client.blocks[h] = testBlock(h, testutil.NewTestTx(0, nil), testutil.NewTestTx(1, nil))
	}

	it := New(client, testutil.NewTestLogger(t), Config{StartHeight: 100, EndHeight: 105, BufferSize: 3})

	var mu sync.Mutex
	var blockHeights []uint64
	txIndexByBlock := map[uint64][]int{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := it.Iterate(ctx, Callbacks{
		OnBlock: func(h BlockHeader) {
			mu.Lock()
			blockHeights = append(blockHeights, h.Height)
			mu.Unlock()
		},
		OnTx: func(tx model.DecodedTx, h BlockHeader) {
			mu.Lock()
			txIndexByBlock[h.Height] = append(txIndexByBlock[h.Height], tx.Index)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Iterate() error = %v", err)
	}

	want := []uint64{100, 101, 102, 103, 104, 105}
	if len(blockHeights) != len(want) {
		t.Fatalf("got %d blocks, want %d: %v", len(blockHeights), len(want), blockHeights)
	}
	for i, h := range want {
		if blockHeights[i] != h {
			t.Errorf("block[%d] = %d, want %d", i, blockHeights[i], h)
		}
	}
	for h, indices := range txIndexByBlock {
		if len(indices) != 2 || indices[0] != 0 || indices[1] != 1 {
			t.Errorf("block %d tx order = %v, want [0 1]", h, indices)
		}
	}
}

func TestIterateClampsLowStartHeight(t *testing.T) {
	client := newFakeClient(0, 12)
	for h := uint64(10); h <= 12; h++ {
		client.blocks[h] = testBlock(h)
	}

	it := New(client, testutil.NewTestLogger(t), Config{StartHeight: 1, EndHeight: 12, BufferSize: 2})

	var errs []error
	var blockHeights []uint64
	var mu sync.Mutex

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := it.Iterate(ctx, Callbacks{
		OnBlock: func(h BlockHeader) {
			mu.Lock()
			blockHeights = append(blockHeights, h.Height)
			mu.Unlock()
		},
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Iterate() error = %v", err)
	}

	if len(errs) != 1 {
		t.Fatalf("expected one StartHeightTooLow error, got %d: %v", len(errs), errs)
	}
	var tooLow *StartHeightTooLowError
	if !errors.As(errs[0], &tooLow) {
		t.Fatalf("expected *StartHeightTooLowError, got %T", errs[0])
	}
	if tooLow.Clamped != 10 {
		t.Errorf("Clamped = %d, want 10", tooLow.Clamped)
	}
	if len(blockHeights) == 0 || blockHeights[0] != 10 {
		t.Errorf("expected first block at clamped height 10, got %v", blockHeights)
	}
}

func TestIterateIsolatesTxErrors(t *testing.T) {
	client := newFakeClient(0, 100)
	fb := testBlock(100, testutil.NewTestTx(0, nil), testutil.NewTestTx(1, nil))
	fb.TxErrors = map[int]error{1: errors.New("malformed tx")}
	client.blocks[100] = fb

	it := New(client, testutil.NewTestLogger(t), Config{StartHeight: 100, EndHeight: 100, BufferSize: 1})

	var onTxCount int
	var onErrorCount int
	var blockEmitted bool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := it.Iterate(ctx, Callbacks{
		OnBlock: func(h BlockHeader) { blockEmitted = true },
		OnTx:    func(tx model.DecodedTx, h BlockHeader) { onTxCount++ },
		OnError: func(err error) { onErrorCount++ },
	})
	if err != nil {
		t.Fatalf("Iterate() error = %v", err)
	}
	if !blockEmitted {
		t.Error("expected block to emit despite tx error")
	}
	if onTxCount != 1 {
		t.Errorf("onTxCount = %d, want 1", onTxCount)
	}
	if onErrorCount != 1 {
		t.Errorf("onErrorCount = %d, want 1", onErrorCount)
	}
}

func TestIterateThrowErrorsTerminatesOnBlockError(t *testing.T) {
	client := newFakeClient(0, 101)
	client.errs[100] = errors.New("permanent failure")
	client.blocks[101] = testBlock(101)

	it := New(client, testutil.NewTestLogger(t), Config{StartHeight: 100, EndHeight: 101, BufferSize: 2, ThrowErrors: true})

	// The permanent failure at height 100 is retried with the node-read
	// backoff policy; a short deadline lets the test observe the
	// eventual context-cancellation error without waiting out all 30
	// configured attempts.
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	var blockHeights []uint64
	err := it.Iterate(ctx, Callbacks{
		OnBlock: func(h BlockHeader) { blockHeights = append(blockHeights, h.Height) },
	})
	if err == nil {
		t.Fatal("Iterate() expected error in throwErrors mode")
	}
	var blockErr *BlockError
	if !errors.As(err, &blockErr) {
		t.Fatalf("expected *BlockError, got %T: %v", err, err)
	}
	if len(blockHeights) != 0 {
		t.Errorf("expected no blocks emitted before the failing height, got %v", blockHeights)
	}
}
