// Package state provides the indexer's single access point to the State
// singleton (spec §3, §5): the per-process view of the chain's high-water
// marks. The Extract Worker pool advances it through Tracker; the Block
// Iterator and Historical Query Engine do not use this package.
package state

import (
	"context"

	"github.com/noahsaso/argus-sub001/internal/model"
	"github.com/noahsaso/argus-sub001/internal/store"
)

// Tracker reads and monotonically advances the State singleton. It holds
// no in-memory copy: every write uses the store's GREATEST-guarded SQL, so
// concurrent workers never need application-level locks (spec §5 "Reads
// are eventually consistent").
type Tracker struct {
	store *store.Store
}

// New constructs a Tracker backed by st.
func New(st *store.Store) *Tracker {
	return &Tracker{store: st}
}

// Current returns the latest known State.
func (t *Tracker) Current(ctx context.Context) (model.State, error) {
	return t.store.GetState(ctx)
}

// AdvanceLatestBlock advances State.latestBlockHeight/latestBlockTimeUnixMs
// monotonically.
func (t *Tracker) AdvanceLatestBlock(ctx context.Context, chainID string, height uint64, timeUnixMs int64) error {
	return t.store.AdvanceLatestBlock(ctx, chainID, height, timeUnixMs)
}

// AdvanceBankExported advances State.lastBankBlockHeightExported.
func (t *Tracker) AdvanceBankExported(ctx context.Context, height uint64) error {
	return t.store.AdvanceBankExported(ctx, height)
}

// AdvanceFeegrantExported advances State.lastFeegrantBlockHeightExported.
func (t *Tracker) AdvanceFeegrantExported(ctx context.Context, height uint64) error {
	return t.store.AdvanceFeegrantExported(ctx, height)
}

// AdvanceWasmExported advances State.lastWasmBlockHeightExported.
func (t *Tracker) AdvanceWasmExported(ctx context.Context, height uint64) error {
	return t.store.AdvanceWasmExported(ctx, height)
}
