package store

import (
	"context"
	"fmt"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// GetState returns the singleton State row, zero-valued if it has never
// been written.
func (s *Store) GetState(ctx context.Context) (model.State, error) {
	var st model.State
	var chainID *string
	err := s.pool.QueryRow(ctx, `
		SELECT chain_id, latest_block_height, latest_block_time_unix_ms,
		       last_bank_block_height_exported, last_feegrant_block_height_exported,
		       last_wasm_block_height_exported
		FROM state WHERE id = 1
	`).Scan(&chainID, &st.LatestBlockHeight, &st.LatestBlockTimeUnixMs,
		&st.LastBankBlockHeightExported, &st.LastFeegrantBlockHeightExported,
		&st.LastWasmBlockHeightExported)
	if err != nil {
		if isNoRows(err) {
			return model.State{}, nil
		}
		return model.State{}, fmt.Errorf("store: get state: %w", err)
	}
	if chainID != nil {
		st.ChainID = *chainID
	}
	return st, nil
}

// AdvanceLatestBlock advances State.latestBlockHeight/latestBlockTimeUnixMs
// monotonically (spec §3 invariant 4, §5 GREATEST semantics).
func (s *Store) AdvanceLatestBlock(ctx context.Context, chainID string, height uint64, timeUnixMs int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO state (id, chain_id, latest_block_height, latest_block_time_unix_ms)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			chain_id = COALESCE(state.chain_id, EXCLUDED.chain_id),
			latest_block_height = GREATEST(state.latest_block_height, EXCLUDED.latest_block_height),
			latest_block_time_unix_ms = GREATEST(state.latest_block_time_unix_ms, EXCLUDED.latest_block_time_unix_ms)
	`, chainID, int64(height), timeUnixMs)
	if err != nil {
		return fmt.Errorf("store: advance latest block to %d: %w", height, err)
	}
	return nil
}

// AdvanceBankExported advances State.lastBankBlockHeightExported monotonically.
func (s *Store) AdvanceBankExported(ctx context.Context, height uint64) error {
	return s.advanceMark(ctx, "last_bank_block_height_exported", height)
}

// AdvanceFeegrantExported advances State.lastFeegrantBlockHeightExported monotonically.
func (s *Store) AdvanceFeegrantExported(ctx context.Context, height uint64) error {
	return s.advanceMark(ctx, "last_feegrant_block_height_exported", height)
}

// AdvanceWasmExported advances State.lastWasmBlockHeightExported monotonically.
func (s *Store) AdvanceWasmExported(ctx context.Context, height uint64) error {
	return s.advanceMark(ctx, "last_wasm_block_height_exported", height)
}

// advanceMark performs a GREATEST-guarded update of one of State's
// per-module high-water-mark columns. column is always one of a fixed set
// of internal constants, never user input.
func (s *Store) advanceMark(ctx context.Context, column string, height uint64) error {
	query := fmt.Sprintf(`
		INSERT INTO state (id, %[1]s) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET %[1]s = GREATEST(state.%[1]s, EXCLUDED.%[1]s)
	`, column)
	if _, err := s.pool.Exec(ctx, query, int64(height)); err != nil {
		return fmt.Errorf("store: advance %s to %d: %w", column, height, err)
	}
	return nil
}
