package store

import (
	"context"
	"fmt"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// UpsertBlock creates a Block on first sight; a duplicate height is a
// no-op (spec §3 invariant 3).
func (s *Store) UpsertBlock(ctx context.Context, block model.Block) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blocks (height, time_unix_ms)
		VALUES ($1, $2)
		ON CONFLICT (height) DO NOTHING
	`, int64(block.Height), block.TimeUnixMs)
	if err != nil {
		return fmt.Errorf("store: upsert block %d: %w", block.Height, err)
	}
	return nil
}

// GetBlock returns the stored block nearest below height (spec §4.4
// getBlock). Returns (model.Block{}, false, nil) when no such block exists.
func (s *Store) GetBlock(ctx context.Context, height uint64) (model.Block, bool, error) {
	var b model.Block
	var h int64
	err := s.pool.QueryRow(ctx, `
		SELECT height, time_unix_ms FROM blocks
		WHERE height <= $1
		ORDER BY height DESC
		LIMIT 1
	`, int64(height)).Scan(&h, &b.TimeUnixMs)
	if err != nil {
		if isNoRows(err) {
			return model.Block{}, false, nil
		}
		return model.Block{}, false, fmt.Errorf("store: get block at or below %d: %w", height, err)
	}
	b.Height = uint64(h)
	return b, true, nil
}

// GetBlockAtOrBeforeTime returns the stored block with the latest
// time_unix_ms not exceeding timeUnixMs (spec §4.4A generic/blockHeightAtTime).
func (s *Store) GetBlockAtOrBeforeTime(ctx context.Context, timeUnixMs int64) (model.Block, bool, error) {
	var b model.Block
	var h int64
	err := s.pool.QueryRow(ctx, `
		SELECT height, time_unix_ms FROM blocks
		WHERE time_unix_ms <= $1
		ORDER BY time_unix_ms DESC
		LIMIT 1
	`, timeUnixMs).Scan(&h, &b.TimeUnixMs)
	if err != nil {
		if isNoRows(err) {
			return model.Block{}, false, nil
		}
		return model.Block{}, false, fmt.Errorf("store: get block at or before time %d: %w", timeUnixMs, err)
	}
	b.Height = uint64(h)
	return b, true, nil
}

// BlockCount returns the total number of indexed blocks.
func (s *Store) BlockCount(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM blocks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count blocks: %w", err)
	}
	return uint64(count), nil
}
