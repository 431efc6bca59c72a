package store

import (
	"context"
	"fmt"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// InsertExtraction writes a TX-derived record emitted directly by an
// extractor.
func (s *Store) InsertExtraction(ctx context.Context, ex model.Extraction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO extractions (address, name, data, block_height, block_time_unix_ms, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address, name, block_height) DO UPDATE SET
			data = EXCLUDED.data,
			block_time_unix_ms = EXCLUDED.block_time_unix_ms,
			tx_hash = EXCLUDED.tx_hash
	`, ex.Address, ex.Name, nullableJSON(ex.Data), int64(ex.BlockHeight), ex.BlockTimeUnixMs, ex.TxHash)
	if err != nil {
		return fmt.Errorf("store: insert extraction %s/%s@%d: %w", ex.Address, ex.Name, ex.BlockHeight, err)
	}
	return nil
}

// GetExtraction returns the latest extraction named name under address as
// of asOfHeight.
func (s *Store) GetExtraction(ctx context.Context, address, name string, asOfHeight uint64) (model.Extraction, bool, error) {
	var ex model.Extraction
	var h int64
	err := s.pool.QueryRow(ctx, `
		SELECT address, name, data, block_height, block_time_unix_ms, tx_hash
		FROM extractions
		WHERE address = $1 AND name = $2 AND block_height <= $3
		ORDER BY block_height DESC
		LIMIT 1
	`, address, name, int64(asOfHeight)).Scan(&ex.Address, &ex.Name, &ex.Data, &h, &ex.BlockTimeUnixMs, &ex.TxHash)
	if err != nil {
		if isNoRows(err) {
			return model.Extraction{}, false, nil
		}
		return model.Extraction{}, false, fmt.Errorf("store: get extraction %s/%s: %w", address, name, err)
	}
	ex.BlockHeight = uint64(h)
	return ex, true, nil
}

// GetExtractionsByPattern returns every extraction matching a name
// pattern (a single '*' wildcard position), latest per name, as of
// asOfHeight.
func (s *Store) GetExtractionsByPattern(ctx context.Context, address, likePattern string, asOfHeight uint64) ([]model.Extraction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (name) address, name, data, block_height, block_time_unix_ms, tx_hash
		FROM extractions
		WHERE address = $1 AND name LIKE $2 AND block_height <= $3
		ORDER BY name, block_height DESC
	`, address, likePattern, int64(asOfHeight))
	if err != nil {
		return nil, fmt.Errorf("store: get extractions by pattern %s: %w", likePattern, err)
	}
	defer rows.Close()

	var out []model.Extraction
	for rows.Next() {
		var ex model.Extraction
		var h int64
		if err := rows.Scan(&ex.Address, &ex.Name, &ex.Data, &h, &ex.BlockTimeUnixMs, &ex.TxHash); err != nil {
			return nil, fmt.Errorf("store: scan extraction: %w", err)
		}
		ex.BlockHeight = uint64(h)
		out = append(out, ex)
	}
	return out, rows.Err()
}
