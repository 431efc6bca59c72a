package store

import (
	"context"
	"fmt"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// InsertWasmStateEvent writes a raw contract-state write/delete. Duplicate
// inserts within the same block coalesce to the last-written value (spec
// §3 invariant 2): the conflicting row is overwritten, not added to.
func (s *Store) InsertWasmStateEvent(ctx context.Context, ev model.WasmStateEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wasm_state_events (contract_address, key, value_json, block_height, block_time_unix_ms, delete)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contract_address, key, block_height) DO UPDATE SET
			value_json = EXCLUDED.value_json,
			block_time_unix_ms = EXCLUDED.block_time_unix_ms,
			delete = EXCLUDED.delete
	`, ev.ContractAddress, ev.Key, nullableJSON(ev.ValueJSON), int64(ev.BlockHeight), ev.BlockTimeUnixMs, ev.Delete)
	if err != nil {
		return fmt.Errorf("store: insert wasm state event %s/%s@%d: %w", ev.ContractAddress, ev.Key, ev.BlockHeight, err)
	}
	return nil
}

// GetWasmStateEvent returns the latest raw event for (contractAddress, key)
// with blockHeight <= asOfHeight (spec §4.4 get primitive).
func (s *Store) GetWasmStateEvent(ctx context.Context, contractAddress, key string, asOfHeight uint64) (model.WasmStateEvent, bool, error) {
	var ev model.WasmStateEvent
	var h int64
	err := s.pool.QueryRow(ctx, `
		SELECT contract_address, key, value_json, block_height, block_time_unix_ms, delete
		FROM wasm_state_events
		WHERE contract_address = $1 AND key = $2 AND block_height <= $3
		ORDER BY block_height DESC
		LIMIT 1
	`, contractAddress, key, int64(asOfHeight)).Scan(&ev.ContractAddress, &ev.Key, &ev.ValueJSON, &h, &ev.BlockTimeUnixMs, &ev.Delete)
	if err != nil {
		if isNoRows(err) {
			return model.WasmStateEvent{}, false, nil
		}
		return model.WasmStateEvent{}, false, fmt.Errorf("store: get wasm state event %s/%s: %w", contractAddress, key, err)
	}
	ev.BlockHeight = uint64(h)
	return ev, true, nil
}

// GetWasmStateEventsByPrefix returns the latest event as of asOfHeight for
// every key beginning with prefix under contractAddress (spec §4.4 getMap).
func (s *Store) GetWasmStateEventsByPrefix(ctx context.Context, contractAddress, prefix string, asOfHeight uint64) ([]model.WasmStateEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (key) contract_address, key, value_json, block_height, block_time_unix_ms, delete
		FROM wasm_state_events
		WHERE contract_address = $1 AND key LIKE $2 AND block_height <= $3
		ORDER BY key, block_height DESC
	`, contractAddress, prefix+"%", int64(asOfHeight))
	if err != nil {
		return nil, fmt.Errorf("store: get wasm state events by prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []model.WasmStateEvent
	for rows.Next() {
		var ev model.WasmStateEvent
		var h int64
		if err := rows.Scan(&ev.ContractAddress, &ev.Key, &ev.ValueJSON, &h, &ev.BlockTimeUnixMs, &ev.Delete); err != nil {
			return nil, fmt.Errorf("store: scan wasm state event: %w", err)
		}
		ev.BlockHeight = uint64(h)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// InsertWasmStateEventTransformation writes a derived, extractor-named
// projection of one or more raw events.
func (s *Store) InsertWasmStateEventTransformation(ctx context.Context, t model.WasmStateEventTransformation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wasm_state_event_transformations (contract_address, name, value, block_height, block_time_unix_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contract_address, name, block_height) DO UPDATE SET
			value = EXCLUDED.value,
			block_time_unix_ms = EXCLUDED.block_time_unix_ms
	`, t.ContractAddress, t.Name, nullableJSON(t.Value), int64(t.BlockHeight), t.BlockTimeUnixMs)
	if err != nil {
		return fmt.Errorf("store: insert wasm transformation %s/%s@%d: %w", t.ContractAddress, t.Name, t.BlockHeight, err)
	}
	return nil
}

// GetWasmStateEventTransformation returns the latest transformation named
// name under contractAddress as of asOfHeight.
func (s *Store) GetWasmStateEventTransformation(ctx context.Context, contractAddress, name string, asOfHeight uint64) (model.WasmStateEventTransformation, bool, error) {
	var t model.WasmStateEventTransformation
	var h int64
	err := s.pool.QueryRow(ctx, `
		SELECT contract_address, name, value, block_height, block_time_unix_ms
		FROM wasm_state_event_transformations
		WHERE contract_address = $1 AND name = $2 AND block_height <= $3
		ORDER BY block_height DESC
		LIMIT 1
	`, contractAddress, name, int64(asOfHeight)).Scan(&t.ContractAddress, &t.Name, &t.Value, &h, &t.BlockTimeUnixMs)
	if err != nil {
		if isNoRows(err) {
			return model.WasmStateEventTransformation{}, false, nil
		}
		return model.WasmStateEventTransformation{}, false, fmt.Errorf("store: get wasm transformation %s/%s: %w", contractAddress, name, err)
	}
	t.BlockHeight = uint64(h)
	return t, true, nil
}

// GetWasmStateEventTransformationsByPattern returns every transformation
// matching a name pattern (a single '*' wildcard position), latest per
// name, as of asOfHeight.
func (s *Store) GetWasmStateEventTransformationsByPattern(ctx context.Context, contractAddress, likePattern string, asOfHeight uint64) ([]model.WasmStateEventTransformation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (name) contract_address, name, value, block_height, block_time_unix_ms
		FROM wasm_state_event_transformations
		WHERE contract_address = $1 AND name LIKE $2 AND block_height <= $3
		ORDER BY name, block_height DESC
	`, contractAddress, likePattern, int64(asOfHeight))
	if err != nil {
		return nil, fmt.Errorf("store: get wasm transformations by pattern %s: %w", likePattern, err)
	}
	defer rows.Close()

	var out []model.WasmStateEventTransformation
	for rows.Next() {
		var t model.WasmStateEventTransformation
		var h int64
		if err := rows.Scan(&t.ContractAddress, &t.Name, &t.Value, &h, &t.BlockTimeUnixMs); err != nil {
			return nil, fmt.Errorf("store: scan wasm transformation: %w", err)
		}
		t.BlockHeight = uint64(h)
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableJSON(data []byte) any {
	if data == nil {
		return nil
	}
	return data
}
