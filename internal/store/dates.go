package store

import "context"

// WasmKeyDateModified returns the block_time_unix_ms of the latest write to
// (contractAddress, key) with blockHeight <= asOfHeight (spec §4.4
// getDateKeyModified).
func (s *Store) WasmKeyDateModified(ctx context.Context, contractAddress, key string, asOfHeight uint64) (int64, bool, error) {
	var t int64
	err := s.pool.QueryRow(ctx, `
		SELECT block_time_unix_ms FROM wasm_state_events
		WHERE contract_address = $1 AND key = $2 AND block_height <= $3
		ORDER BY block_height DESC
		LIMIT 1
	`, contractAddress, key, int64(asOfHeight)).Scan(&t)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return t, true, nil
}

// WasmKeyDateFirstSet returns the block_time_unix_ms of the earliest
// non-delete write to (contractAddress, key) (spec §4.4 getDateKeyFirstSet).
func (s *Store) WasmKeyDateFirstSet(ctx context.Context, contractAddress, key string) (int64, bool, error) {
	var t int64
	err := s.pool.QueryRow(ctx, `
		SELECT block_time_unix_ms FROM wasm_state_events
		WHERE contract_address = $1 AND key = $2 AND delete = false
		ORDER BY block_height ASC
		LIMIT 1
	`, contractAddress, key).Scan(&t)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return t, true, nil
}

// WasmKeyDateFirstSetWithValueMatch returns the block_time_unix_ms of the
// earliest write to (contractAddress, key) whose value_json contains
// valueContainsJSON, a JSON fragment tested via Postgres's `@>` containment
// operator (spec §4.4 getDateKeyFirstSetWithValueMatch).
func (s *Store) WasmKeyDateFirstSetWithValueMatch(ctx context.Context, contractAddress, key string, valueContainsJSON []byte) (int64, bool, error) {
	var t int64
	err := s.pool.QueryRow(ctx, `
		SELECT block_time_unix_ms FROM wasm_state_events
		WHERE contract_address = $1 AND key = $2 AND delete = false
		  AND value_json @> $3::jsonb
		ORDER BY block_height ASC
		LIMIT 1
	`, contractAddress, key, valueContainsJSON).Scan(&t)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return t, true, nil
}

// TransformationDateFirstSet returns the block_time_unix_ms of the earliest
// transformation named name under contractAddress (spec §4.4
// getDateFirstTransformed).
func (s *Store) TransformationDateFirstSet(ctx context.Context, contractAddress, name string) (int64, bool, error) {
	var t int64
	err := s.pool.QueryRow(ctx, `
		SELECT block_time_unix_ms FROM wasm_state_event_transformations
		WHERE contract_address = $1 AND name = $2
		ORDER BY block_height ASC
		LIMIT 1
	`, contractAddress, name).Scan(&t)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return t, true, nil
}

// ExtractionDateFirstSet returns the block_time_unix_ms of the earliest
// extraction named name under address (spec §4.4 getDateFirstExtracted).
func (s *Store) ExtractionDateFirstSet(ctx context.Context, address, name string) (int64, bool, error) {
	var t int64
	err := s.pool.QueryRow(ctx, `
		SELECT block_time_unix_ms FROM extractions
		WHERE address = $1 AND name = $2
		ORDER BY block_height ASC
		LIMIT 1
	`, address, name).Scan(&t)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return t, true, nil
}
