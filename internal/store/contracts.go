package store

import (
	"context"
	"fmt"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// UpsertContract records wasm instantiation facts. Instantiation is a
// one-time event; a conflicting address keeps its original facts.
func (s *Store) UpsertContract(ctx context.Context, c model.Contract) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contracts (address, code_id, admin, creator, label, instantiated_at_block_height, instantiated_at_tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO NOTHING
	`, c.Address, int64(c.CodeID), c.Admin, c.Creator, c.Label, int64(c.InstantiatedAtBlockHeight), c.InstantiatedAtTxHash)
	if err != nil {
		return fmt.Errorf("store: upsert contract %s: %w", c.Address, err)
	}
	return nil
}

// GetContract returns a contract's instantiation facts.
func (s *Store) GetContract(ctx context.Context, address string) (model.Contract, bool, error) {
	var c model.Contract
	var codeID, height int64
	err := s.pool.QueryRow(ctx, `
		SELECT address, code_id, admin, creator, label, instantiated_at_block_height, instantiated_at_tx_hash
		FROM contracts WHERE address = $1
	`, address).Scan(&c.Address, &codeID, &c.Admin, &c.Creator, &c.Label, &height, &c.InstantiatedAtTxHash)
	if err != nil {
		if isNoRows(err) {
			return model.Contract{}, false, nil
		}
		return model.Contract{}, false, fmt.Errorf("store: get contract %s: %w", address, err)
	}
	c.CodeID = uint64(codeID)
	c.InstantiatedAtBlockHeight = uint64(height)
	return c, true, nil
}

// ContractCodeIDs returns the code IDs registered for every contract
// address in addresses, keyed by address (spec §4.4
// contractMatchesCodeIdKeys).
func (s *Store) ContractCodeIDs(ctx context.Context, addresses []string) (map[string]uint64, error) {
	if len(addresses) == 0 {
		return map[string]uint64{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT address, code_id FROM contracts WHERE address = ANY($1)
	`, addresses)
	if err != nil {
		return nil, fmt.Errorf("store: get contract code ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64, len(addresses))
	for rows.Next() {
		var addr string
		var codeID int64
		if err := rows.Scan(&addr, &codeID); err != nil {
			return nil, fmt.Errorf("store: scan contract code id: %w", err)
		}
		out[addr] = uint64(codeID)
	}
	return out, rows.Err()
}
