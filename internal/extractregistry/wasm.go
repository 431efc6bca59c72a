package extractregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// wasmStateEventPayload is the raw trace-handler payload for a single
// contract-state write or delete.
type wasmStateEventPayload struct {
	ContractAddress string          `json:"contract_address"`
	Key             string          `json:"key"`
	Value           json.RawMessage `json:"value,omitempty"`
	Delete          bool            `json:"delete,omitempty"`
}

type wasmStateEventExtractor struct {
	deps Deps
	env  Env
}

func newWasmStateEventExtractor(deps Deps, env Env) (Extractor, error) {
	return wasmStateEventExtractor{deps: deps, env: env}, nil
}

func (e wasmStateEventExtractor) Extract(ctx context.Context, data json.RawMessage) ([]PersistedModel, error) {
	var payload wasmStateEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("wasm/stateEvent: decode payload: %w", err)
	}
	if payload.ContractAddress == "" || payload.Key == "" {
		return nil, fmt.Errorf("wasm/stateEvent: contract_address and key are required")
	}

	ev := model.WasmStateEvent{
		ContractAddress: payload.ContractAddress,
		Key:             payload.Key,
		ValueJSON:       payload.Value,
		BlockHeight:     e.env.Block.Height,
		BlockTimeUnixMs: e.env.Block.TimeUnixMs,
		Delete:          payload.Delete,
	}
	if err := e.deps.Store.InsertWasmStateEvent(ctx, ev); err != nil {
		return nil, err
	}

	return []PersistedModel{{
		Table:           "wasm_state_events",
		Address:         payload.ContractAddress,
		Key:             payload.Key,
		BlockHeight:     ev.BlockHeight,
		BlockTimeUnixMs: ev.BlockTimeUnixMs,
	}}, nil
}

// contractInstantiatePayload is the raw trace-handler payload for a wasm
// instantiation event. CodeID arrives as a string since it is lifted
// directly from an ABCI event attribute, which is always a string.
type contractInstantiatePayload struct {
	Address string `json:"address"`
	CodeID  string `json:"code_id"`
	Admin   string `json:"admin,omitempty"`
	Creator string `json:"creator"`
	Label   string `json:"label,omitempty"`
}

type contractInstantiateExtractor struct {
	deps Deps
	env  Env
}

func newContractInstantiateExtractor(deps Deps, env Env) (Extractor, error) {
	return contractInstantiateExtractor{deps: deps, env: env}, nil
}

func (e contractInstantiateExtractor) Extract(ctx context.Context, data json.RawMessage) ([]PersistedModel, error) {
	var payload contractInstantiatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("wasm/instantiate: decode payload: %w", err)
	}
	if payload.Address == "" {
		return nil, fmt.Errorf("wasm/instantiate: address is required")
	}

	var codeID uint64
	if payload.CodeID != "" {
		parsed, err := strconv.ParseUint(payload.CodeID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("wasm/instantiate: invalid code_id %q: %w", payload.CodeID, err)
		}
		codeID = parsed
	}

	c := model.Contract{
		Address:                   payload.Address,
		CodeID:                    codeID,
		Admin:                     payload.Admin,
		Creator:                   payload.Creator,
		Label:                     payload.Label,
		InstantiatedAtBlockHeight: e.env.Block.Height,
		InstantiatedAtTxHash:      e.env.TxHash,
	}
	if err := e.deps.Store.UpsertContract(ctx, c); err != nil {
		return nil, err
	}

	return []PersistedModel{{
		Table:           "contracts",
		Address:         payload.Address,
		BlockHeight:     e.env.Block.Height,
		BlockTimeUnixMs: e.env.Block.TimeUnixMs,
	}}, nil
}
