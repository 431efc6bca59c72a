package extractregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// bankBalancePayload is the raw trace-handler payload for a single-denom
// balance snapshot.
type bankBalancePayload struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
	Balance string `json:"balance"`
}

// bankBalanceExtractor persists a balance snapshot only when the
// address's contract code id is on the configured allow-list (an empty
// list allows every address): it then appends to the BankStateEvent log
// and projects into the latest-balance table. For any other address it
// writes nothing.
type bankBalanceExtractor struct {
	deps         Deps
	env          Env
	allowedCodes map[uint64]bool
}

func newBankBalanceExtractor(deps Deps, env Env) (Extractor, error) {
	allowed := make(map[uint64]bool)
	for _, s := range strings.Split(env.Config["bank_allowed_code_ids"], ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bank/balance: invalid code id %q in bank_allowed_code_ids: %w", s, err)
		}
		allowed[id] = true
	}
	return bankBalanceExtractor{deps: deps, env: env, allowedCodes: allowed}, nil
}

func (e bankBalanceExtractor) Extract(ctx context.Context, data json.RawMessage) ([]PersistedModel, error) {
	var payload bankBalancePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("bank/balance: decode payload: %w", err)
	}
	if payload.Address == "" || payload.Denom == "" {
		return nil, fmt.Errorf("bank/balance: address and denom are required")
	}
	balance, err := decimal.NewFromString(payload.Balance)
	if err != nil {
		return nil, fmt.Errorf("bank/balance: invalid balance %q: %w", payload.Balance, err)
	}

	allowed := len(e.allowedCodes) == 0
	if !allowed {
		codeIDs, err := e.deps.Store.ContractCodeIDs(ctx, []string{payload.Address})
		if err != nil {
			return nil, err
		}
		allowed = e.allowedCodes[codeIDs[payload.Address]]
	}
	if !allowed {
		return nil, nil
	}

	ev := model.BankStateEvent{
		Address:         payload.Address,
		Denom:           payload.Denom,
		Balance:         balance,
		BlockHeight:     e.env.Block.Height,
		BlockTimeUnixMs: e.env.Block.TimeUnixMs,
	}
	if err := e.deps.Store.InsertBankStateEvent(ctx, ev); err != nil {
		return nil, err
	}

	models := []PersistedModel{{
		Table:           "bank_state_events",
		Address:         payload.Address,
		Key:             payload.Denom,
		BlockHeight:     ev.BlockHeight,
		BlockTimeUnixMs: ev.BlockTimeUnixMs,
	}}

	bal := model.BankDenomBalance{
		Address:     payload.Address,
		Denom:       payload.Denom,
		Balance:     balance,
		BlockHeight: ev.BlockHeight,
	}
	if err := e.deps.Store.UpsertBankDenomBalance(ctx, bal); err != nil {
		return nil, err
	}
	models = append(models, PersistedModel{
		Table:           "bank_denom_balances",
		Address:         payload.Address,
		Key:             payload.Denom,
		BlockHeight:     ev.BlockHeight,
		BlockTimeUnixMs: ev.BlockTimeUnixMs,
	})

	return models, nil
}
