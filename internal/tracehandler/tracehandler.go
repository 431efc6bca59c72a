// Package tracehandler translates decoded transaction events (spec §3's
// "trace handlers (bank, feegrant, wasm, gov, etc.)") into the exporter
// items the Batched Trace Exporter buffers and flushes to the extract job
// queue. Each handler recognizes one module's event type and produces
// items keyed for that extractor's dedupe semantics (spec §4.2: "the
// last item wins").
package tracehandler

import (
	"encoding/json"

	"github.com/noahsaso/argus-sub001/internal/exporter"
	"github.com/noahsaso/argus-sub001/internal/model"
)

// Handle converts every recognized event in tx into exporter items for
// blockHeight. Unrecognized event types are ignored; they carry no
// extractable state for this deployment.
func Handle(tx model.DecodedTx, blockHeight uint64) []exporter.Item {
	var items []exporter.Item
	for _, ev := range tx.Events {
		switch ev.Type {
		case "wasm":
			if item, ok := wasmStateItem(ev, blockHeight); ok {
				items = append(items, item)
			}
		case "instantiate":
			if item, ok := instantiateItem(ev, blockHeight); ok {
				items = append(items, item)
			}
		case "coin_received", "coin_spent", "transfer":
			if item, ok := bankBalanceItem(ev, blockHeight); ok {
				items = append(items, item)
			}
		case "set_feegrant_allowance", "revoke_feegrant_allowance":
			if item, ok := feegrantItem(ev, blockHeight); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

func wasmStateItem(ev model.TxEvent, blockHeight uint64) (exporter.Item, bool) {
	contract := ev.Attributes["contract_address"]
	key := ev.Attributes["key"]
	if contract == "" || key == "" {
		return exporter.Item{}, false
	}
	data := map[string]any{
		"contract_address": contract,
		"key":              key,
		"delete":           ev.Attributes["action"] == "delete",
	}
	if v, ok := ev.Attributes["value"]; ok {
		data["value"] = json.RawMessage(v)
	}
	return exporter.Item{
		Handler:     "wasm/stateEvent",
		ID:          contract + "/" + key,
		Data:        data,
		BlockHeight: blockHeight,
	}, true
}

func instantiateItem(ev model.TxEvent, blockHeight uint64) (exporter.Item, bool) {
	address := ev.Attributes["_contract_address"]
	if address == "" {
		address = ev.Attributes["contract_address"]
	}
	if address == "" {
		return exporter.Item{}, false
	}
	data := map[string]any{
		"address": address,
		"code_id": ev.Attributes["code_id"],
		"admin":   ev.Attributes["admin"],
		"creator": ev.Attributes["creator"],
		"label":   ev.Attributes["label"],
	}
	return exporter.Item{
		Handler:     "wasm/instantiate",
		ID:          address,
		Data:        data,
		BlockHeight: blockHeight,
		Background:  true,
	}, true
}

func bankBalanceItem(ev model.TxEvent, blockHeight uint64) (exporter.Item, bool) {
	address := ev.Attributes["receiver"]
	if address == "" {
		address = ev.Attributes["spender"]
	}
	denom := ev.Attributes["denom"]
	balance := ev.Attributes["balance"]
	if address == "" || denom == "" || balance == "" {
		return exporter.Item{}, false
	}
	data := map[string]any{
		"address": address,
		"denom":   denom,
		"balance": balance,
	}
	return exporter.Item{
		Handler:     "bank/balance",
		ID:          address + "/" + denom,
		Data:        data,
		BlockHeight: blockHeight,
		Background:  true,
	}, true
}

func feegrantItem(ev model.TxEvent, blockHeight uint64) (exporter.Item, bool) {
	granter := ev.Attributes["granter"]
	grantee := ev.Attributes["grantee"]
	if granter == "" || grantee == "" {
		return exporter.Item{}, false
	}
	data := map[string]any{
		"granter": granter,
		"grantee": grantee,
		"active":  ev.Type == "set_feegrant_allowance",
	}
	if allowance, ok := ev.Attributes["allowance"]; ok {
		data["allowance_data"] = json.RawMessage(allowance)
	}
	return exporter.Item{
		Handler:     "feegrant/allowance",
		ID:          granter + "/" + grantee,
		Data:        data,
		BlockHeight: blockHeight,
		Background:  true,
	}, true
}
