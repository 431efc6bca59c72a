package tracehandler

import (
	"encoding/json"
	"testing"

	"github.com/noahsaso/argus-sub001/internal/model"
	"github.com/noahsaso/argus-sub001/internal/testutil"
)

func TestHandleWasmEventProducesStateItem(t *testing.T) {
	tx := testutil.NewTestTx(0, []model.TxEvent{
		{Type: "wasm", Attributes: map[string]string{
			"contract_address": "cosmos1contract",
			"key":               "cG9sbHM=",
			"value":             `"42"`,
		}},
	})

	items := Handle(tx, 100)

	testutil.AssertEqual(t, 1, len(items))
	testutil.AssertEqual(t, "wasm/stateEvent", items[0].Handler)
	testutil.AssertEqual(t, "cosmos1contract/cG9sbHM=", items[0].ID)
	testutil.AssertEqual(t, uint64(100), items[0].BlockHeight)
	testutil.AssertFalse(t, items[0].Background)
}

func TestHandleIgnoresUnrecognizedEventTypes(t *testing.T) {
	tx := testutil.NewTestTx(0, []model.TxEvent{
		{Type: "ibc_transfer", Attributes: map[string]string{"channel": "channel-0"}},
	})

	items := Handle(tx, 100)
	testutil.AssertEqual(t, 0, len(items))
}

func TestHandleBankEventIsBackgroundAndDedupeKeyed(t *testing.T) {
	tx := testutil.NewTestTx(0, []model.TxEvent{
		{Type: "coin_received", Attributes: map[string]string{
			"receiver": "cosmos1recipient",
			"denom":    "uargus",
			"balance":  "1000",
		}},
	})

	items := Handle(tx, 200)

	testutil.AssertEqual(t, 1, len(items))
	testutil.AssertEqual(t, "bank/balance", items[0].Handler)
	testutil.AssertEqual(t, "cosmos1recipient/uargus", items[0].ID)
	testutil.AssertTrue(t, items[0].Background)
}

func TestHandleFeegrantEventRequiresGranterAndGrantee(t *testing.T) {
	tx := testutil.NewTestTx(0, []model.TxEvent{
		{Type: "set_feegrant_allowance", Attributes: map[string]string{
			"granter": "cosmos1granter",
		}},
	})

	items := Handle(tx, 300)
	testutil.AssertEqual(t, 0, len(items))
}

func TestHandleInstantiateEventProducesBackgroundItem(t *testing.T) {
	tx := testutil.NewTestTx(0, []model.TxEvent{
		{Type: "instantiate", Attributes: map[string]string{
			"_contract_address": "cosmos1contract",
			"code_id":           "125",
			"creator":           "cosmos1creator",
		}},
	})

	items := Handle(tx, 500)

	testutil.AssertEqual(t, 1, len(items))
	testutil.AssertEqual(t, "wasm/instantiate", items[0].Handler)
	testutil.AssertEqual(t, "cosmos1contract", items[0].ID)
	testutil.AssertTrue(t, items[0].Background)
}

// TestHandleInstantiateEventCodeIDSurvivesJSONRoundTrip guards against the
// code_id type mismatch between tracehandler and extractregistry: the
// exporter sink marshals Item.Data to JSON exactly like this before an
// extractor ever sees it, so code_id must serialize as a JSON string, not
// a bare number.
func TestHandleInstantiateEventCodeIDSurvivesJSONRoundTrip(t *testing.T) {
	tx := testutil.NewTestTx(0, []model.TxEvent{
		{Type: "instantiate", Attributes: map[string]string{
			"_contract_address": "cosmos1contract",
			"code_id":           "125",
			"creator":           "cosmos1creator",
		}},
	})

	items := Handle(tx, 500)
	testutil.AssertEqual(t, 1, len(items))

	raw, err := json.Marshal(items[0].Data)
	testutil.AssertNoError(t, err)

	var decoded struct {
		CodeID string `json:"code_id"`
	}
	testutil.AssertNoError(t, json.Unmarshal(raw, &decoded))
	testutil.AssertEqual(t, "125", decoded.CodeID)
}

func TestHandleMultipleEventsProduceMultipleItems(t *testing.T) {
	tx := testutil.NewTestTx(0, []model.TxEvent{
		{Type: "wasm", Attributes: map[string]string{"contract_address": "cosmos1contract", "key": "a2V5"}},
		{Type: "coin_spent", Attributes: map[string]string{
			"spender": "cosmos1sender",
			"denom":   "uargus",
			"balance": "500",
		}},
	})

	items := Handle(tx, 400)
	testutil.AssertEqual(t, 2, len(items))
}
