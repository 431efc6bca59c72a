package extractregistry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/noahsaso/argus-sub001/internal/testutil"
)

func TestDefaultRegistersEveryExtractor(t *testing.T) {
	r := Default()
	for _, name := range []string{"wasm/stateEvent", "wasm/instantiate", "bank/balance", "feegrant/allowance"} {
		_, ok := r.Resolve(name)
		testutil.AssertTrue(t, ok, "expected %s to be registered", name)
	}
}

func TestResolveUnknownExtractor(t *testing.T) {
	r := Default()
	_, ok := r.Resolve("does/notExist")
	testutil.AssertFalse(t, ok)
}

func TestWasmStateEventExtractorRejectsMissingFields(t *testing.T) {
	e, err := newWasmStateEventExtractor(Deps{}, Env{})
	testutil.AssertNoError(t, err)
	_, err = e.Extract(context.Background(), json.RawMessage(`{}`))
	testutil.AssertError(t, err)
}

func TestBankBalanceExtractorRejectsInvalidBalance(t *testing.T) {
	e, err := newBankBalanceExtractor(Deps{}, Env{})
	testutil.AssertNoError(t, err)
	_, err = e.Extract(context.Background(), json.RawMessage(`{"address":"a","denom":"uargus","balance":"not-a-number"}`))
	testutil.AssertError(t, err)
}

func TestBankBalanceExtractorParsesAllowListFromConfig(t *testing.T) {
	e, err := newBankBalanceExtractor(Deps{}, Env{Config: map[string]string{"bank_allowed_code_ids": "1, 2,3"}})
	testutil.AssertNoError(t, err)
	bbe := e.(bankBalanceExtractor)
	for _, id := range []uint64{1, 2, 3} {
		testutil.AssertTrue(t, bbe.allowedCodes[id], "expected code id %d to be allow-listed", id)
	}
	testutil.AssertFalse(t, bbe.allowedCodes[4])
}

func TestFeegrantAllowanceExtractorRejectsMissingFields(t *testing.T) {
	e, err := newFeegrantAllowanceExtractor(Deps{}, Env{})
	testutil.AssertNoError(t, err)
	_, err = e.Extract(context.Background(), json.RawMessage(`{"granter":"a"}`))
	testutil.AssertError(t, err)
}

func TestContractInstantiateExtractorRejectsMissingAddress(t *testing.T) {
	e, err := newContractInstantiateExtractor(Deps{}, Env{})
	testutil.AssertNoError(t, err)
	_, err = e.Extract(context.Background(), json.RawMessage(`{"code_id":"1"}`))
	testutil.AssertError(t, err)
}

func TestContractInstantiateExtractorRejectsNonNumericCodeID(t *testing.T) {
	e, err := newContractInstantiateExtractor(Deps{}, Env{})
	testutil.AssertNoError(t, err)
	_, err = e.Extract(context.Background(), json.RawMessage(`{"address":"cosmos1contract","code_id":"not-a-number"}`))
	testutil.AssertError(t, err)
}

func TestContractInstantiatePayloadCodeIDIsStringTyped(t *testing.T) {
	var payload contractInstantiatePayload
	err := json.Unmarshal([]byte(`{"address":"cosmos1contract","code_id":"125","creator":"cosmos1creator"}`), &payload)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "125", payload.CodeID)
}
