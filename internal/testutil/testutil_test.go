package testutil

import (
	"testing"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// TestNewTestLogger tests creating a test logger
func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)
	if logger == nil {
		t.Fatal("NewTestLogger() returned nil")
	}
}

// TestNewTestBlock tests creating a test block
func TestNewTestBlock(t *testing.T) {
	block := NewTestBlock(1)
	if block.Height != 1 {
		t.Errorf("Block height = %d, want 1", block.Height)
	}
}

// TestNewTestTx tests creating a decoded tx fixture with events
func TestNewTestTx(t *testing.T) {
	events := []model.TxEvent{{Type: "wasm", Attributes: map[string]string{"key": "value"}}}
	tx := NewTestTx(3, events)
	if tx.Index != 3 {
		t.Errorf("Tx index = %d, want 3", tx.Index)
	}
	if tx.Hash == "" {
		t.Error("Tx hash should not be empty")
	}
	if len(tx.Events) != 1 {
		t.Errorf("Tx events = %d, want 1", len(tx.Events))
	}
}

// TestNewTestWasmStateEvent tests creating a raw state event fixture
func TestNewTestWasmStateEvent(t *testing.T) {
	evt := NewTestWasmStateEvent("contract1", "key1", []byte(`"value"`), 100)
	if evt.ContractAddress != "contract1" {
		t.Errorf("ContractAddress = %s, want contract1", evt.ContractAddress)
	}
	if evt.BlockHeight != 100 {
		t.Errorf("BlockHeight = %d, want 100", evt.BlockHeight)
	}
}

// TestNewTestBankDenomBalance tests creating a balance projection fixture
func TestNewTestBankDenomBalance(t *testing.T) {
	bal := NewTestBankDenomBalance("addr1", "uatom", 1000, 50)
	if !bal.Balance.Equal(bal.Balance) {
		t.Fatal("unreachable")
	}
	if bal.BlockHeight != 50 {
		t.Errorf("BlockHeight = %d, want 50", bal.BlockHeight)
	}
}

// TestAssertNoError tests the AssertNoError helper
func TestAssertNoError(t *testing.T) {
	// Should not panic with nil error
	AssertNoError(t, nil)
}

// TestAssertEqual tests the AssertEqual helper
func TestAssertEqual(t *testing.T) {
	// Should not fail with equal values
	AssertEqual(t, 1, 1)
	AssertEqual(t, "test", "test")
}

// TestAssertNotEqual tests the AssertNotEqual helper
func TestAssertNotEqual(t *testing.T) {
	// Should not fail with different values
	AssertNotEqual(t, 1, 2)
	AssertNotEqual(t, "test", "other")
}

// TestAssertTrue tests the AssertTrue helper
func TestAssertTrue(t *testing.T) {
	// Should not fail with true condition
	AssertTrue(t, true)
	a, b := 1, 1
	AssertTrue(t, a == b)
}

// TestAssertFalse tests the AssertFalse helper
func TestAssertFalse(t *testing.T) {
	// Should not fail with false condition
	AssertFalse(t, false)
	AssertFalse(t, 1 == 2)
}

// TestAssertNil tests the AssertNil helper
func TestAssertNil(t *testing.T) {
	// Should not fail with nil value
	var nilValue *int
	AssertNil(t, nil)
	AssertNil(t, nilValue)
}

// TestAssertNotNil tests the AssertNotNil helper
func TestAssertNotNil(t *testing.T) {
	// Should not fail with non-nil value
	value := 1
	AssertNotNil(t, &value)
	AssertNotNil(t, "test")
}
