package testutil

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// NewTestLogger creates a zap development logger for tests; it writes to stderr
func NewTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("Failed to create test logger: %v", err)
	}
	return logger
}

// NewTestBlock creates a test block with the given height.
func NewTestBlock(height uint64) model.Block {
	return model.Block{
		Height:     height,
		TimeUnixMs: time.Now().UnixMilli(),
	}
}

// NewTestTx creates a decoded transaction with a deterministic hash and the
// given events, for use as Block Iterator onTx callback fixtures.
func NewTestTx(index int, events []model.TxEvent) model.DecodedTx {
	return model.DecodedTx{
		Index:  index,
		Hash:   fmt.Sprintf("%064x", index+1),
		Events: events,
	}
}

// NewTestWasmStateEvent creates a raw contract state write fixture.
func NewTestWasmStateEvent(contract, key string, value []byte, height uint64) model.WasmStateEvent {
	return model.WasmStateEvent{
		ContractAddress: contract,
		Key:             key,
		ValueJSON:       value,
		BlockHeight:     height,
		BlockTimeUnixMs: time.Now().UnixMilli(),
	}
}

// NewTestExtraction creates an extraction fixture.
func NewTestExtraction(address, name string, data []byte, height uint64) model.Extraction {
	return model.Extraction{
		Address:         address,
		Name:            name,
		Data:            data,
		BlockHeight:     height,
		BlockTimeUnixMs: time.Now().UnixMilli(),
		TxHash:          fmt.Sprintf("%064x", height),
	}
}

// NewTestBankDenomBalance creates a bank balance projection fixture.
func NewTestBankDenomBalance(address, denom string, amount int64, height uint64) model.BankDenomBalance {
	return model.BankDenomBalance{
		Address:     address,
		Denom:       denom,
		Balance:     decimal.NewFromInt(amount),
		BlockHeight: height,
	}
}

// AssertNoError is a helper to assert that there is no error
func AssertNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%s: %v", msgAndArgs[0], err)
		} else {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
}

// AssertError is a helper to assert that there is an error
func AssertError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%s: expected error but got nil", msgAndArgs[0])
		} else {
			t.Fatal("Expected error but got nil")
		}
	}
}

// AssertEqual is a helper to assert equality
func AssertEqual(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if expected != actual {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%s: expected %v, got %v", msgAndArgs[0], expected, actual)
		} else {
			t.Fatalf("Expected %v, got %v", expected, actual)
		}
	}
}

// AssertNotEqual is a helper to assert inequality
func AssertNotEqual(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if expected == actual {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%s: expected not equal to %v, but got %v", msgAndArgs[0], expected, actual)
		} else {
			t.Fatalf("Expected not equal to %v, but got %v", expected, actual)
		}
	}
}

// AssertTrue is a helper to assert that a condition is true
func AssertTrue(t *testing.T, condition bool, msgAndArgs ...interface{}) {
	t.Helper()
	if !condition {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%s: expected true but got false", msgAndArgs[0])
		} else {
			t.Fatal("Expected true but got false")
		}
	}
}

// AssertFalse is a helper to assert that a condition is false
func AssertFalse(t *testing.T, condition bool, msgAndArgs ...interface{}) {
	t.Helper()
	if condition {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%s: expected false but got true", msgAndArgs[0])
		} else {
			t.Fatal("Expected false but got true")
		}
	}
}

// AssertNil is a helper to assert that a value is nil
func AssertNil(t *testing.T, value interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if value != nil && !isNil(value) {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%s: expected nil but got %v", msgAndArgs[0], value)
		} else {
			t.Fatalf("Expected nil but got %v", value)
		}
	}
}

// isNil checks if a value is nil using reflection
// This is needed because interface{} != nil doesn't work for nil pointers
func isNil(value interface{}) bool {
	if value == nil {
		return true
	}

	// Use reflection to check if the underlying value is nil
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// AssertNotNil is a helper to assert that a value is not nil
func AssertNotNil(t *testing.T, value interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if value == nil || isNil(value) {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%s: expected not nil but got nil", msgAndArgs[0])
		} else {
			t.Fatal("Expected not nil but got nil")
		}
	}
}
