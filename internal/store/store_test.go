package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahsaso/argus-sub001/internal/testutil"
)

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), Config{}, testutil.NewTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestNewRejectsInvalidDSN(t *testing.T) {
	_, err := New(context.Background(), Config{DSN: "not a valid dsn://::"}, testutil.NewTestLogger(t))
	require.Error(t, err)
}

func TestSchemaSQLDeclaresEveryTable(t *testing.T) {
	for _, table := range []string{
		"blocks", "state", "wasm_state_events", "wasm_state_event_transformations",
		"extractions", "bank_state_events", "bank_denom_balances",
		"feegrant_allowances", "contracts",
	} {
		assert.Contains(t, schemaSQL, table, "schema must declare table %q", table)
	}
}

func TestNullableJSON(t *testing.T) {
	assert.Nil(t, nullableJSON(nil))
	assert.Equal(t, []byte(`{"a":1}`), nullableJSON([]byte(`{"a":1}`)))
}

// TestStoreIntegration exercises a live Postgres instance when
// ARGUS_TEST_DATABASE_DSN is set. It is skipped otherwise and under
// `go test -short`, mirroring internal/node's client integration test.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("ARGUS_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("ARGUS_TEST_DATABASE_DSN not set")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		t.Fatalf("ARGUS_TEST_DATABASE_DSN must be a postgres:// DSN")
	}

	ctx := context.Background()
	st, err := New(ctx, Config{DSN: dsn}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Migrate(ctx))

	block := testutil.NewTestBlock(12345)
	require.NoError(t, st.UpsertBlock(ctx, block))

	got, ok, err := st.GetBlock(ctx, block.Height)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, block.Height, got.Height)
}
