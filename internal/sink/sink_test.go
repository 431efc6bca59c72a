package sink

import (
	"context"
	"testing"

	"github.com/noahsaso/argus-sub001/internal/testutil"
)

func TestLoggingSearchSinkReturnsFullCount(t *testing.T) {
	s := LoggingSearchSink{Logger: testutil.NewTestLogger(t)}
	records := []Record{{Table: "wasm_state_events", Address: "addr1", Key: "k"}, {Table: "contracts", Address: "addr2"}}

	count, err := s.IndexRecords(context.Background(), records)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, count)
}

func TestLoggingWebhookSinkReturnsFullCount(t *testing.T) {
	s := LoggingWebhookSink{Logger: testutil.NewTestLogger(t)}
	records := []Record{{Table: "bank_denom_balances", Address: "addr1"}}

	count, err := s.NotifyRecords(context.Background(), records)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, count)
}

func TestLoggingSinksHandleEmptyInput(t *testing.T) {
	search := LoggingSearchSink{Logger: testutil.NewTestLogger(t)}
	webhook := LoggingWebhookSink{Logger: testutil.NewTestLogger(t)}

	count, err := search.IndexRecords(context.Background(), nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0, count)

	count, err = webhook.NotifyRecords(context.Background(), nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0, count)
}
