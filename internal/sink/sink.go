// Package sink implements the fire-and-forget downstream notifiers the
// Extract Worker fans out to after persisting a job's models: the search
// indexer and the webhook dispatcher (spec §6). Either being down does not
// fail the worker; failures are logged and suppressed (spec §7
// DownstreamSinkFailure).
package sink

import (
	"context"

	"go.uber.org/zap"
)

// Record describes one persisted model for sink consumption. It carries
// enough of the model's identity for a search index or webhook payload
// without re-reading the store.
type Record struct {
	Table       string
	Address     string
	Key         string
	BlockHeight uint64
}

// SearchSink indexes persisted records for search. Count is the number of
// records actually indexed; it may be less than len(records) on partial
// failure, but a partial failure still returns a nil error (the policy is
// "don't fail the worker", per spec §6).
type SearchSink interface {
	IndexRecords(ctx context.Context, records []Record) (count int, err error)
}

// WebhookSink notifies external webhooks about persisted records.
type WebhookSink interface {
	NotifyRecords(ctx context.Context, records []Record) (count int, err error)
}

// LoggingSearchSink is a SearchSink that only logs; it stands in for a real
// search-index integration (spec §9 treats the indexer's internals as out
// of scope).
type LoggingSearchSink struct {
	Logger *zap.Logger
}

func (s LoggingSearchSink) IndexRecords(_ context.Context, records []Record) (int, error) {
	s.Logger.Debug("indexing records", zap.Int("count", len(records)))
	return len(records), nil
}

// LoggingWebhookSink is a WebhookSink that only logs.
type LoggingWebhookSink struct {
	Logger *zap.Logger
}

func (s LoggingWebhookSink) NotifyRecords(_ context.Context, records []Record) (int, error) {
	s.Logger.Debug("notifying webhooks", zap.Int("count", len(records)))
	return len(records), nil
}
