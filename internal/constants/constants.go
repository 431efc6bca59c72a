// Package constants holds process-wide default values for the indexer core.
package constants

import "time"

// Block Iterator defaults (spec §4.1, §5).
const (
	// DefaultBufferSize is the number of concurrent in-flight block fetches.
	DefaultBufferSize = 25

	// DefaultEarliestHeightMargin is how far above a node's earliest
	// available height a requested start height is clamped to.
	DefaultEarliestHeightMargin = 10

	// DefaultTxDecodeBatchSize bounds how many TXs are decoded concurrently
	// per block.
	DefaultTxDecodeBatchSize = 10

	// DefaultTipPollInterval is how often the tip tracker polls getHeight()
	// as a fallback to the WebSocket subscription.
	DefaultTipPollInterval = 3 * time.Second

	// DefaultBlockNotYetCommittedRetryDelay is the sleep between retries of
	// the same height when the node reports it doesn't exist yet.
	DefaultBlockNotYetCommittedRetryDelay = time.Second

	// DefaultNodeReadMaxAttempts bounds retries of a single node read for
	// transient errors.
	DefaultNodeReadMaxAttempts = 30

	// DefaultNodeReadBaseDelay is the base delay between node-read retries.
	DefaultNodeReadBaseDelay = time.Second

	// MaxWebSocketReconnectBackoff caps the tip tracker's WebSocket
	// reconnect backoff.
	MaxWebSocketReconnectBackoff = 30 * time.Second

	// RateLimitRetryDelay is the fixed wait before retrying after a 429 /
	// "too many requests" response; such attempts are not counted against
	// the retry budget.
	RateLimitRetryDelay = 10 * time.Second
)

// Batched Trace Exporter defaults (spec §4.2).
const (
	// DefaultMaxBatchSize is the item count that forces an immediate flush.
	DefaultMaxBatchSize = 5000

	// DefaultDebounceDelay is how long the exporter waits after the last
	// item before flushing on idle.
	DefaultDebounceDelay = 500 * time.Millisecond
)

// Extract Worker defaults (spec §4.3, §5).
const (
	// DefaultWorkerConcurrency is the fixed pool size consuming the extract
	// queue.
	DefaultWorkerConcurrency = 5

	// DefaultExtractTimeout is the wall-clock deadline for a single
	// extractor invocation.
	DefaultExtractTimeout = 30 * time.Second

	// DefaultExtractMaxAttempts is the number of attempts (including the
	// first) made against a single extraction call.
	DefaultExtractMaxAttempts = 3

	// DefaultExtractBackoffBase is the starting delay for the extraction
	// retry's exponential backoff (100ms, 200ms, 400ms, ...).
	DefaultExtractBackoffBase = 100 * time.Millisecond
)

// Queue topic names (spec §6).
const (
	TopicExtract           = "extract"
	TopicExtractBackground = "extract-background"
)

// Metrics sliding-window defaults, reused across RPC and queue metrics
// trackers.
const (
	DefaultMetricsWindowSize = 100
	DefaultRateLimitWindow   = 5 * time.Minute
)

// Job queue defaults (spec §6: at-least-once delivery, per-job retry with
// exponential backoff, dead-letter on exhaustion).
const (
	// DefaultQueueMaxAttempts bounds retries of a single job, including the
	// first attempt, before it is moved to the dead-letter topic.
	DefaultQueueMaxAttempts = 5

	// DefaultQueueBackoffBase is the starting delay between job retries,
	// doubled on every subsequent attempt.
	DefaultQueueBackoffBase = 500 * time.Millisecond

	// DefaultQueueMaxBackoff caps the per-job retry delay.
	DefaultQueueMaxBackoff = 30 * time.Second

	// DeadLetterSuffix is appended to a topic name to form its dead-letter
	// counterpart.
	DeadLetterSuffix = ":dead"

	// DefaultQueuePollInterval is how often a Redis consumer polls for new
	// work when idle.
	DefaultQueuePollInterval = 2 * time.Second

	// ProcessingListSuffix names the Redis in-flight list used to recover
	// jobs claimed by a consumer that crashed before acknowledging.
	ProcessingListSuffix = ":processing"
)
