// Package queue implements the extract job queue: two topics (extract,
// extract-background), each backed by Redis or Kafka, with at-least-once
// delivery, per-job exponential backoff retry, and dead-lettering on
// exhaustion (spec §6).
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/noahsaso/argus-sub001/internal/constants"
)

// Job is a single extract request (spec §4.3's `{extractor, data, env}`).
type Job struct {
	ID              string          `json:"id"`
	Extractor       string          `json:"extractor"`
	Data            json.RawMessage `json:"data"`
	TxHash          string          `json:"tx_hash,omitempty"`
	BlockHeight     uint64          `json:"block_height"`
	BlockTimeUnixMs int64           `json:"block_time_unix_ms"`
	Attempt         int             `json:"attempt"`
}

// NewJob builds a Job with a fresh ID and Attempt zeroed.
func NewJob(extractor string, data json.RawMessage, txHash string, blockHeight uint64, blockTimeUnixMs int64) Job {
	return Job{
		ID:              uuid.NewString(),
		Extractor:       extractor,
		Data:            data,
		TxHash:          txHash,
		BlockHeight:     blockHeight,
		BlockTimeUnixMs: blockTimeUnixMs,
	}
}

// Handler processes a single job. A returned error causes the queue to
// retry the job (up to Config.MaxAttempts) before dead-lettering it.
type Handler func(ctx context.Context, job Job) error

// Config bounds retry behavior, shared by every backend.
type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
	MaxBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = constants.DefaultQueueMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = constants.DefaultQueueBackoffBase
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = constants.DefaultQueueMaxBackoff
	}
	return c
}

// backoffFor returns the delay before retrying the job's next attempt
// (attempt is 1-indexed: the attempt number that just failed).
func (c Config) backoffFor(attempt int) time.Duration {
	delay := c.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return delay
}

// Queue publishes and consumes jobs on named topics.
type Queue interface {
	// Enqueue publishes job to topic. Delivery is at-least-once.
	Enqueue(ctx context.Context, topic string, job Job) error

	// Consume runs handler against jobs from topic using the given
	// concurrency, blocking until ctx is cancelled. Failed jobs are
	// retried with exponential backoff up to Config.MaxAttempts, then
	// moved to topic's dead-letter counterpart.
	Consume(ctx context.Context, topic string, concurrency int, handler Handler) error

	// Close releases backend resources.
	Close() error
}

// DeadLetterTopic returns the dead-letter counterpart of topic.
func DeadLetterTopic(topic string) string {
	return topic + constants.DeadLetterSuffix
}
