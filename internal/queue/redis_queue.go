package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noahsaso/argus-sub001/internal/constants"
)

// RedisConfig configures the Redis-backed queue. Grounded on the teacher's
// pkg/eventbus/redis_adapter.go connection options, minus Pub/Sub.
type RedisConfig struct {
	Addresses   []string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	TLSEnabled  bool
}

// RedisQueue implements Queue on top of Redis lists: Enqueue does LPUSH,
// Consume does a blocking BRPOPLPUSH into a per-topic processing list so an
// in-flight job survives a consumer crash, acknowledging with LREM on
// success and re-publishing (or dead-lettering) on failure.
type RedisQueue struct {
	client redis.UniversalClient
	config Config
	logger *zap.Logger

	wg sync.WaitGroup
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue dials Redis and verifies connectivity.
func NewRedisQueue(ctx context.Context, cfg RedisConfig, jobConfig Config, logger *zap.Logger) (*RedisQueue, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("%w: no Redis addresses configured", ErrInvalidConfiguration)
	}

	var tlsConfig *tls.Config
	if cfg.TLSEnabled {
		tlsConfig = &tls.Config{}
	}

	var client redis.UniversalClient
	if len(cfg.Addresses) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       cfg.Addresses,
			Password:    cfg.Password,
			PoolSize:    cfg.PoolSize,
			DialTimeout: cfg.DialTimeout,
			TLSConfig:   tlsConfig,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:        cfg.Addresses[0],
			Password:    cfg.Password,
			DB:          cfg.DB,
			PoolSize:    cfg.PoolSize,
			DialTimeout: cfg.DialTimeout,
			TLSConfig:   tlsConfig,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueue{
		client: client,
		config: jobConfig.withDefaults(),
		logger: logger,
	}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, topic string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.client.LPush(ctx, topic, data).Err()
}

func (q *RedisQueue) Consume(ctx context.Context, topic string, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	processingList := topic + constants.ProcessingListSuffix

	for i := 0; i < concurrency; i++ {
		q.wg.Add(1)
		go q.consumeWorker(ctx, topic, processingList, handler)
	}

	<-ctx.Done()
	q.wg.Wait()
	return ctx.Err()
}

func (q *RedisQueue) consumeWorker(ctx context.Context, topic, processingList string, handler Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := q.client.BRPopLPush(ctx, topic, processingList, constants.DefaultQueuePollInterval).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			q.logger.Warn("redis queue pop failed", zap.String("topic", topic), zap.Error(err))
			continue
		}

		q.process(ctx, topic, processingList, raw, handler)
	}
}

func (q *RedisQueue) process(ctx context.Context, topic, processingList, raw string, handler Handler) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.Error("failed to unmarshal queued job, dropping", zap.String("topic", topic), zap.Error(err))
		q.client.LRem(ctx, processingList, 1, raw)
		return
	}

	job.Attempt++
	handlerErr := handler(ctx, job)

	// Acknowledge by removing the raw entry we claimed, regardless of
	// outcome; retries are re-published as a new list entry.
	q.client.LRem(ctx, processingList, 1, raw)

	if handlerErr == nil {
		return
	}

	var fatal *FatalError
	if errors.As(handlerErr, &fatal) || job.Attempt >= q.config.MaxAttempts {
		q.deadLetter(ctx, topic, job, handlerErr)
		return
	}

	delay := q.config.backoffFor(job.Attempt)
	q.logger.Warn("job failed, retrying",
		zap.String("topic", topic),
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Duration("backoff", delay),
		zap.Error(handlerErr),
	)

	// Tracked on q.wg so Consume's shutdown drains this retry instead of
	// abandoning it: a job already LRem'd off the processing list is gone
	// if this goroutine doesn't requeue it somewhere.
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-ctx.Done():
			// Shutting down mid-backoff: requeue immediately rather than
			// dropping the job, preserving at-least-once delivery.
		case <-time.After(delay):
		}
		if err := q.Enqueue(context.Background(), topic, job); err != nil {
			q.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}()
}

func (q *RedisQueue) deadLetter(ctx context.Context, topic string, job Job, cause error) {
	q.logger.Error("job exhausted retries, dead-lettering",
		zap.String("topic", topic),
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Error(cause),
	)
	data, err := json.Marshal(job)
	if err != nil {
		q.logger.Error("failed to marshal dead-lettered job", zap.Error(err))
		return
	}
	if err := q.client.LPush(ctx, DeadLetterTopic(topic), data).Err(); err != nil {
		q.logger.Error("failed to write to dead-letter topic", zap.Error(err))
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
