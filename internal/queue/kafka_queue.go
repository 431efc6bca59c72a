package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig configures the Kafka-backed queue.
type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	RequiredAcks int
}

// KafkaQueue implements Queue on Kafka: Enqueue writes to the topic,
// Consume reads via a consumer group and republishes (or dead-letters)
// failed jobs rather than relying on offset replay, since a consumer
// group's committed offset advances regardless of handler outcome.
type KafkaQueue struct {
	brokers []string
	groupID string
	acks    kafka.RequiredAcks
	config  Config
	logger  *zap.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer

	wg sync.WaitGroup
}

var _ Queue = (*KafkaQueue)(nil)

// NewKafkaQueue constructs a KafkaQueue. No connection is established until
// Enqueue/Consume is called against a specific topic.
func NewKafkaQueue(cfg KafkaConfig, jobConfig Config, logger *zap.Logger) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: no Kafka brokers configured", ErrInvalidConfiguration)
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("%w: no Kafka group ID configured", ErrInvalidConfiguration)
	}

	acks := kafka.RequiredAcks(cfg.RequiredAcks)
	if cfg.RequiredAcks == 0 {
		acks = kafka.RequireAll
	}

	return &KafkaQueue{
		brokers: cfg.Brokers,
		groupID: cfg.GroupID,
		acks:    acks,
		config:  jobConfig.withDefaults(),
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
	}, nil
}

func (q *KafkaQueue) writerFor(topic string) *kafka.Writer {
	q.mu.Lock()
	defer q.mu.Unlock()
	if w, ok := q.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(q.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: q.acks,
	}
	q.writers[topic] = w
	return w
}

func (q *KafkaQueue) Enqueue(ctx context.Context, topic string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.writerFor(topic).WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.ID),
		Value: data,
	})
}

func (q *KafkaQueue) Consume(ctx context.Context, topic string, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     q.brokers,
		Topic:       topic,
		GroupID:     q.groupID,
		StartOffset: kafka.FirstOffset,
		MaxWait:     time.Second,
	})
	defer reader.Close()

	jobs := make(chan kafka.Message)

	for i := 0; i < concurrency; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for msg := range jobs {
				q.process(ctx, topic, msg, handler)
			}
		}()
	}

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			q.wg.Wait()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kafka reader failed: %w", err)
		}
		select {
		case jobs <- msg:
		case <-ctx.Done():
			close(jobs)
			q.wg.Wait()
			return ctx.Err()
		}
	}
}

func (q *KafkaQueue) process(ctx context.Context, topic string, msg kafka.Message, handler Handler) {
	var job Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		q.logger.Error("failed to unmarshal queued job, dropping", zap.String("topic", topic), zap.Error(err))
		return
	}

	job.Attempt++
	err := handler(ctx, job)
	var fatal *FatalError
	if err == nil {
		return
	} else if errors.As(err, &fatal) || job.Attempt >= q.config.MaxAttempts {
		q.deadLetter(ctx, topic, job, err)
	} else {
		delay := q.config.backoffFor(job.Attempt)
		q.logger.Warn("job failed, retrying",
			zap.String("topic", topic),
			zap.String("job_id", job.ID),
			zap.Int("attempt", job.Attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		// Tracked on q.wg so Consume's shutdown drains this retry instead
		// of abandoning it: the partition offset has already advanced past
		// this message, so losing it here means losing it entirely.
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			select {
			case <-ctx.Done():
				// Shutting down mid-backoff: requeue immediately rather
				// than dropping the job, preserving at-least-once delivery.
			case <-time.After(delay):
			}
			if err := q.Enqueue(context.Background(), topic, job); err != nil {
				q.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
			}
		}()
	}
}

func (q *KafkaQueue) deadLetter(ctx context.Context, topic string, job Job, cause error) {
	q.logger.Error("job exhausted retries, dead-lettering",
		zap.String("topic", topic),
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Error(cause),
	)
	if err := q.Enqueue(ctx, DeadLetterTopic(topic), job); err != nil {
		q.logger.Error("failed to write to dead-letter topic", zap.Error(err))
	}
}

func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	var firstErr error
	for _, w := range q.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
