package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FactoryConfig selects and configures a Queue backend.
type FactoryConfig struct {
	Backend string // "redis" or "kafka"
	Redis   RedisConfig
	Kafka   KafkaConfig
	Job     Config
}

// New constructs the configured Queue backend.
func New(ctx context.Context, cfg FactoryConfig, logger *zap.Logger) (Queue, error) {
	switch cfg.Backend {
	case "redis", "":
		return NewRedisQueue(ctx, cfg.Redis, cfg.Job, logger)
	case "kafka":
		return NewKafkaQueue(cfg.Kafka, cfg.Job, logger)
	default:
		return nil, fmt.Errorf("%w: unknown queue backend %q", ErrInvalidConfiguration, cfg.Backend)
	}
}
