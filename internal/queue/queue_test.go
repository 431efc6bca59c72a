package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobAssignsIDAndZeroAttempt(t *testing.T) {
	j1 := NewJob("account/balance", []byte(`{"a":1}`), "ABCD", 100, 1000)
	j2 := NewJob("account/balance", []byte(`{"a":1}`), "ABCD", 100, 1000)

	assert.NotEmpty(t, j1.ID)
	assert.NotEqual(t, j1.ID, j2.ID)
	assert.Equal(t, 0, j1.Attempt)
	assert.Equal(t, uint64(100), j1.BlockHeight)
}

func TestConfigBackoffForDoublesAndCaps(t *testing.T) {
	cfg := Config{BackoffBase: 100 * time.Millisecond, MaxBackoff: time.Second}.withDefaults()

	assert.Equal(t, 100*time.Millisecond, cfg.backoffFor(1))
	assert.Equal(t, 200*time.Millisecond, cfg.backoffFor(2))
	assert.Equal(t, 400*time.Millisecond, cfg.backoffFor(3))
	assert.Equal(t, 800*time.Millisecond, cfg.backoffFor(4))
	assert.Equal(t, time.Second, cfg.backoffFor(5), "backoff must cap at MaxBackoff")
	assert.Equal(t, time.Second, cfg.backoffFor(10))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Greater(t, cfg.MaxAttempts, 0)
	assert.Greater(t, cfg.BackoffBase, time.Duration(0))
	assert.Greater(t, cfg.MaxBackoff, time.Duration(0))
}

func TestDeadLetterTopic(t *testing.T) {
	assert.Equal(t, "extract:dead", DeadLetterTopic("extract"))
	assert.Equal(t, "extract-background:dead", DeadLetterTopic("extract-background"))
}

func TestDeadLetteredErrorUnwrap(t *testing.T) {
	cause := assert.AnError
	err := &DeadLetteredError{JobID: "job-1", Topic: "extract", Attempt: 5, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "job-1")
	assert.Contains(t, err.Error(), "extract")
}

func TestFatalWrapsAndUnwraps(t *testing.T) {
	cause := assert.AnError
	err := Fatal(cause)

	assert.ErrorIs(t, err, cause)
	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
	assert.Equal(t, cause.Error(), err.Error())
}

func TestFactoryRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), FactoryConfig{Backend: "carrier-pigeon"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewRedisQueueRequiresAddresses(t *testing.T) {
	_, err := NewRedisQueue(context.Background(), RedisConfig{}, Config{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewKafkaQueueRequiresBrokersAndGroupID(t *testing.T) {
	_, err := NewKafkaQueue(KafkaConfig{}, Config{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}}, Config{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
