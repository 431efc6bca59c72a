package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, 25, cfg.Iterator.BufferSize)
	require.Equal(t, 5000, cfg.Exporter.MaxBatchSize)
	require.Equal(t, 500*time.Millisecond, cfg.Exporter.DebounceMs)
	require.Equal(t, 5, cfg.Worker.Concurrency)
	require.Equal(t, 30*time.Second, cfg.Worker.Timeout)
	require.Equal(t, 3, cfg.Worker.MaxAttempts)
	require.Equal(t, "redis", cfg.Queue.Backend)
}

func TestValidateRequiresEndpointAndDSN(t *testing.T) {
	cfg := NewConfig()
	err := cfg.Validate()
	require.ErrorContains(t, err, "RPC endpoint")

	cfg.Node.RPCEndpoint = "http://localhost:26657"
	err = cfg.Validate()
	require.ErrorContains(t, err, "database DSN")

	cfg.Database.DSN = "postgres://localhost/argus"
	cfg.Queue.Redis.Addresses = []string{"localhost:6379"}
	require.NoError(t, cfg.Validate())
}

func TestValidateEndHeightBeforeStartHeight(t *testing.T) {
	cfg := NewConfig()
	cfg.Node.RPCEndpoint = "http://localhost:26657"
	cfg.Database.DSN = "postgres://localhost/argus"
	cfg.Queue.Redis.Addresses = []string{"localhost:6379"}
	cfg.Iterator.StartHeight = 100
	cfg.Iterator.EndHeight = 50

	require.ErrorContains(t, cfg.Validate(), "end_height")
}

func TestValidateQueueBackend(t *testing.T) {
	cfg := NewConfig()
	cfg.Node.RPCEndpoint = "http://localhost:26657"
	cfg.Database.DSN = "postgres://localhost/argus"
	cfg.Queue.Backend = "carrier-pigeon"

	require.ErrorContains(t, cfg.Validate(), "invalid queue backend")

	cfg.Queue.Backend = "kafka"
	require.ErrorContains(t, cfg.Validate(), "no brokers configured")

	cfg.Queue.Kafka.Brokers = []string{"localhost:9092"}
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
node:
  rpc_endpoint: http://localhost:26657
database:
  dsn: postgres://localhost/argus
queue:
  backend: redis
  redis:
    addresses:
      - localhost:6379
iterator:
  start_height: 1000000
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:26657", cfg.Node.RPCEndpoint)
	require.EqualValues(t, 1000000, cfg.Iterator.StartHeight)
	// defaults still applied for untouched sections
	require.Equal(t, 5, cfg.Worker.Concurrency)
}

func TestLoadFromEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
node:
  rpc_endpoint: http://localhost:26657
database:
  dsn: postgres://localhost/argus
queue:
  redis:
    addresses:
      - localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	t.Setenv("ARGUS_LOG_LEVEL", "debug")
	t.Setenv("ARGUS_ITERATOR_BUFFER_SIZE", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 7, cfg.Iterator.BufferSize)
}
