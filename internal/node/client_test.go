package node

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name: "empty endpoint",
			config: &Config{
				RPCEndpoint: "",
			},
			wantErr: true,
		},
		{
			name: "invalid endpoint",
			config: &Config{
				RPCEndpoint: "invalid://endpoint",
				Timeout:     5 * time.Second,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if client != nil {
				_ = client.Close()
			}
		})
	}
}

func TestTxHash(t *testing.T) {
	a := TxHash([]byte("tx-a"))
	b := TxHash([]byte("tx-b"))
	if a == b {
		t.Errorf("TxHash() collided for distinct inputs")
	}
	if a != TxHash([]byte("tx-a")) {
		t.Errorf("TxHash() not deterministic")
	}
}

// TestClientIntegration requires a running CometBFT node at
// localhost:26657. Skipped only under go test -short.
func TestClientIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	endpoint := "http://localhost:26657"
	logger, _ := zap.NewDevelopment()

	cfg := &Config{
		RPCEndpoint: endpoint,
		Timeout:     30 * time.Second,
		Logger:      logger,
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	t.Run("Status", func(t *testing.T) {
		_, latest, err := client.Status(ctx)
		if err != nil {
			t.Errorf("Status() error = %v", err)
			return
		}
		if latest == 0 {
			t.Errorf("Status() returned latest height 0")
		}
	})

	t.Run("Block", func(t *testing.T) {
		_, latest, err := client.Status(ctx)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		block, err := client.Block(ctx, latest)
		if err != nil {
			t.Errorf("Block() error = %v", err)
			return
		}
		if block.Block.Header.Height != int64(latest) {
			t.Errorf("Block() returned height %d, want %d", block.Block.Header.Height, latest)
		}
	})
}
