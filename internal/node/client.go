// Package node wraps the CometBFT RPC and WebSocket client with the
// additional functionality the Block Iterator and Tip Tracker need: typed
// status/block/block-results reads and a NewBlock event subscription.
package node

import (
	"context"
	"fmt"
	"time"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	tmtypes "github.com/cometbft/cometbft/types"
	"go.uber.org/zap"
)

// Client wraps a CometBFT RPC client with additional functionality.
type Client struct {
	rpc      *rpchttp.HTTP
	endpoint string
	logger   *zap.Logger
}

// Config holds client configuration.
type Config struct {
	RPCEndpoint string
	WSEndpoint  string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewClient creates a new CometBFT RPC client and verifies connectivity.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("rpc endpoint cannot be empty")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	wsEndpoint := cfg.WSEndpoint
	if wsEndpoint == "" {
		wsEndpoint = "/websocket"
	}

	rpcClient, err := rpchttp.New(cfg.RPCEndpoint, wsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to construct RPC client: %w", err)
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	client := &Client{
		rpc:      rpcClient,
		endpoint: cfg.RPCEndpoint,
		logger:   logger,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping RPC endpoint: %w", err)
	}

	logger.Info("connected to node RPC", zap.String("endpoint", cfg.RPCEndpoint))

	return client, nil
}

// Ping verifies the connection to the RPC endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.rpc.Status(ctx)
	return err
}

// Close stops the underlying websocket client, if it was started.
func (c *Client) Close() error {
	if c.rpc.IsRunning() {
		return c.rpc.Stop()
	}
	return nil
}

// Status reports the node's earliest-retained and latest-committed heights.
func (c *Client) Status(ctx context.Context) (earliest, latest uint64, err error) {
	status, err := c.rpc.Status(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get node status: %w", err)
	}
	return uint64(status.SyncInfo.EarliestBlockHeight), uint64(status.SyncInfo.LatestBlockHeight), nil
}

// Block fetches a block by height.
func (c *Client) Block(ctx context.Context, height uint64) (*coretypes.ResultBlock, error) {
	h := int64(height)
	block, err := c.rpc.Block(ctx, &h)
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", height, err)
	}
	return block, nil
}

// BlockResults fetches the per-transaction and block-level events for a
// height. Unlike Block, this call is not available on all node
// configurations (pruned nodes may reject old heights).
func (c *Client) BlockResults(ctx context.Context, height uint64) (*coretypes.ResultBlockResults, error) {
	h := int64(height)
	results, err := c.rpc.BlockResults(ctx, &h)
	if err != nil {
		return nil, fmt.Errorf("failed to get block results %d: %w", height, err)
	}
	return results, nil
}

// SubscribeNewBlock subscribes to the node's NewBlock event stream. The
// returned channel delivers one height per new block; callers must consume
// it promptly or miss events. Unsubscribe is cancelled by ctx or by the
// returned func.
func (c *Client) SubscribeNewBlock(ctx context.Context, subscriber string) (<-chan int64, func(), error) {
	if !c.rpc.IsRunning() {
		if err := c.rpc.Start(); err != nil {
			return nil, nil, fmt.Errorf("failed to start websocket client: %w", err)
		}
	}

	events, err := c.rpc.Subscribe(ctx, subscriber, "tm.event='NewBlock'", 32)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to new blocks: %w", err)
	}

	heights := make(chan int64, 32)
	go func() {
		defer close(heights)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				newBlock, ok := evt.Data.(tmtypes.EventDataNewBlock)
				if !ok {
					c.logger.Warn("unexpected new block event payload type")
					continue
				}
				select {
				case heights <- newBlock.Block.Header.Height:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	unsub := func() {
		_ = c.rpc.Unsubscribe(context.Background(), subscriber, "tm.event='NewBlock'")
	}

	return heights, unsub, nil
}
