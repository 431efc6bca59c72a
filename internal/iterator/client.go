package iterator

import (
	"context"

	"github.com/noahsaso/argus-sub001/internal/node"
)

// Client defines the node operations the Block Iterator and Tip Tracker
// need. node.Client satisfies this interface; tests supply a fake.
type Client interface {
	Status(ctx context.Context) (earliest, latest uint64, err error)
	FetchBlock(ctx context.Context, height uint64) (*node.FetchedBlock, error)
	SubscribeNewBlock(ctx context.Context, subscriber string) (<-chan int64, func(), error)
}
