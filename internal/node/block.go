package node

import (
	"context"
	"fmt"
	"sync"

	abci "github.com/cometbft/cometbft/abci/types"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"

	"github.com/noahsaso/argus-sub001/internal/constants"
	"github.com/noahsaso/argus-sub001/internal/model"
)

// FetchedBlock bundles a block's header, decoded transactions, and
// block-level (begin/end blocker) events, translated into the indexer's
// own model types so callers never depend on CometBFT wire types directly.
type FetchedBlock struct {
	Height      uint64
	TimeUnixMs  int64
	Txs         []model.DecodedTx
	TxErrors    map[int]error
	BlockEvents []model.TxEvent
}

// FetchBlock retrieves a block and its execution results and merges them
// into a single FetchedBlock. BlockResults is queried separately from Block
// because pruned nodes may serve one without the other; both calls use the
// same height so the two halves always agree.
func (c *Client) FetchBlock(ctx context.Context, height uint64) (*FetchedBlock, error) {
	block, err := c.Block(ctx, height)
	if err != nil {
		return nil, err
	}

	results, err := c.BlockResults(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("failed to get block results for %d: %w", height, err)
	}

	fetched := &FetchedBlock{
		Height:      uint64(block.Block.Header.Height),
		TimeUnixMs:  block.Block.Header.Time.UnixMilli(),
		BlockEvents: mergeEvents(results.BeginBlockEvents, results.EndBlockEvents),
	}

	rawTxs := block.Block.Data.Txs
	fetched.Txs = make([]model.DecodedTx, len(rawTxs))

	var txErrMu sync.Mutex
	txErrors := make(map[int]error)

	// Decoding is fanned out across a bounded pool instead of one tx at a
	// time: each tx's hash and event attributes are independent, so a
	// single malformed tx must not block its siblings.
	sem := make(chan struct{}, constants.DefaultTxDecodeBatchSize)
	var wg sync.WaitGroup
	for i, rawTx := range rawTxs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rawTx []byte) {
			defer wg.Done()
			defer func() { <-sem }()

			tx, decodeErr := decodeTx(i, rawTx, results)
			if decodeErr != nil {
				txErrMu.Lock()
				txErrors[i] = decodeErr
				txErrMu.Unlock()
			}
			fetched.Txs[i] = tx
		}(i, rawTx)
	}
	wg.Wait()

	if len(txErrors) > 0 {
		fetched.TxErrors = txErrors
	}

	return fetched, nil
}

func decodeTx(index int, rawTx []byte, results *coretypes.ResultBlockResults) (model.DecodedTx, error) {
	tx := model.DecodedTx{Index: index}

	if len(rawTx) == 0 {
		return tx, fmt.Errorf("tx %d: empty transaction bytes", index)
	}
	tx.Hash = TxHash(rawTx)

	if index < len(results.TxsResults) {
		tx.Events = convertEvents(results.TxsResults[index].Events)
	}
	return tx, nil
}

func mergeEvents(groups ...[]abci.Event) []model.TxEvent {
	var merged []model.TxEvent
	for _, g := range groups {
		merged = append(merged, convertEvents(g)...)
	}
	return merged
}

func convertEvents(events []abci.Event) []model.TxEvent {
	converted := make([]model.TxEvent, 0, len(events))
	for _, e := range events {
		attrs := make(map[string]string, len(e.Attributes))
		for _, a := range e.Attributes {
			attrs[a.Key] = a.Value
		}
		converted = append(converted, model.TxEvent{Type: e.Type, Attributes: attrs})
	}
	return converted
}
