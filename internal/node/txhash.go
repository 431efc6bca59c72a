package node

import (
	"encoding/hex"

	tmtypes "github.com/cometbft/cometbft/types"
)

// TxHash computes the canonical hex transaction hash CometBFT uses to index
// and reference a transaction, matching what `tx_search`/block explorers
// report.
func TxHash(rawTx []byte) string {
	return hex.EncodeToString(tmtypes.Tx(rawTx).Hash())
}
