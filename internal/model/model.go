// Package model defines the append-only data model of the indexer's Event
// Store (spec §3): Block, the State singleton, the five event tables, and
// the Contract and BankDenomBalance projections.
package model

import "github.com/shopspring/decimal"

// Block is a finalized chain block, unique on Height. Created on first
// sight from any source; duplicate creations are no-ops. Never mutated
// once written.
type Block struct {
	Height      uint64
	TimeUnixMs  int64
}

// State is the per-process singleton high-water-mark tracker. Every write
// uses GREATEST(current, new) semantics (spec §3 invariant 4, §5).
type State struct {
	ChainID                          string
	LatestBlockHeight                uint64
	LatestBlockTimeUnixMs            int64
	LastBankBlockHeightExported      uint64
	LastFeegrantBlockHeightExported  uint64
	LastWasmBlockHeightExported      uint64
}

// WasmStateEvent is a raw contract-state write or delete.
type WasmStateEvent struct {
	ContractAddress string
	Key             string
	ValueJSON       []byte // nil when Delete is true
	BlockHeight     uint64
	BlockTimeUnixMs int64
	Delete          bool
}

// WasmStateEventTransformation is a derived, named projection of one or
// more raw WasmStateEvents, produced by an extractor.
type WasmStateEventTransformation struct {
	ContractAddress string
	Name            string
	Value           []byte
	BlockHeight     uint64
	BlockTimeUnixMs int64
}

// Extraction is a TX-derived record emitted directly by an extractor.
type Extraction struct {
	Address         string
	Name            string
	Data            []byte
	BlockHeight     uint64
	BlockTimeUnixMs int64
	TxHash          string
}

// BankStateEvent is a per-denom balance snapshot, retained only for
// addresses whose contract code matches a configurable allow-list
// (spec §3).
type BankStateEvent struct {
	Address         string
	Denom           string
	Balance         decimal.Decimal
	BlockHeight     uint64
	BlockTimeUnixMs int64
}

// BankDenomBalance is a per-(address,denom) projection whose stored
// BlockHeight is never allowed to go backward (spec §3 invariant 6, §8 I8).
type BankDenomBalance struct {
	Address     string
	Denom       string
	Balance     decimal.Decimal
	BlockHeight uint64
}

// FeegrantAllowanceType enumerates the best-effort-parsed allowance kinds.
// Parsing is pattern-based (spec §9 open question); unparseable fields are
// left as zero values with their ParsedAmountOK/ParsedExpirationOK flag false.
type FeegrantAllowanceType string

// FeegrantAllowance is a per-grant snapshot.
type FeegrantAllowance struct {
	Granter     string
	Grantee     string
	BlockHeight uint64
	Active      bool
	AllowanceData []byte

	// Parsed fields are best-effort; any may be unset if parsing failed.
	ParsedAmount           decimal.Decimal
	ParsedAmountOK         bool
	ParsedDenom            string
	ParsedAllowanceType    FeegrantAllowanceType
	ParsedExpirationUnixMs int64
	ParsedExpirationOK     bool
}

// Contract holds wasm instantiation facts.
type Contract struct {
	Address                   string
	CodeID                    uint64
	Admin                     string
	Creator                   string
	Label                     string
	InstantiatedAtBlockHeight uint64
	InstantiatedAtTxHash      string
}

// DecodedTx is a single decoded transaction within a block, as delivered to
// the Block Iterator's onTx callback.
type DecodedTx struct {
	Index  int
	Hash   string
	Events []TxEvent
}

// TxEvent is a single event emitted by a transaction (e.g. wasm, bank,
// feegrant module events), the raw material the Batched Trace Exporter and
// extractors consume.
type TxEvent struct {
	Type       string
	Attributes map[string]string
}
