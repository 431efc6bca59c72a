// Package extractregistry implements the Extract Worker's static extractor
// registry (spec §4.3 step 1: "Resolve the named extractor from a static
// registry built at worker boot") along with the concrete extractors
// themselves and the per-job environment they run with.
package extractregistry

import (
	"context"
	"encoding/json"

	"github.com/noahsaso/argus-sub001/internal/store"
)

// Block is the block triple an extractor's environment carries (spec
// §4.3 step 2).
type Block struct {
	Height     uint64
	TimeUnixMs int64
}

// Env is a job's per-invocation environment: config, an optional
// wasm-client handle, the background-processing flag, the originating tx
// hash, and the block triple (spec §4.3 step 2).
type Env struct {
	Config     map[string]string
	WasmClient WasmClient
	Background bool
	TxHash     string
	Block      Block
}

// WasmClient is the subset of contract-state query functionality an
// extractor may need beyond what the trace payload already carries.
// Extractors that only need the payload leave this nil.
type WasmClient interface {
	QueryContractState(ctx context.Context, contractAddress, key string) ([]byte, error)
}

// PersistedModel summarizes one row an extractor wrote, letting the worker
// determine the highest touched block and fan out to sinks without
// re-reading the store (spec §4.3 step 5).
type PersistedModel struct {
	Table       string
	Address     string
	Key         string
	BlockHeight uint64
	BlockTimeUnixMs int64
}

// Extractor persists the typed events derived from a single job's raw
// trace data. Persistence happens inside Extract; the worker never writes
// event rows itself (spec §4.3 step 5: "models returned by the extractor
// are already persisted by the extractor itself").
type Extractor interface {
	Extract(ctx context.Context, data json.RawMessage) ([]PersistedModel, error)
}

// Deps are the extractor-independent dependencies every factory closes
// over.
type Deps struct {
	Store *store.Store
}

// Factory instantiates an Extractor for one job (spec §4.3 step 2).
type Factory func(deps Deps, env Env) (Extractor, error)

// Registry is the static name → Factory lookup built at worker boot.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, overwriting any existing entry.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Resolve looks up a factory by name. The worker treats a miss as
// ErrExtractorNotFound (spec §4.3 step 1, §7 ExtractorNotFound).
func (r *Registry) Resolve(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Default builds the registry seeded with every extractor this deployment
// ships: wasm state writes, bank balance
// snapshots, feegrant allowances, and contract instantiation facts.
func Default() *Registry {
	r := NewRegistry()
	r.Register("wasm/stateEvent", newWasmStateEventExtractor)
	r.Register("wasm/instantiate", newContractInstantiateExtractor)
	r.Register("bank/balance", newBankBalanceExtractor)
	r.Register("feegrant/allowance", newFeegrantAllowanceExtractor)
	return r
}
