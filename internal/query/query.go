// Package query implements the Historical Query Engine (spec §4.4): it
// computes a formula's result as of a specified block height, with
// precedence across overlapping sources, a dependency trace for upstream
// caching, and a range-downsampling primitive for time-series formulas.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/noahsaso/argus-sub001/internal/model"
	"github.com/noahsaso/argus-sub001/internal/store"
)

// Block pins a computation to a specific chain height and time.
type Block struct {
	Height     uint64
	TimeUnixMs int64
}

// Dependency records one logical key a computation read, for precise
// upstream cache invalidation (spec §4.4 "Dependent-key tracking").
type Dependency struct {
	Scope   string
	Address string
	Key     string
	Prefix  bool
}

// Value is a raw (blockHeight, valueJSON) pair, the shape every get-style
// primitive returns.
type Value struct {
	BlockHeight uint64
	ValueJSON   []byte
}

// Engine resolves formula primitives against the Event Store.
type Engine struct {
	store *store.Store
}

// New constructs an Engine backed by st.
func New(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Computation is the per-call environment handed to a formula: every
// primitive it exposes appends to its own dependency set (spec §4.4's
// formula "environment object").
type Computation struct {
	store *store.Store
	block Block
	deps  []Dependency
}

// NewComputation starts a computation as-of block.
func (e *Engine) NewComputation(block Block) *Computation {
	return &Computation{store: e.store, block: block}
}

// Block returns the computation's pinned block.
func (c *Computation) Block() Block { return c.block }

// Dependencies returns every logical key this computation read so far.
func (c *Computation) Dependencies() []Dependency {
	return append([]Dependency(nil), c.deps...)
}

func (c *Computation) track(scope, address, key string, prefix bool) {
	c.deps = append(c.deps, Dependency{Scope: scope, Address: address, Key: key, Prefix: prefix})
}

// Get returns the latest raw state event for (scope, address, key) as of
// the computation's block (spec §4.4 `get`).
func (c *Computation) Get(ctx context.Context, scope, address, key string) (*Value, error) {
	c.track(scope, address, key, false)
	ev, ok, err := c.store.GetWasmStateEvent(ctx, address, key, c.block.Height)
	if err != nil {
		return nil, fmt.Errorf("query: get %s/%s/%s: %w", scope, address, key, err)
	}
	if !ok || ev.Delete {
		return nil, nil
	}
	return &Value{BlockHeight: ev.BlockHeight, ValueJSON: ev.ValueJSON}, nil
}

// GetMap returns every latest raw event whose key begins with prefix,
// keyed by key tail (spec §4.4 `getMap`).
func (c *Computation) GetMap(ctx context.Context, scope, address, prefix string) (map[string]Value, error) {
	c.track(scope, address, prefix, true)
	evs, err := c.store.GetWasmStateEventsByPrefix(ctx, address, prefix, c.block.Height)
	if err != nil {
		return nil, fmt.Errorf("query: getMap %s/%s/%s*: %w", scope, address, prefix, err)
	}
	out := make(map[string]Value, len(evs))
	for _, ev := range evs {
		if ev.Delete {
			continue
		}
		tail := strings.TrimPrefix(ev.Key, prefix)
		out[tail] = Value{BlockHeight: ev.BlockHeight, ValueJSON: ev.ValueJSON}
	}
	return out, nil
}

// GetTransformationMatch returns the latest transformation named name
// under address (spec §4.4 `getTransformationMatch`).
func (c *Computation) GetTransformationMatch(ctx context.Context, scope, address, name string) (*Value, error) {
	c.track(scope, address, name, false)
	t, ok, err := c.store.GetWasmStateEventTransformation(ctx, address, name, c.block.Height)
	if err != nil {
		return nil, fmt.Errorf("query: getTransformationMatch %s/%s/%s: %w", scope, address, name, err)
	}
	if !ok {
		return nil, nil
	}
	return &Value{BlockHeight: t.BlockHeight, ValueJSON: t.Value}, nil
}

// GetTransformationMatches returns every transformation matching a `*`
// pattern under address, latest per name (spec §4.4
// `getTransformationMatches`). limit <= 0 means unbounded.
func (c *Computation) GetTransformationMatches(ctx context.Context, scope, address, pattern string, limit int) ([]model.WasmStateEventTransformation, error) {
	c.track(scope, address, pattern, true)
	likePattern := strings.ReplaceAll(pattern, "*", "%")
	ts, err := c.store.GetWasmStateEventTransformationsByPattern(ctx, address, likePattern, c.block.Height)
	if err != nil {
		return nil, fmt.Errorf("query: getTransformationMatches %s/%s/%s: %w", scope, address, pattern, err)
	}
	if limit > 0 && len(ts) > limit {
		ts = ts[:limit]
	}
	return ts, nil
}

// GetTransformationMap returns a map-shaped read against transformations
// whose name begins with prefix (spec §4.4 `getTransformationMap`).
func (c *Computation) GetTransformationMap(ctx context.Context, scope, address, prefix string) (map[string]Value, error) {
	ts, err := c.GetTransformationMatches(ctx, scope, address, prefix+"*", 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Value, len(ts))
	for _, t := range ts {
		tail := strings.TrimPrefix(t.Name, prefix)
		out[tail] = Value{BlockHeight: t.BlockHeight, ValueJSON: t.Value}
	}
	return out, nil
}

// GetExtraction returns the latest extraction named name under address
// (spec §4.4 `getExtraction`).
func (c *Computation) GetExtraction(ctx context.Context, scope, address, name string) (*Value, error) {
	c.track(scope, address, name, false)
	ex, ok, err := c.store.GetExtraction(ctx, address, name, c.block.Height)
	if err != nil {
		return nil, fmt.Errorf("query: getExtraction %s/%s/%s: %w", scope, address, name, err)
	}
	if !ok {
		return nil, nil
	}
	return &Value{BlockHeight: ex.BlockHeight, ValueJSON: ex.Data}, nil
}

// GetExtractions returns every extraction matching a `*` pattern under
// address, latest per name (spec §4.4 `getExtractions`).
func (c *Computation) GetExtractions(ctx context.Context, scope, address, pattern string) ([]model.Extraction, error) {
	c.track(scope, address, pattern, true)
	likePattern := strings.ReplaceAll(pattern, "*", "%")
	return c.store.GetExtractionsByPattern(ctx, address, likePattern, c.block.Height)
}

// GetExtractionMap returns a map-shaped read against extractions whose
// name begins with prefix (spec §4.4 `getExtractionMap`).
func (c *Computation) GetExtractionMap(ctx context.Context, scope, address, prefix string) (map[string]Value, error) {
	exs, err := c.GetExtractions(ctx, scope, address, prefix+"*")
	if err != nil {
		return nil, err
	}
	out := make(map[string]Value, len(exs))
	for _, ex := range exs {
		tail := strings.TrimPrefix(ex.Name, prefix)
		out[tail] = Value{BlockHeight: ex.BlockHeight, ValueJSON: ex.Data}
	}
	return out, nil
}

// GetContract returns a contract's instantiation facts (spec §4.4
// `getContract`).
func (c *Computation) GetContract(ctx context.Context, address string) (*model.Contract, error) {
	c.track("contract", address, "__instantiation__", false)
	ct, ok, err := c.store.GetContract(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("query: getContract %s: %w", address, err)
	}
	if !ok {
		return nil, nil
	}
	return &ct, nil
}

// GetBlock returns the stored block nearest below height (spec §4.4
// `getBlock`).
func (c *Computation) GetBlock(ctx context.Context, height uint64) (*model.Block, error) {
	b, ok, err := c.store.GetBlock(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("query: getBlock %d: %w", height, err)
	}
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// GetBlockAtOrBeforeTime returns the stored block nearest before timeUnixMs
// (spec §4.4A generic/blockHeightAtTime).
func (c *Computation) GetBlockAtOrBeforeTime(ctx context.Context, timeUnixMs int64) (*model.Block, error) {
	b, ok, err := c.store.GetBlockAtOrBeforeTime(ctx, timeUnixMs)
	if err != nil {
		return nil, fmt.Errorf("query: getBlockAtOrBeforeTime %d: %w", timeUnixMs, err)
	}
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// GetDateKeyModified returns the time of the latest write to a raw key as
// of the computation's block (spec §4.4 `getDateKeyModified`).
func (c *Computation) GetDateKeyModified(ctx context.Context, address, key string) (int64, bool, error) {
	c.track("contract", address, key, false)
	return c.store.WasmKeyDateModified(ctx, address, key, c.block.Height)
}

// GetDateKeyFirstSet returns the time of the earliest non-delete write to
// a raw key (spec §4.4 `getDateKeyFirstSet`).
func (c *Computation) GetDateKeyFirstSet(ctx context.Context, address, key string) (int64, bool, error) {
	c.track("contract", address, key, false)
	return c.store.WasmKeyDateFirstSet(ctx, address, key)
}

// GetDateKeyFirstSetWithValueMatch returns the time of the earliest write
// to key whose value contains valueContainsJSON (spec §4.4
// `getDateKeyFirstSetWithValueMatch`).
func (c *Computation) GetDateKeyFirstSetWithValueMatch(ctx context.Context, address, key string, valueContainsJSON []byte) (int64, bool, error) {
	c.track("contract", address, key, false)
	return c.store.WasmKeyDateFirstSetWithValueMatch(ctx, address, key, valueContainsJSON)
}

// GetDateFirstTransformed returns the time of the earliest transformation
// named name (spec §4.4 `getDateFirstTransformed`).
func (c *Computation) GetDateFirstTransformed(ctx context.Context, address, name string) (int64, bool, error) {
	c.track("contract", address, name, false)
	return c.store.TransformationDateFirstSet(ctx, address, name)
}

// GetDateFirstExtracted returns the time of the earliest extraction named
// name (spec §4.4 `getDateFirstExtracted`).
func (c *Computation) GetDateFirstExtracted(ctx context.Context, address, name string) (int64, bool, error) {
	c.track("account", address, name, false)
	return c.store.ExtractionDateFirstSet(ctx, address, name)
}

// GetFeegrantAllowance returns the latest snapshot for (granter, grantee)
// as of the computation's block (spec §4.4 `getFeegrantAllowance`).
func (c *Computation) GetFeegrantAllowance(ctx context.Context, granter, grantee string) (*model.FeegrantAllowance, error) {
	c.track("account", granter, "feegrant/"+grantee, false)
	fg, ok, err := c.store.GetFeegrantAllowance(ctx, granter, grantee, c.block.Height)
	if err != nil {
		return nil, fmt.Errorf("query: getFeegrantAllowance %s->%s: %w", granter, grantee, err)
	}
	if !ok || !fg.Active {
		return nil, nil
	}
	return &fg, nil
}

// AllowanceDirection selects which side of a feegrant pair GetFeegrantAllowances
// filters by (spec §4.4 `getFeegrantAllowances(address, type)`).
type AllowanceDirection string

const (
	AllowanceGranted  AllowanceDirection = "granted"
	AllowanceReceived AllowanceDirection = "received"
)

// GetFeegrantAllowances returns active allowances for address in the given
// direction (spec §4.4 `getFeegrantAllowances`).
func (c *Computation) GetFeegrantAllowances(ctx context.Context, address string, dir AllowanceDirection) ([]model.FeegrantAllowance, error) {
	c.track("account", address, "feegrant/"+string(dir), true)
	if dir == AllowanceReceived {
		return c.store.GetFeegrantAllowancesReceived(ctx, address, c.block.Height)
	}
	return c.store.GetFeegrantAllowancesGranted(ctx, address, c.block.Height)
}

// HasFeegrantAllowance reports whether granter has an active allowance for
// grantee as of the computation's block (spec §4.4 `hasFeegrantAllowance`).
func (c *Computation) HasFeegrantAllowance(ctx context.Context, granter, grantee string) (bool, error) {
	fg, err := c.GetFeegrantAllowance(ctx, granter, grantee)
	if err != nil {
		return false, err
	}
	return fg != nil, nil
}

// GetBalances returns the latest per-denom balance for address (spec §4.4
// `getBalances`).
func (c *Computation) GetBalances(ctx context.Context, address string) ([]model.BankDenomBalance, error) {
	c.track("account", address, "balances", true)
	return c.store.GetBalances(ctx, address)
}

// ContractMatchesCodeIdKeys reports whether address's code id is among the
// ids registered under any of keys in codeIDsByKey (spec §4.4
// `contractMatchesCodeIdKeys`; the `WasmCode` service's registry is
// supplied by the caller, typically loaded from configuration).
func (c *Computation) ContractMatchesCodeIdKeys(ctx context.Context, address string, codeIDsByKey map[string][]uint64, keys ...string) (bool, error) {
	ct, err := c.GetContract(ctx, address)
	if err != nil {
		return false, err
	}
	if ct == nil {
		return false, nil
	}
	for _, key := range keys {
		for _, id := range codeIDsByKey[key] {
			if id == ct.CodeID {
				return true, nil
			}
		}
	}
	return false, nil
}

// Query is the escape hatch for formulas needing set-oriented reads (spec
// §4.4 `query`). Callers MUST constrain sql by `block_height <= $N` and
// pass the computation's block height as the final bind parameter
// themselves; Query does not rewrite the statement.
func (c *Computation) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := c.store.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: escape hatch: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("query: escape hatch scan: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
