package formula

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/noahsaso/argus-sub001/internal/query"
)

// SeedCatalog returns the representative formula set a complete deployment
// wires end-to-end (SPEC_FULL.md §4.4A; the original ships hundreds of
// these, scoped out here).
func SeedCatalog() []Formula {
	return []Formula{
		accountBalanceFormula,
		contractInfoFormula,
		contractFeegrantAllowanceFormula,
		genericBlockHeightAtTimeFormula,
	}
}

var accountBalanceFormula = Formula{
	Name:  "balance",
	Scope: ScopeAccount,
	Compute: func(ctx context.Context, c *query.Computation, address string, _ map[string]string) (any, error) {
		return c.GetBalances(ctx, address)
	},
}

// contractInfoFormula demonstrates the precedence fallback from §4.4: the
// dedicated contracts table first, then, through Computation.Resolve,
// whichever of extraction, transformation or raw state named "info" has
// the most recent block height, a tie favoring extraction (I7/scenario 6).
var contractInfoFormula = Formula{
	Name:  "info",
	Scope: ScopeContract,
	Compute: func(ctx context.Context, c *query.Computation, address string, _ map[string]string) (any, error) {
		if ct, err := c.GetContract(ctx, address); err != nil {
			return nil, err
		} else if ct != nil {
			return ct, nil
		}
		return c.Resolve(ctx, string(ScopeContract), address, "info")
	},
}

var contractFeegrantAllowanceFormula = Formula{
	Name:  "feegrantAllowance",
	Scope: ScopeContract,
	Compute: func(ctx context.Context, c *query.Computation, address string, args map[string]string) (any, error) {
		if grantee := args["grantee"]; grantee != "" {
			return c.GetFeegrantAllowance(ctx, address, grantee)
		}
		dir := query.AllowanceGranted
		if args["direction"] == string(query.AllowanceReceived) {
			dir = query.AllowanceReceived
		}
		return c.GetFeegrantAllowances(ctx, address, dir)
	},
}

// genericBlockHeightAtTimeFormula is dynamic: its output depends on the
// requested `time` argument, not just the pinned block height, so it must
// never be cached by output alone (spec §4.4 "Dynamic formulas").
var genericBlockHeightAtTimeFormula = Formula{
	Name:    "blockHeightAtTime",
	Scope:   ScopeGeneric,
	Dynamic: true,
	Compute: func(ctx context.Context, c *query.Computation, _ string, args map[string]string) (any, error) {
		timeStr := args["time"]
		if timeStr == "" {
			return nil, fmt.Errorf("formula: blockHeightAtTime requires a \"time\" arg")
		}
		timeUnixMs, err := strconv.ParseInt(timeStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("formula: invalid \"time\" arg %q: %w", timeStr, err)
		}
		b, err := c.GetBlockAtOrBeforeTime(ctx, timeUnixMs)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, nil
		}
		return json.RawMessage(fmt.Sprintf(`{"height":%d,"timeUnixMs":%d}`, b.Height, b.TimeUnixMs)), nil
	},
}
