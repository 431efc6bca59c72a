package query

import "context"

// Resolve implements the canonical precedence pattern (spec §4.4
// "Precedence across sources"): try extraction first, then transformation,
// then the raw state event, choosing whichever has the most recent
// blockHeight <= the computation's block. A tie favors extraction.
func (c *Computation) Resolve(ctx context.Context, scope, address, name string) (*Value, error) {
	extraction, err := c.GetExtraction(ctx, scope, address, name)
	if err != nil {
		return nil, err
	}
	transformation, err := c.GetTransformationMatch(ctx, scope, address, name)
	if err != nil {
		return nil, err
	}
	raw, err := c.Get(ctx, scope, address, name)
	if err != nil {
		return nil, err
	}

	best := raw
	if transformation != nil && (best == nil || transformation.BlockHeight >= best.BlockHeight) {
		best = transformation
	}
	if extraction != nil && (best == nil || extraction.BlockHeight >= best.BlockHeight) {
		best = extraction
	}
	return best, nil
}
