package extractregistry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// feegrantAllowancePayload is the raw trace-handler payload for a single
// fee-allowance grant/revoke event. The amount/denom/type/expiration
// fields are best-effort parsed upstream; any may be empty (spec §9).
type feegrantAllowancePayload struct {
	Granter              string          `json:"granter"`
	Grantee              string          `json:"grantee"`
	Active               bool            `json:"active"`
	AllowanceData        json.RawMessage `json:"allowance_data"`
	ParsedAmount         string          `json:"parsed_amount,omitempty"`
	ParsedDenom          string          `json:"parsed_denom,omitempty"`
	ParsedAllowanceType  string          `json:"parsed_allowance_type,omitempty"`
	ParsedExpirationUnixMs int64         `json:"parsed_expiration_unix_ms,omitempty"`
}

type feegrantAllowanceExtractor struct {
	deps Deps
	env  Env
}

func newFeegrantAllowanceExtractor(deps Deps, env Env) (Extractor, error) {
	return feegrantAllowanceExtractor{deps: deps, env: env}, nil
}

func (e feegrantAllowanceExtractor) Extract(ctx context.Context, data json.RawMessage) ([]PersistedModel, error) {
	var payload feegrantAllowancePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("feegrant/allowance: decode payload: %w", err)
	}
	if payload.Granter == "" || payload.Grantee == "" {
		return nil, fmt.Errorf("feegrant/allowance: granter and grantee are required")
	}

	fg := model.FeegrantAllowance{
		Granter:                payload.Granter,
		Grantee:                payload.Grantee,
		BlockHeight:            e.env.Block.Height,
		Active:                 payload.Active,
		AllowanceData:          payload.AllowanceData,
		ParsedDenom:            payload.ParsedDenom,
		ParsedAllowanceType:    model.FeegrantAllowanceType(payload.ParsedAllowanceType),
		ParsedExpirationUnixMs: payload.ParsedExpirationUnixMs,
		ParsedExpirationOK:     payload.ParsedExpirationUnixMs != 0,
	}
	if payload.ParsedAmount != "" {
		amount, err := decimal.NewFromString(payload.ParsedAmount)
		if err != nil {
			return nil, fmt.Errorf("feegrant/allowance: invalid parsed_amount %q: %w", payload.ParsedAmount, err)
		}
		fg.ParsedAmount = amount
		fg.ParsedAmountOK = true
	}

	if err := e.deps.Store.UpsertFeegrantAllowance(ctx, fg); err != nil {
		return nil, err
	}

	return []PersistedModel{{
		Table:           "feegrant_allowances",
		Address:         payload.Granter,
		Key:             payload.Grantee,
		BlockHeight:     e.env.Block.Height,
		BlockTimeUnixMs: e.env.Block.TimeUnixMs,
	}}, nil
}
