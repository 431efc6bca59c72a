package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noahsaso/argus-sub001/internal/model"
)

// UpsertFeegrantAllowance writes a per-grant snapshot.
func (s *Store) UpsertFeegrantAllowance(ctx context.Context, fg model.FeegrantAllowance) error {
	var parsedAmount *string
	if fg.ParsedAmountOK {
		v := fg.ParsedAmount.String()
		parsedAmount = &v
	}
	var parsedDenom *string
	if fg.ParsedDenom != "" {
		parsedDenom = &fg.ParsedDenom
	}
	var parsedType *string
	if fg.ParsedAllowanceType != "" {
		v := string(fg.ParsedAllowanceType)
		parsedType = &v
	}
	var parsedExpiration *int64
	if fg.ParsedExpirationOK {
		parsedExpiration = &fg.ParsedExpirationUnixMs
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO feegrant_allowances
			(granter, grantee, block_height, active, allowance_data,
			 parsed_amount, parsed_denom, parsed_allowance_type, parsed_expiration_unix_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (granter, grantee, block_height) DO UPDATE SET
			active = EXCLUDED.active,
			allowance_data = EXCLUDED.allowance_data,
			parsed_amount = EXCLUDED.parsed_amount,
			parsed_denom = EXCLUDED.parsed_denom,
			parsed_allowance_type = EXCLUDED.parsed_allowance_type,
			parsed_expiration_unix_ms = EXCLUDED.parsed_expiration_unix_ms
	`, fg.Granter, fg.Grantee, int64(fg.BlockHeight), fg.Active, fg.AllowanceData,
		parsedAmount, parsedDenom, parsedType, parsedExpiration)
	if err != nil {
		return fmt.Errorf("store: upsert feegrant allowance %s->%s@%d: %w", fg.Granter, fg.Grantee, fg.BlockHeight, err)
	}
	return nil
}

// GetFeegrantAllowance returns the latest snapshot for (granter, grantee)
// as of asOfHeight.
func (s *Store) GetFeegrantAllowance(ctx context.Context, granter, grantee string, asOfHeight uint64) (model.FeegrantAllowance, bool, error) {
	var fg model.FeegrantAllowance
	var h int64
	var parsedAmount, parsedDenom, parsedType *string
	var parsedExpiration *int64

	err := s.pool.QueryRow(ctx, `
		SELECT granter, grantee, block_height, active, allowance_data,
		       parsed_amount, parsed_denom, parsed_allowance_type, parsed_expiration_unix_ms
		FROM feegrant_allowances
		WHERE granter = $1 AND grantee = $2 AND block_height <= $3
		ORDER BY block_height DESC
		LIMIT 1
	`, granter, grantee, int64(asOfHeight)).Scan(
		&fg.Granter, &fg.Grantee, &h, &fg.Active, &fg.AllowanceData,
		&parsedAmount, &parsedDenom, &parsedType, &parsedExpiration)
	if err != nil {
		if isNoRows(err) {
			return model.FeegrantAllowance{}, false, nil
		}
		return model.FeegrantAllowance{}, false, fmt.Errorf("store: get feegrant allowance %s->%s: %w", granter, grantee, err)
	}
	fg.BlockHeight = uint64(h)
	if parsedAmount != nil {
		if dec, err := decimal.NewFromString(*parsedAmount); err == nil {
			fg.ParsedAmount = dec
			fg.ParsedAmountOK = true
		}
	}
	if parsedDenom != nil {
		fg.ParsedDenom = *parsedDenom
	}
	if parsedType != nil {
		fg.ParsedAllowanceType = model.FeegrantAllowanceType(*parsedType)
	}
	if parsedExpiration != nil {
		fg.ParsedExpirationUnixMs = *parsedExpiration
		fg.ParsedExpirationOK = true
	}
	return fg, true, nil
}

// GetFeegrantAllowancesGranted returns active allowances granted by
// address as of asOfHeight, latest per grantee.
func (s *Store) GetFeegrantAllowancesGranted(ctx context.Context, address string, asOfHeight uint64) ([]model.FeegrantAllowance, error) {
	return s.getFeegrantAllowancesBy(ctx, "granter", address, asOfHeight)
}

// GetFeegrantAllowancesReceived returns active allowances received by
// address as of asOfHeight, latest per granter.
func (s *Store) GetFeegrantAllowancesReceived(ctx context.Context, address string, asOfHeight uint64) ([]model.FeegrantAllowance, error) {
	return s.getFeegrantAllowancesBy(ctx, "grantee", address, asOfHeight)
}

func (s *Store) getFeegrantAllowancesBy(ctx context.Context, column, address string, asOfHeight uint64) ([]model.FeegrantAllowance, error) {
	other := "grantee"
	if column == "grantee" {
		other = "granter"
	}
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (%[1]s) granter, grantee, block_height, active, allowance_data,
		       parsed_amount, parsed_denom, parsed_allowance_type, parsed_expiration_unix_ms
		FROM feegrant_allowances
		WHERE %[2]s = $1 AND block_height <= $2
		ORDER BY %[1]s, block_height DESC
	`, other, column)

	rows, err := s.pool.Query(ctx, query, address, int64(asOfHeight))
	if err != nil {
		return nil, fmt.Errorf("store: get feegrant allowances by %s: %w", column, err)
	}
	defer rows.Close()

	var out []model.FeegrantAllowance
	for rows.Next() {
		var fg model.FeegrantAllowance
		var h int64
		var parsedAmount, parsedDenom, parsedType *string
		var parsedExpiration *int64
		if err := rows.Scan(&fg.Granter, &fg.Grantee, &h, &fg.Active, &fg.AllowanceData,
			&parsedAmount, &parsedDenom, &parsedType, &parsedExpiration); err != nil {
			return nil, fmt.Errorf("store: scan feegrant allowance: %w", err)
		}
		fg.BlockHeight = uint64(h)
		if !fg.Active {
			continue
		}
		if parsedAmount != nil {
			if dec, err := decimal.NewFromString(*parsedAmount); err == nil {
				fg.ParsedAmount = dec
				fg.ParsedAmountOK = true
			}
		}
		if parsedDenom != nil {
			fg.ParsedDenom = *parsedDenom
		}
		if parsedType != nil {
			fg.ParsedAllowanceType = model.FeegrantAllowanceType(*parsedType)
		}
		if parsedExpiration != nil {
			fg.ParsedExpirationUnixMs = *parsedExpiration
			fg.ParsedExpirationOK = true
		}
		out = append(out, fg)
	}
	return out, rows.Err()
}
