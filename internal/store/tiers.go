package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/pricing"
)

func ListVolumeTiers(ctx context.Context, db *sql.DB) ([]models.VolumeTier, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, min_amount, max_amount, extra_discount_pct, suggested_level
		 FROM volume_tiers
		 ORDER BY min_amount`)
	if err != nil {
		return nil, fmt.Errorf("list volume tiers: %w", err)
	}
	defer rows.Close()

	tiers := []models.VolumeTier{}
	for rows.Next() {
		var tier models.VolumeTier
		if err := rows.Scan(&tier.ID, &tier.MinAmount, &tier.MaxAmount, &tier.ExtraDiscountPct, &tier.SuggestedLevel); err != nil {
			return nil, fmt.Errorf("scan volume tier: %w", err)
		}
		tiers = append(tiers, tier)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tiers, nil
}

// ReplaceVolumeTiers swaps the whole tier table in one transaction.
func ReplaceVolumeTiers(ctx context.Context, db *sql.DB, tiers []models.VolumeTier) ([]models.VolumeTier, error) {
	if err := pricing.ValidateTiers(tiers); err != nil {
		return nil, err
	}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM volume_tiers`); err != nil {
			return fmt.Errorf("clear volume tiers: %w", err)
		}

		for _, tier := range tiers {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO volume_tiers (min_amount, max_amount, extra_discount_pct, suggested_level)
				 VALUES ($1, $2, $3, $4)`,
				tier.MinAmount, tier.MaxAmount, tier.ExtraDiscountPct, tier.SuggestedLevel)
			if err != nil {
				if database.IsForeignKeyViolation(err) {
					return database.ErrPriceLevelNotFound
				}
				return fmt.Errorf("insert volume tier: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ListVolumeTiers(ctx, db)
}
