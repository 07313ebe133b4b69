package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/pricing"
	"github.com/shopspring/decimal"
)

func ListPriceLevels(ctx context.Context, db *sql.DB) ([]models.PriceLevel, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, discount_pct, description, sort_order
		 FROM price_levels
		 ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list price levels: %w", err)
	}
	defer rows.Close()

	levels := []models.PriceLevel{}
	for rows.Next() {
		var level models.PriceLevel
		if err := rows.Scan(&level.ID, &level.Name, &level.DiscountPct, &level.Description, &level.SortOrder); err != nil {
			return nil, fmt.Errorf("scan price level: %w", err)
		}
		levels = append(levels, level)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return levels, nil
}

func GetPriceLevel(ctx context.Context, db *sql.DB, id string) (*models.PriceLevel, error) {
	level := &models.PriceLevel{}

	err := db.QueryRowContext(ctx,
		`SELECT id, name, discount_pct, description, sort_order
		 FROM price_levels
		 WHERE id = $1`,
		id).Scan(&level.ID, &level.Name, &level.DiscountPct, &level.Description, &level.SortOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPriceLevelNotFound
		}
		return nil, fmt.Errorf("get price level: %w", err)
	}

	return level, nil
}

// UpdatePriceLevel changes the discount future orders of the level's clients
// are priced with.
func UpdatePriceLevel(ctx context.Context, db *sql.DB, id, name string, discountPct decimal.Decimal, description string) (*models.PriceLevel, error) {
	if err := pricing.ValidateDiscount(discountPct); err != nil {
		return nil, err
	}

	level := &models.PriceLevel{}

	err := db.QueryRowContext(ctx,
		`UPDATE price_levels
		 SET name = $1, discount_pct = $2, description = $3
		 WHERE id = $4
		 RETURNING id, name, discount_pct, description, sort_order`,
		name, discountPct, description, id).Scan(&level.ID, &level.Name, &level.DiscountPct, &level.Description, &level.SortOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPriceLevelNotFound
		}
		return nil, fmt.Errorf("update price level: %w", err)
	}

	return level, nil
}
