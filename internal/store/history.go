package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
)

func insertHistory(ctx context.Context, tx *sql.Tx, orderID int64, action string, changedBy *string, changes any) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("encode history changes: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_history (order_id, action, changed_by, changes, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		orderID, action, changedBy, payload)
	if err != nil {
		return fmt.Errorf("insert order history: %w", err)
	}

	return nil
}

// GetOrderHistory returns the audit trail of an order, newest first.
func GetOrderHistory(ctx context.Context, db *sql.DB, orderID int64) ([]models.OrderHistory, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)",
		orderID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return nil, database.ErrOrderNotFound
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, action, changed_by, changes, created_at
		 FROM order_history
		 WHERE order_id = $1
		 ORDER BY created_at DESC, id DESC`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order history: %w", err)
	}
	defer rows.Close()

	history := []models.OrderHistory{}
	for rows.Next() {
		var entry models.OrderHistory
		var changes []byte
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Action, &entry.ChangedBy, &changes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order history: %w", err)
		}
		entry.Changes = json.RawMessage(changes)
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return history, nil
}
