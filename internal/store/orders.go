package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/delivery"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/pricing"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, client_id, status, discount_pct, total_base, total_vat, total_amount, wants_invoice, notes,
		delivery_date, delivery_time, delivery_payment, delivery_document, delivery_modified, delivery_driver_id,
		delivered_at, created_at, updated_at, version`

const itemColumns = `id, order_id, product_id, quantity, original_quantity, unit_price, vat_rate, discount_pct,
		line_base, line_vat, line_total, created_at`

type querier interface {
	queryRower
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type CreateOrderRequest struct {
	ClientID     uuid.UUID
	Items        []pricing.Selection
	WantsInvoice bool
	Notes        string
	CreatedBy    *string
}

type ConfirmDeliveryRequest struct {
	OrderID       int64
	Date          string
	Time          string
	PaymentMethod string
	DocumentType  string
	DriverID      *string
	// Items holds the quantities actually delivered. Nil means the order was
	// delivered exactly as placed.
	Items []pricing.Selection
}

func scanOrder(row rowScanner, order *models.Order) error {
	var (
		date, tm, payment, document sql.NullString
		modified                    bool
		driverID                    sql.NullString
		deliveredAt                 sql.NullTime
	)

	err := row.Scan(
		&order.ID,
		&order.ClientID,
		&order.Status,
		&order.DiscountPct,
		&order.TotalBase,
		&order.TotalVAT,
		&order.TotalAmount,
		&order.WantsInvoice,
		&order.Notes,
		&date,
		&tm,
		&payment,
		&document,
		&modified,
		&driverID,
		&deliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return err
	}

	if order.Status == models.OrderStatusDelivered {
		d := &models.Delivery{
			Date:          date.String,
			Time:          tm.String,
			PaymentMethod: payment.String,
			DocumentType:  document.String,
			Modified:      modified,
		}
		if driverID.Valid {
			d.DriverID = &driverID.String
		}
		if deliveredAt.Valid {
			d.DeliveredAt = &deliveredAt.Time
		}
		order.Delivery = d
	}

	return nil
}

func scanItem(row rowScanner, item *models.OrderItem) error {
	return row.Scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.Quantity,
		&item.OriginalQuantity,
		&item.UnitPrice,
		&item.VATRate,
		&item.DiscountPct,
		&item.LineBase,
		&item.LineVAT,
		&item.LineTotal,
		&item.CreatedAt,
	)
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID int64, lines []pricing.Line, original map[string]int) error {
	for _, line := range lines {
		originalQty := line.Quantity
		if original != nil {
			originalQty = original[line.ProductID]
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, original_quantity, unit_price, vat_rate,
				discount_pct, line_base, line_vat, line_total, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
			orderID, line.ProductID, line.Quantity, originalQty, line.UnitPrice, line.VATRate,
			line.DiscountPct, line.Base, line.VAT, line.Total)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return nil
}

// CreateOrder prices the cart with the client's current discount and stores
// the order, its lines and a history entry as one unit. Repeated products are
// merged into one line. The id comes from order_id_seq.
func CreateOrder(ctx context.Context, db *sql.DB, catalog pricing.Lookup, req CreateOrderRequest) (*models.Order, *pricing.Quote, error) {
	if err := pricing.ValidateSelections(req.Items); err != nil {
		return nil, nil, err
	}
	items, err := delivery.Normalize(req.Items)
	if err != nil {
		return nil, nil, err
	}

	var (
		order *models.Order
		quote *pricing.Quote
	)

	err = database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		discount, err := GetClientDiscount(ctx, tx, req.ClientID)
		if err != nil {
			return err
		}

		quote, err = pricing.PriceOrder(discount, items, catalog)
		if err != nil {
			return err
		}

		var orderID int64
		if err := tx.QueryRowContext(ctx, `SELECT nextval('order_id_seq')`).Scan(&orderID); err != nil {
			return fmt.Errorf("next order id: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO orders (id, client_id, status, discount_pct, total_base, total_vat, total_amount,
				wants_invoice, notes, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)`,
			orderID, req.ClientID, models.OrderStatusPending, quote.DiscountPct,
			quote.Base, quote.VAT, quote.Amount, req.WantsInvoice, req.Notes)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := insertItems(ctx, tx, orderID, quote.Lines, nil); err != nil {
			return err
		}

		if err := insertHistory(ctx, tx, orderID, models.HistoryActionCreated, req.CreatedBy, map[string]any{
			"items":        quote.Lines,
			"discount_pct": quote.DiscountPct,
			"total_amount": quote.Amount,
		}); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return order, quote, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	return getOrder(ctx, db, id)
}

func getOrder(ctx context.Context, q querier, id int64) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func getOrderItems(ctx context.Context, q querier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// ListPendingOrders returns every pending order with its lines, oldest
// first. It takes no locks: the load sheet is a snapshot.
func ListPendingOrders(ctx context.Context, db *sql.DB) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at, id`,
		models.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := attachItems(ctx, db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListDeliveredOrders pages through delivered orders with their lines, most
// recent delivery first.
func ListDeliveredOrders(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE status = $1`, models.OrderStatusDelivered).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count delivered orders: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1
		 ORDER BY delivered_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		models.OrderStatusDelivered, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list delivered orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := attachItems(ctx, db, orders); err != nil {
		return nil, err
	}
	return newOffsetPage(orders, total, page, pageSize), nil
}

// collectOrders scans and closes rows.
func collectOrders(rows *sql.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Items = []models.OrderItem{}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// attachItems loads the lines of every order with one query.
func attachItems(ctx context.Context, db *sql.DB, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[int64]int, len(orders))
	ids := make([]int64, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids = append(ids, o.ID)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := scanItem(rows, &item); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

// ListOrdersCursor pages through a client's orders, newest first, without
// their lines.
func ListOrdersCursor(ctx context.Context, db *sql.DB, clientID uuid.UUID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE client_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, clientID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// lockPendingOrder locks the order row and fails unless it is still pending.
// It does not wait for a lock held by another transaction: the caller gets
// ErrLockTimeout, which WithRetry still treats as retryable.
func lockPendingOrder(ctx context.Context, tx *sql.Tx, id int64) (decimal.Decimal, error) {
	var (
		status   string
		discount decimal.Decimal
	)

	err := tx.QueryRowContext(ctx,
		`SELECT status, discount_pct FROM orders WHERE id = $1 FOR UPDATE NOWAIT`,
		id).Scan(&status, &discount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, database.ErrOrderNotFound
		}
		if database.IsLockNotAvailable(err) {
			return decimal.Zero, fmt.Errorf("%w: %w", database.ErrLockTimeout, err)
		}
		return decimal.Zero, fmt.Errorf("lock order: %w", err)
	}

	if status != models.OrderStatusPending {
		return decimal.Zero, database.ErrOrderNotPending
	}

	return discount, nil
}

// ConfirmDelivery moves a pending order to delivered. When the driver edited
// the quantities the line set is replaced as a whole, the totals are
// recomputed and the order is flagged as modified.
func ConfirmDelivery(ctx context.Context, db *sql.DB, catalog pricing.Lookup, req ConfirmDeliveryRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		discount, err := lockPendingOrder(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}

		items, err := getOrderItems(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}

		var (
			change delivery.Change
			totals *pricing.Totals
		)
		if req.Items != nil {
			plan, err := delivery.Plan(items, req.Items, discount, catalog)
			if err != nil {
				return err
			}
			change = plan.Change

			if change.Modified {
				if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, req.OrderID); err != nil {
					return fmt.Errorf("delete order items: %w", err)
				}
				if err := insertItems(ctx, tx, req.OrderID, plan.Lines, plan.Original); err != nil {
					return err
				}
				totals = &plan.Totals
			}
		}

		query := `
			UPDATE orders
			SET status = $1, delivery_date = $2, delivery_time = $3, delivery_payment = $4,
			    delivery_document = $5, delivery_driver_id = $6, delivery_modified = $7,
			    delivered_at = NOW(), updated_at = NOW(), version = version + 1`
		args := []any{
			models.OrderStatusDelivered, req.Date, req.Time, req.PaymentMethod,
			req.DocumentType, req.DriverID, change.Modified,
		}
		if totals != nil {
			query += `, total_base = $8, total_vat = $9, total_amount = $10 WHERE id = $11`
			args = append(args, totals.Base, totals.VAT, totals.Amount, req.OrderID)
		} else {
			query += ` WHERE id = $8`
			args = append(args, req.OrderID)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("confirm delivery: %w", err)
		}

		if err := insertHistory(ctx, tx, req.OrderID, models.HistoryActionDelivered, req.DriverID, map[string]any{
			"delivery": map[string]string{
				"date":     req.Date,
				"time":     req.Time,
				"payment":  req.PaymentMethod,
				"document": req.DocumentType,
			},
			"modified": change.Modified,
			"changed":  change.Changed,
			"items":    req.Items,
		}); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, req.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// CancelOrder cancels a pending order. Delivered and cancelled orders are
// final.
func CancelOrder(ctx context.Context, db *sql.DB, id int64, changedBy *string, reason string) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		if _, err := lockPendingOrder(ctx, tx, id); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, updated_at = NOW(), version = version + 1
			 WHERE id = $2`,
			models.OrderStatusCancelled, id)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}

		if err := insertHistory(ctx, tx, id, models.HistoryActionCancelled, changedBy, map[string]string{
			"reason": reason,
		}); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}
