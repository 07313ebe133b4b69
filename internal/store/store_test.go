package store

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/safar/horeca-store/internal/models"
	"github.com/stretchr/testify/require"
)

var (
	testClientID = uuid.MustParse("6f1c1d7e-2a4b-4c39-9a57-1f3e0c7b8a11")
	testNow      = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

var orderCols = []string{
	"id", "client_id", "status", "discount_pct", "total_base", "total_vat", "total_amount", "wants_invoice", "notes",
	"delivery_date", "delivery_time", "delivery_payment", "delivery_document", "delivery_modified", "delivery_driver_id",
	"delivered_at", "created_at", "updated_at", "version",
}

var itemCols = []string{
	"id", "order_id", "product_id", "quantity", "original_quantity", "unit_price", "vat_rate", "discount_pct",
	"line_base", "line_vat", "line_total", "created_at",
}

var clientCols = []string{
	"id", "name", "contact_person", "email", "phone", "address", "cif_nif", "price_level_id", "active",
	"inactive_reason", "zone", "delivery_frequency", "wants_invoice_default", "created_at", "updated_at", "version",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func pendingOrderValues(id int64, base, vat, total string) []driver.Value {
	return []driver.Value{
		id, testClientID.String(), models.OrderStatusPending, "10", base, vat, total, false, "",
		nil, nil, nil, nil, false, nil,
		nil, testNow, testNow, 1,
	}
}

func deliveredOrderValues(id int64, base, vat, total string, modified bool) []driver.Value {
	return []driver.Value{
		id, testClientID.String(), models.OrderStatusDelivered, "10", base, vat, total, false, "",
		"2026-03-02", "10:30", "efectivo", "albaran", modified, "driver-1",
		testNow, testNow, testNow, 2,
	}
}

func itemValues(id, orderID int64, productID string, qty, original int, unit, base, vat, total string) []driver.Value {
	return []driver.Value{id, orderID, productID, qty, original, unit, "0.04", "10", base, vat, total, testNow}
}

type stubCatalog map[string]models.Product

func (c stubCatalog) Product(id string) (models.Product, bool) {
	p, ok := c[id]
	return p, ok && p.Active
}
