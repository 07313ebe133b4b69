package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{
	"id", "name", "description", "section", "base_price", "vat_rate", "units_per_box", "ml_per_unit",
	"active", "display_order", "created_at", "updated_at", "version",
}

func TestCreateProductDuplicate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := CreateProduct(context.Background(), db, models.Product{ID: "F-PET-5L"})
	assert.ErrorIs(t, err, database.ErrDuplicateProduct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveProducts(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`FROM products WHERE active ORDER BY display_order`).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("F-PET-5L", "PET Filtrado 5L", "Caja 3 ud", "PET Filtrado", "30.00", "0.04", 3, 5000, true, 10, testNow, testNow, 1).
			AddRow("DEL-500", "Delirium 500ml", "Unidad", "Delirium", "12.00", "0.04", 1, 500, true, 190, testNow, testNow, 1))

	products, err := ListActiveProducts(context.Background(), db)
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, 5000, products[0].MLPerUnit)
	assert.True(t, decimal.RequireFromString("30").Equal(products[0].BasePrice))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductVersionConflict(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`UPDATE products`).
		WillReturnRows(sqlmock.NewRows(productCols))
	mock.ExpectQuery(`FROM products WHERE id = \$1`).
		WithArgs("F-PET-5L").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("F-PET-5L", "PET Filtrado 5L", "", "", "30.00", "0.04", 3, 5000, true, 10, testNow, testNow, 4))

	_, err := UpdateProduct(context.Background(), db, models.Product{ID: "F-PET-5L", Version: 2})
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetProductActiveNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`UPDATE products`).
		WithArgs(false, "NOPE").
		WillReturnRows(sqlmock.NewRows(productCols))

	_, err := SetProductActive(context.Background(), db, "NOPE", false)
	assert.ErrorIs(t, err, database.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsPaging(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(`LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 10).
		WillReturnRows(sqlmock.NewRows(productCols))

	page, err := ListProducts(context.Background(), db, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(21), page.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClientDiscountNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`SELECT pl.discount_pct`).
		WillReturnRows(sqlmock.NewRows([]string{"discount_pct", "active"}))

	_, err := GetClientDiscount(context.Background(), db, testClientID)
	assert.ErrorIs(t, err, database.ErrClientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateClientPriceLevelUnknownLevel(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`UPDATE clients`).
		WithArgs("diamond", testClientID).
		WillReturnError(&pq.Error{Code: "23503"})

	_, err := UpdateClientPriceLevel(context.Background(), db, testClientID, "diamond")
	assert.ErrorIs(t, err, database.ErrPriceLevelNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateClient(t *testing.T) {
	db, mock := newMock(t)
	reason := "cerrado por obras"

	mock.ExpectQuery(`UPDATE clients`).
		WithArgs(false, &reason, testClientID).
		WillReturnRows(sqlmock.NewRows(clientCols).AddRow(testClientID.String(), "Bar Central", "", "", "", "", "", "gold", false,
			reason, nil, "semanal", false, testNow, testNow, 2))

	client, err := DeactivateClient(context.Background(), db, testClientID, reason)
	require.NoError(t, err)
	assert.False(t, client.Active)
	require.NotNil(t, client.InactiveReason)
	assert.Equal(t, reason, *client.InactiveReason)
	assert.Nil(t, client.Zone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientAnnualSpend(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`SELECT COALESCE`).
		WithArgs(testClientID, models.OrderStatusDelivered, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("6120.45"))

	spend, err := ClientAnnualSpend(context.Background(), db, testClientID, 2026)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6120.45").Equal(spend))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePriceLevelRejectsDiscount(t *testing.T) {
	db, mock := newMock(t)

	_, err := UpdatePriceLevel(context.Background(), db, "gold", "Gold", decimal.NewFromInt(120), "")
	assert.ErrorIs(t, err, pricing.ErrInvalidDiscount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceVolumeTiers(t *testing.T) {
	db, mock := newMock(t)
	gold := "gold"
	tiers := []models.VolumeTier{
		{MinAmount: decimal.Zero, MaxAmount: decimal.NewNullDecimal(decimal.NewFromInt(5000))},
		{MinAmount: decimal.NewFromInt(5000), ExtraDiscountPct: decimal.NewFromInt(3), SuggestedLevel: &gold},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM volume_tiers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO volume_tiers`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO volume_tiers`).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM volume_tiers`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "min_amount", "max_amount", "extra_discount_pct", "suggested_level"}).
			AddRow(1, "0", "5000", "0", nil).
			AddRow(2, "5000", nil, "3", "gold"))

	stored, err := ReplaceVolumeTiers(context.Background(), db, tiers)
	require.NoError(t, err)

	require.Len(t, stored, 2)
	assert.True(t, stored[0].MaxAmount.Valid)
	assert.False(t, stored[1].MaxAmount.Valid)
	assert.Equal(t, "gold", *stored[1].SuggestedLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceVolumeTiersRejectsOverlap(t *testing.T) {
	db, mock := newMock(t)

	_, err := ReplaceVolumeTiers(context.Background(), db, []models.VolumeTier{
		{MinAmount: decimal.Zero, MaxAmount: decimal.NewNullDecimal(decimal.NewFromInt(5000))},
		{MinAmount: decimal.NewFromInt(4000)},
	})
	assert.ErrorIs(t, err, pricing.ErrTierOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}
