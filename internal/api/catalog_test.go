package api

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/horeca-store/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productBody() map[string]any {
	return map[string]any{
		"id":            "F-VID-1L",
		"name":          "Vidrio Filtrado 1L",
		"section":       "Vidrio Filtrado",
		"base_price":    "11.50",
		"vat_rate":      "0.04",
		"units_per_box": 12,
		"ml_per_unit":   1000,
		"display_order": 200,
	}
}

func TestCreateProductInvalidatesCatalog(t *testing.T) {
	env := newTestEnv(t, 0)

	env.mock.ExpectQuery(`INSERT INTO products`).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("F-VID-1L", "Vidrio Filtrado 1L", "", "Vidrio Filtrado", "11.50", "0.04", 12, 1000, true, 200, testNow, testNow, 1))

	rr := env.do(t, http.MethodPost, "/products", productBody())

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "F-VID-1L", decodeBody(t, rr)["id"])
	assert.Equal(t, 1, env.cache.invalidated)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateProductRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{"missing id", func(b map[string]any) { delete(b, "id") }, "id is required"},
		{"missing name", func(b map[string]any) { delete(b, "name") }, "Name"},
		{"no units", func(b map[string]any) { b["units_per_box"] = 0 }, "UnitsPerBox"},
		{"negative price", func(b map[string]any) { b["base_price"] = "-1" }, "base_price"},
		{"vat as percent", func(b map[string]any) { b["vat_rate"] = "21" }, "vat_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			body := productBody()
			tt.mutate(body)

			rr := env.do(t, http.MethodPost, "/products", body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, decodeProblem(t, rr).Detail, tt.want)
			assert.Zero(t, env.cache.invalidated)
		})
	}
}

func TestCreateProductDuplicate(t *testing.T) {
	env := newTestEnv(t, 0)

	env.mock.ExpectQuery(`INSERT INTO products`).
		WillReturnError(&pq.Error{Code: "23505"})

	rr := env.do(t, http.MethodPost, "/products", productBody())

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Zero(t, env.cache.invalidated)
}

func TestUpdateProductRequiresVersion(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, http.MethodPut, "/products/F-VID-1L", productBody())

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeProblem(t, rr).Detail, "version")
}

func TestSetProductActive(t *testing.T) {
	env := newTestEnv(t, 0)

	env.mock.ExpectQuery(`UPDATE products`).
		WithArgs(false, "F-PET-1L").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("F-PET-1L", "PET Filtrado 1L", "", "PET Filtrado", "9.00", "0.04", 15, 1000, false, 30, testNow, testNow, 2))

	rr := env.do(t, http.MethodPatch, "/products/F-PET-1L/active", map[string]any{"active": false})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, false, decodeBody(t, rr)["active"])
	assert.Equal(t, 1, env.cache.invalidated)
}

func TestSetProductActiveRequiresFlag(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, http.MethodPatch, "/products/F-PET-1L/active", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdatePriceLevelOutOfRange(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, http.MethodPut, "/price-levels/gold", map[string]any{
		"name":         "Gold",
		"discount_pct": "150",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestReplaceVolumeTiersOverlap(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, http.MethodPut, "/volume-tiers", `{"tiers":[
		{"min_amount":"0","max_amount":"5000","extra_discount_pct":"0"},
		{"min_amount":"4000","max_amount":null,"extra_discount_pct":"2"}
	]}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateClient(t *testing.T) {
	env := newTestEnv(t, 0)

	env.mock.ExpectQuery(`INSERT INTO clients`).
		WillReturnRows(sqlmock.NewRows(clientCols).
			AddRow(testClientID.String(), "Bar Central", "", "", "", "", "", "gold", true,
				nil, nil, models.FrequencyWeekly, false, testNow, testNow, 1))

	rr := env.do(t, http.MethodPost, "/clients", map[string]any{
		"name":           "Bar Central",
		"price_level_id": "gold",
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, testClientID.String(), body["id"])
	assert.Equal(t, "semanal", body["delivery_frequency"])
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateClientValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"price_level_id": "gold"}},
		{"bad email", map[string]any{"name": "Bar", "price_level_id": "gold", "email": "nope"}},
		{"bad frequency", map[string]any{"name": "Bar", "price_level_id": "gold", "delivery_frequency": "daily"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			rr := env.do(t, http.MethodPost, "/clients", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestCreateClientUnknownPriceLevel(t *testing.T) {
	env := newTestEnv(t, 0)

	env.mock.ExpectQuery(`INSERT INTO clients`).
		WillReturnError(&pq.Error{Code: "23503"})

	rr := env.do(t, http.MethodPost, "/clients", map[string]any{
		"name":           "Bar Central",
		"price_level_id": "diamond",
	})

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "price level not found", decodeProblem(t, rr).Detail)
}

func TestClientRoutesRejectBadIDs(t *testing.T) {
	env := newTestEnv(t, 0)

	for _, path := range []string{"/clients/42", "/clients/42/orders", "/clients/42/tier-suggestion"} {
		rr := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestListClientOrdersRejectsBadCursor(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(t, http.MethodGet, "/clients/"+testClientID.String()+"/orders?cursor=%25%25", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTierSuggestion(t *testing.T) {
	env := newTestEnv(t, 0)

	env.mock.ExpectQuery(`FROM clients WHERE id = \$1`).
		WithArgs(testClientID).
		WillReturnRows(sqlmock.NewRows(clientCols).
			AddRow(testClientID.String(), "Bar Central", "", "", "", "", "", "silver", true,
				nil, nil, models.FrequencyWeekly, false, testNow, testNow, 1))
	env.mock.ExpectQuery(`SELECT COALESCE`).
		WithArgs(testClientID, models.OrderStatusDelivered, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("6120.45"))
	env.mock.ExpectQuery(`FROM volume_tiers`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "min_amount", "max_amount", "extra_discount_pct", "suggested_level"}).
			AddRow(1, "0", "5000", "0", nil).
			AddRow(2, "5000", "15000", "3", "gold").
			AddRow(3, "15000", nil, "5", "platinum"))

	rr := env.do(t, http.MethodGet, "/clients/"+testClientID.String()+"/tier-suggestion", nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, "6120.45", body["annual_spend"])
	assert.Equal(t, "silver", body["current_level"])
	tier := body["tier"].(map[string]any)
	assert.Equal(t, "gold", tier["suggested_level"])
	assert.NoError(t, env.mock.ExpectationsWereMet())
}
