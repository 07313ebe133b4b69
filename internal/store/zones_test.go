package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zoneCols = []string{
	"code", "name", "description", "delivery_day", "postal_codes", "route_order", "active",
	"created_at", "updated_at", "version",
}

func TestListZones(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`FROM delivery_zones WHERE active OR NOT \$1 ORDER BY route_order, code`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(zoneCols).
			AddRow("ZN01", "Antequera Norte", "", "lunes", "{29200,29210}", 1, true, testNow, testNow, 1).
			AddRow("ZN02", "Antequera Sur", "", "martes", "{}", 2, true, testNow, testNow, 1))

	zones, err := ListZones(context.Background(), db, true)
	require.NoError(t, err)

	require.Len(t, zones, 2)
	assert.Equal(t, []string{"29200", "29210"}, zones[0].PostalCodes)
	assert.Equal(t, []string{}, zones[1].PostalCodes)
	assert.Equal(t, "martes", zones[1].DeliveryDay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateZone(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO delivery_zones`).
		WithArgs("ZN01", "Antequera Norte", "", "lunes", sqlmock.AnyArg(), 1, true).
		WillReturnRows(sqlmock.NewRows(zoneCols).
			AddRow("ZN01", "Antequera Norte", "", "lunes", "{}", 1, true, testNow, testNow, 1))

	zone, err := CreateZone(context.Background(), db, models.Zone{
		Code: "ZN01", Name: "Antequera Norte", DeliveryDay: "lunes", RouteOrder: 1, Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ZN01", zone.Code)
	assert.NotNil(t, zone.PostalCodes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateZoneDuplicate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO delivery_zones`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := CreateZone(context.Background(), db, models.Zone{Code: "ZN01", Name: "Norte", DeliveryDay: "lunes"})
	assert.ErrorIs(t, err, database.ErrDuplicateZone)
}

func TestUpdateZoneVersionConflict(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`UPDATE delivery_zones`).
		WillReturnRows(sqlmock.NewRows(zoneCols))
	mock.ExpectQuery(`FROM delivery_zones WHERE code = \$1`).
		WithArgs("ZN01").
		WillReturnRows(sqlmock.NewRows(zoneCols).
			AddRow("ZN01", "Antequera Norte", "", "lunes", "{}", 1, true, testNow, testNow, 3))

	_, err := UpdateZone(context.Background(), db, models.Zone{Code: "ZN01", Name: "Norte", DeliveryDay: "lunes", Version: 2})
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateZoneUnknown(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`UPDATE delivery_zones`).
		WillReturnRows(sqlmock.NewRows(zoneCols))
	mock.ExpectQuery(`FROM delivery_zones WHERE code = \$1`).
		WillReturnRows(sqlmock.NewRows(zoneCols))

	_, err := UpdateZone(context.Background(), db, models.Zone{Code: "ZN09", Version: 1})
	assert.ErrorIs(t, err, database.ErrZoneNotFound)
}

func TestDeleteZone(t *testing.T) {
	tests := []struct {
		name   string
		result func(*sqlmock.ExpectedExec)
		want   error
	}{
		{"deleted", func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 1)) }, nil},
		{"unknown", func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 0)) }, database.ErrZoneNotFound},
		{"assigned", func(e *sqlmock.ExpectedExec) { e.WillReturnError(&pq.Error{Code: "23503"}) }, database.ErrZoneInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			tt.result(mock.ExpectExec(`DELETE FROM delivery_zones WHERE code = \$1`).WithArgs("ZN01"))

			err := DeleteZone(context.Background(), db, "ZN01")
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
