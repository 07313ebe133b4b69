package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var otherClientID = uuid.MustParse("0b7e4d2c-93f1-4a8e-b6d5-2c1f0e9a7b33")

func TestCreateClientUnknownZone(t *testing.T) {
	db, mock := newMock(t)
	zone := "ZN99"

	mock.ExpectQuery(`INSERT INTO clients`).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "clients_zone_fkey"})

	_, err := CreateClient(context.Background(), db, models.Client{Name: "Bar", PriceLevelID: "gold", Zone: &zone})
	assert.ErrorIs(t, err, database.ErrZoneNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateClientProfile(t *testing.T) {
	db, mock := newMock(t)
	zone := "ZN01"

	mock.ExpectQuery(`UPDATE clients`).
		WithArgs("Bar Central", "Ana", "ana@example.com", "600000000", "Calle Mayor 1", "B12345678",
			&zone, models.FrequencyFortnite, true, testClientID, 3).
		WillReturnRows(sqlmock.NewRows(clientCols).
			AddRow(testClientID.String(), "Bar Central", "Ana", "ana@example.com", "600000000", "Calle Mayor 1", "B12345678",
				"gold", true, nil, zone, models.FrequencyFortnite, true, testNow, testNow, 4))

	client, err := UpdateClientProfile(context.Background(), db, testClientID, ClientProfile{
		Name:                "Bar Central",
		ContactPerson:       "Ana",
		Email:               "ana@example.com",
		Phone:               "600000000",
		Address:             "Calle Mayor 1",
		CIFNIF:              "B12345678",
		Zone:                &zone,
		DeliveryFrequency:   models.FrequencyFortnite,
		WantsInvoiceDefault: true,
		Version:             3,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, client.Version)
	require.NotNil(t, client.Zone)
	assert.Equal(t, "ZN01", *client.Zone)
	assert.Equal(t, "gold", client.PriceLevelID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateClientProfileVersionConflict(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`UPDATE clients`).
		WillReturnRows(sqlmock.NewRows(clientCols))
	mock.ExpectQuery(`FROM clients WHERE id = \$1`).
		WithArgs(testClientID).
		WillReturnRows(sqlmock.NewRows(clientCols).
			AddRow(testClientID.String(), "Bar Central", "", "", "", "", "", "gold", true,
				nil, nil, models.FrequencyWeekly, false, testNow, testNow, 5))

	_, err := UpdateClientProfile(context.Background(), db, testClientID, ClientProfile{Name: "Bar", Version: 2})
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateClientProfileUnknownClient(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`UPDATE clients`).
		WillReturnRows(sqlmock.NewRows(clientCols))
	mock.ExpectQuery(`FROM clients WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(clientCols))

	_, err := UpdateClientProfile(context.Background(), db, testClientID, ClientProfile{Name: "Bar", Version: 1})
	assert.ErrorIs(t, err, database.ErrClientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateClientsZone(t *testing.T) {
	db, mock := newMock(t)
	zone := "ZN02"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE clients\s+SET zone = COALESCE\(\$2, zone\)`).
		WithArgs(sqlmock.AnyArg(), &zone, nil).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	// repeated ids count once
	n, err := BulkUpdateClients(context.Background(), db,
		[]uuid.UUID{testClientID, otherClientID, testClientID}, ClientChange{Zone: &zone})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateClientsRollsBackWhenAClientIsMissing(t *testing.T) {
	db, mock := newMock(t)
	freq := models.FrequencyMonthly

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE clients`).
		WithArgs(sqlmock.AnyArg(), nil, &freq).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	n, err := BulkUpdateClients(context.Background(), db,
		[]uuid.UUID{testClientID, otherClientID}, ClientChange{DeliveryFrequency: &freq})
	assert.ErrorIs(t, err, database.ErrClientNotFound)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateClientsUnknownZone(t *testing.T) {
	db, mock := newMock(t)
	zone := "ZN99"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE clients`).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "clients_zone_fkey"})
	mock.ExpectRollback()

	_, err := BulkUpdateClients(context.Background(), db, []uuid.UUID{testClientID}, ClientChange{Zone: &zone})
	assert.ErrorIs(t, err, database.ErrZoneNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateClientsWithoutChangeDoesNothing(t *testing.T) {
	db, mock := newMock(t)

	n, err := BulkUpdateClients(context.Background(), db, []uuid.UUID{testClientID}, ClientChange{})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = BulkDeactivateClients(context.Background(), db, nil, "cierre")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkDeactivateClients(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET active = FALSE, inactive_reason = \$2`).
		WithArgs(sqlmock.AnyArg(), "fin de temporada").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := BulkDeactivateClients(context.Background(), db, []uuid.UUID{testClientID, otherClientID}, "fin de temporada")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkDeactivateClientsFailureRollsBack(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`SET active = FALSE`).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := BulkDeactivateClients(context.Background(), db, []uuid.UUID{testClientID}, "cierre")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
