package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
)

const zoneColumns = `code, name, description, delivery_day, postal_codes, route_order, active,
		created_at, updated_at, version`

func scanZone(row rowScanner, zone *models.Zone) error {
	err := row.Scan(
		&zone.Code,
		&zone.Name,
		&zone.Description,
		&zone.DeliveryDay,
		pq.Array(&zone.PostalCodes),
		&zone.RouteOrder,
		&zone.Active,
		&zone.CreatedAt,
		&zone.UpdatedAt,
		&zone.Version,
	)
	if err != nil {
		return err
	}
	if zone.PostalCodes == nil {
		zone.PostalCodes = []string{}
	}
	return nil
}

// postalCodes keeps a nil slice from being written as NULL.
func postalCodes(codes []string) any {
	if codes == nil {
		codes = []string{}
	}
	return pq.Array(codes)
}

// ListZones returns zones in route order.
func ListZones(ctx context.Context, db *sql.DB, activeOnly bool) ([]models.Zone, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+zoneColumns+` FROM delivery_zones WHERE active OR NOT $1 ORDER BY route_order, code`,
		activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	zones := []models.Zone{}
	for rows.Next() {
		var zone models.Zone
		if err := scanZone(rows, &zone); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, zone)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return zones, nil
}

func GetZone(ctx context.Context, db *sql.DB, code string) (*models.Zone, error) {
	zone := &models.Zone{}

	err := scanZone(db.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM delivery_zones WHERE code = $1`, code), zone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrZoneNotFound
		}
		return nil, fmt.Errorf("get zone: %w", err)
	}

	return zone, nil
}

func CreateZone(ctx context.Context, db *sql.DB, z models.Zone) (*models.Zone, error) {
	zone := &models.Zone{}

	query := `
		INSERT INTO delivery_zones (code, name, description, delivery_day, postal_codes, route_order, active,
			created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		RETURNING ` + zoneColumns

	err := scanZone(db.QueryRowContext(ctx, query,
		z.Code, z.Name, z.Description, z.DeliveryDay, postalCodes(z.PostalCodes), z.RouteOrder, z.Active,
	), zone)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrDuplicateZone
		}
		return nil, fmt.Errorf("create zone: %w", err)
	}

	return zone, nil
}

// UpdateZone writes every editable field if the stored version still
// matches z.Version. The code is the zone's identity and cannot change.
func UpdateZone(ctx context.Context, db *sql.DB, z models.Zone) (*models.Zone, error) {
	zone := &models.Zone{}

	query := `
		UPDATE delivery_zones
		SET name = $1, description = $2, delivery_day = $3, postal_codes = $4, route_order = $5, active = $6,
		    version = version + 1, updated_at = NOW()
		WHERE code = $7 AND version = $8
		RETURNING ` + zoneColumns

	err := scanZone(db.QueryRowContext(ctx, query,
		z.Name, z.Description, z.DeliveryDay, postalCodes(z.PostalCodes), z.RouteOrder, z.Active,
		z.Code, z.Version,
	), zone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := GetZone(ctx, db, z.Code); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update zone: %w", err)
	}

	return zone, nil
}

// DeleteZone removes a zone no client is assigned to.
func DeleteZone(ctx context.Context, db *sql.DB, code string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM delivery_zones WHERE code = $1`, code)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrZoneInUse
		}
		return fmt.Errorf("delete zone: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	if n == 0 {
		return database.ErrZoneNotFound
	}

	return nil
}
