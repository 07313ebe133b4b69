package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
	"github.com/shopspring/decimal"
)

const clientColumns = `id, name, contact_person, email, phone, address, cif_nif, price_level_id, active,
		inactive_reason, zone, delivery_frequency, wants_invoice_default, created_at, updated_at, version`

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanClient(row rowScanner, client *models.Client) error {
	return row.Scan(
		&client.ID,
		&client.Name,
		&client.ContactPerson,
		&client.Email,
		&client.Phone,
		&client.Address,
		&client.CIFNIF,
		&client.PriceLevelID,
		&client.Active,
		&client.InactiveReason,
		&client.Zone,
		&client.DeliveryFrequency,
		&client.WantsInvoiceDefault,
		&client.CreatedAt,
		&client.UpdatedAt,
		&client.Version,
	)
}

// missingReference maps a foreign key violation on clients to the parent
// that does not exist.
func missingReference(err error) error {
	if database.ViolatedConstraint(err) == "clients_zone_fkey" {
		return database.ErrZoneNotFound
	}
	return database.ErrPriceLevelNotFound
}

func CreateClient(ctx context.Context, db *sql.DB, c models.Client) (*models.Client, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.DeliveryFrequency == "" {
		c.DeliveryFrequency = models.FrequencyWeekly
	}

	client := &models.Client{}

	query := `
		INSERT INTO clients (id, name, contact_person, email, phone, address, cif_nif, price_level_id, active,
			zone, delivery_frequency, wants_invoice_default, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10, $11, NOW(), NOW(), 1)
		RETURNING ` + clientColumns

	err := scanClient(db.QueryRowContext(ctx, query,
		c.ID, c.Name, c.ContactPerson, c.Email, c.Phone, c.Address, c.CIFNIF, c.PriceLevelID,
		c.Zone, c.DeliveryFrequency, c.WantsInvoiceDefault,
	), client)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, missingReference(err)
		}
		return nil, fmt.Errorf("create client: %w", err)
	}

	return client, nil
}

func GetClient(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Client, error) {
	client := &models.Client{}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	err := scanClient(db.QueryRowContext(ctx, query, id), client)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	return client, nil
}

func ListClients(ctx context.Context, db *sql.DB, page, pageSize int, includeInactive bool) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE active OR $1`, includeInactive).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE active OR $1
		ORDER BY name, id
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, includeInactive, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		var client models.Client
		if err := scanClient(rows, &client); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(clients, total, page, pageSize), nil
}

// UpdateClientPriceLevel moves a client to another level. Orders already
// placed keep the discount they were priced with.
func UpdateClientPriceLevel(ctx context.Context, db *sql.DB, id uuid.UUID, priceLevelID string) (*models.Client, error) {
	client := &models.Client{}

	query := `
		UPDATE clients
		SET price_level_id = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + clientColumns

	err := scanClient(db.QueryRowContext(ctx, query, priceLevelID, id), client)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrClientNotFound
		}
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrPriceLevelNotFound
		}
		return nil, fmt.Errorf("update client price level: %w", err)
	}

	return client, nil
}

// ClientProfile holds the fields a client's profile update replaces. The
// price level and active flag have their own operations.
type ClientProfile struct {
	Name                string
	ContactPerson       string
	Email               string
	Phone               string
	Address             string
	CIFNIF              string
	Zone                *string
	DeliveryFrequency   string
	WantsInvoiceDefault bool
	Version             int
}

// UpdateClientProfile writes p if the stored version still matches
// p.Version.
func UpdateClientProfile(ctx context.Context, db *sql.DB, id uuid.UUID, p ClientProfile) (*models.Client, error) {
	if p.DeliveryFrequency == "" {
		p.DeliveryFrequency = models.FrequencyWeekly
	}

	client := &models.Client{}

	query := `
		UPDATE clients
		SET name = $1, contact_person = $2, email = $3, phone = $4, address = $5, cif_nif = $6,
		    zone = $7, delivery_frequency = $8, wants_invoice_default = $9,
		    version = version + 1, updated_at = NOW()
		WHERE id = $10 AND version = $11
		RETURNING ` + clientColumns

	err := scanClient(db.QueryRowContext(ctx, query,
		p.Name, p.ContactPerson, p.Email, p.Phone, p.Address, p.CIFNIF,
		p.Zone, p.DeliveryFrequency, p.WantsInvoiceDefault,
		id, p.Version,
	), client)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := GetClient(ctx, db, id); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrOptimisticLockFailed
		}
		if database.IsForeignKeyViolation(err) {
			return nil, missingReference(err)
		}
		return nil, fmt.Errorf("update client profile: %w", err)
	}

	return client, nil
}

// ClientChange is applied to every client of a bulk update. Nil fields are
// left untouched.
type ClientChange struct {
	Zone              *string
	DeliveryFrequency *string
}

// BulkUpdateClients applies change to every client in ids. Either all of
// them are updated or, when one does not exist, none is.
func BulkUpdateClients(ctx context.Context, db *sql.DB, ids []uuid.UUID, change ClientChange) (int, error) {
	if change.Zone == nil && change.DeliveryFrequency == nil {
		return 0, nil
	}

	n, err := bulkUpdate(ctx, db, ids,
		`UPDATE clients
		 SET zone = COALESCE($2, zone), delivery_frequency = COALESCE($3, delivery_frequency),
		     version = version + 1, updated_at = NOW()
		 WHERE id = ANY($1::uuid[])`,
		change.Zone, change.DeliveryFrequency)
	if database.IsForeignKeyViolation(err) {
		return 0, database.ErrZoneNotFound
	}
	return n, err
}

// BulkDeactivateClients deactivates every client in ids with the same
// reason, all or nothing.
func BulkDeactivateClients(ctx context.Context, db *sql.DB, ids []uuid.UUID, reason string) (int, error) {
	return bulkUpdate(ctx, db, ids,
		`UPDATE clients
		 SET active = FALSE, inactive_reason = $2, version = version + 1, updated_at = NOW()
		 WHERE id = ANY($1::uuid[])`,
		reason)
}

// bulkUpdate runs query with the deduplicated ids as $1 and rolls back
// unless every id matched a client.
func bulkUpdate(ctx context.Context, db *sql.DB, ids []uuid.UUID, query string, args ...any) (int, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id.String())
	}
	if len(unique) == 0 {
		return 0, nil
	}

	var updated int
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, append([]any{pq.Array(unique)}, args...)...)
		if err != nil {
			return fmt.Errorf("bulk update clients: %w", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("bulk update clients: %w", err)
		}
		if int(n) != len(unique) {
			return fmt.Errorf("%w: %d of %d clients exist", database.ErrClientNotFound, n, len(unique))
		}

		updated = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return updated, nil
}

func DeactivateClient(ctx context.Context, db *sql.DB, id uuid.UUID, reason string) (*models.Client, error) {
	return setClientActive(ctx, db, id, false, &reason)
}

func ReactivateClient(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Client, error) {
	return setClientActive(ctx, db, id, true, nil)
}

func setClientActive(ctx context.Context, db *sql.DB, id uuid.UUID, active bool, reason *string) (*models.Client, error) {
	client := &models.Client{}

	query := `
		UPDATE clients
		SET active = $1, inactive_reason = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + clientColumns

	err := scanClient(db.QueryRowContext(ctx, query, active, reason, id), client)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrClientNotFound
		}
		return nil, fmt.Errorf("set client active: %w", err)
	}

	return client, nil
}

// GetClientDiscount resolves the discount of the client's current price
// level. Inactive clients are reported with ErrClientInactive.
func GetClientDiscount(ctx context.Context, q queryRower, clientID uuid.UUID) (decimal.Decimal, error) {
	var (
		discount decimal.Decimal
		active   bool
	)

	err := q.QueryRowContext(ctx,
		`SELECT pl.discount_pct, c.active
		 FROM clients c
		 JOIN price_levels pl ON pl.id = c.price_level_id
		 WHERE c.id = $1`,
		clientID).Scan(&discount, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, database.ErrClientNotFound
		}
		return decimal.Zero, fmt.Errorf("get client discount: %w", err)
	}

	if !active {
		return decimal.Zero, database.ErrClientInactive
	}

	return discount, nil
}

// ClientAnnualSpend sums the totals of the client's orders delivered during
// year.
func ClientAnnualSpend(ctx context.Context, db *sql.DB, clientID uuid.UUID, year int) (decimal.Decimal, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	var spend decimal.Decimal
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_amount), 0)
		 FROM orders
		 WHERE client_id = $1
		   AND status = $2
		   AND delivered_at >= $3 AND delivered_at < $4`,
		clientID, models.OrderStatusDelivered, from, to).Scan(&spend)
	if err != nil {
		return decimal.Zero, fmt.Errorf("client annual spend: %w", err)
	}

	return spend, nil
}
