package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/horeca-store/internal/catalog"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/models"
)

const productColumns = `id, name, description, section, base_price, vat_rate, units_per_box, ml_per_unit,
		active, display_order, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Section,
		&product.BasePrice,
		&product.VATRate,
		&product.UnitsPerBox,
		&product.MLPerUnit,
		&product.Active,
		&product.DisplayOrder,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
}

func CreateProduct(ctx context.Context, db *sql.DB, p models.Product) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (id, name, description, section, base_price, vat_rate, units_per_box, ml_per_unit,
			active, display_order, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	err := scanProduct(db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Description, p.Section, p.BasePrice, p.VATRate, p.UnitsPerBox, p.MLPerUnit,
		p.Active, p.DisplayOrder,
	), product)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrDuplicateProduct
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id string) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	err := scanProduct(db.QueryRowContext(ctx, query, id), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// UpdateProduct writes every editable field if the stored version still
// matches p.Version.
func UpdateProduct(ctx context.Context, db *sql.DB, p models.Product) (*models.Product, error) {
	product := &models.Product{}

	query := `
		UPDATE products
		SET name = $1, description = $2, section = $3, base_price = $4, vat_rate = $5,
		    units_per_box = $6, ml_per_unit = $7, display_order = $8,
		    version = version + 1, updated_at = NOW()
		WHERE id = $9 AND version = $10
		RETURNING ` + productColumns

	err := scanProduct(db.QueryRowContext(ctx, query,
		p.Name, p.Description, p.Section, p.BasePrice, p.VATRate,
		p.UnitsPerBox, p.MLPerUnit, p.DisplayOrder,
		p.ID, p.Version,
	), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := GetProduct(ctx, db, p.ID); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func SetProductActive(ctx context.Context, db *sql.DB, id string, active bool) (*models.Product, error) {
	product := &models.Product{}

	query := `
		UPDATE products
		SET active = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + productColumns

	err := scanProduct(db.QueryRowContext(ctx, query, active, id), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("set product active: %w", err)
	}

	return product, nil
}

// ListActiveProducts returns the orderable range in display order.
func ListActiveProducts(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	return queryProducts(ctx, db, `SELECT `+productColumns+` FROM products WHERE active ORDER BY display_order, id`)
}

// ListCatalog returns every product, inactive ones included, so that old
// orders still resolve names and physical data.
func ListCatalog(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	return queryProducts(ctx, db, `SELECT `+productColumns+` FROM products ORDER BY display_order, id`)
}

// CatalogSource reads the catalog from the products table.
func CatalogSource(db *sql.DB) catalog.Source {
	return catalog.SourceFunc(func(ctx context.Context) ([]models.Product, error) {
		return ListCatalog(ctx, db)
	})
}

func queryProducts(ctx context.Context, db *sql.DB, query string, args ...any) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	products, err := queryProducts(ctx, db,
		`SELECT `+productColumns+` FROM products ORDER BY display_order, id LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
