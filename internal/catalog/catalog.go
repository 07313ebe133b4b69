// Package catalog holds an immutable snapshot of the product range used for
// pricing and load sheets.
package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/safar/horeca-store/internal/models"
)

// ErrUnavailable is returned by Err when the snapshot was built from the
// fallback range, which carries no prices.
var ErrUnavailable = errors.New("product catalog unavailable")

type Status int

const (
	NotFound Status = iota
	Found
	Inactive
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Inactive:
		return "inactive"
	default:
		return "not_found"
	}
}

// Result is the outcome of a lookup. Product is only set when the status is
// Found or Inactive.
type Result struct {
	Status  Status
	Product models.Product
}

type Catalog struct {
	products []models.Product
	byID     map[string]models.Product
	fallback bool
}

// Source returns the current product range, inactive products included.
type Source interface {
	Products(ctx context.Context) ([]models.Product, error)
}

type SourceFunc func(ctx context.Context) ([]models.Product, error)

func (f SourceFunc) Products(ctx context.Context) ([]models.Product, error) {
	return f(ctx)
}

func New(products []models.Product) *Catalog {
	sorted := make([]models.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DisplayOrder != sorted[j].DisplayOrder {
			return sorted[i].DisplayOrder < sorted[j].DisplayOrder
		}
		return sorted[i].ID < sorted[j].ID
	})

	byID := make(map[string]models.Product, len(sorted))
	for _, p := range sorted {
		byID[p.ID] = p
	}
	return &Catalog{products: sorted, byID: byID}
}

// Load reads the catalog from src. When src fails or has no products the
// snapshot is built from fallback and marked as such.
func Load(ctx context.Context, src Source, fallback []models.Product) *Catalog {
	products, err := src.Products(ctx)
	if err != nil {
		log.Warn().Err(err).Int("fallback_products", len(fallback)).Msg("catalog unavailable, using fallback")
		return newFallback(fallback)
	}
	if len(products) == 0 {
		log.Warn().Int("fallback_products", len(fallback)).Msg("catalog empty, using fallback")
		return newFallback(fallback)
	}
	return New(products)
}

func newFallback(products []models.Product) *Catalog {
	c := New(products)
	c.fallback = true
	return c
}

func (c *Catalog) Fallback() bool {
	return c.fallback
}

// Err reports whether the snapshot can be used to freeze prices.
func (c *Catalog) Err() error {
	if c.fallback {
		return ErrUnavailable
	}
	return nil
}

func (c *Catalog) Lookup(id string) Result {
	p, ok := c.byID[id]
	switch {
	case !ok:
		return Result{Status: NotFound}
	case !p.Active:
		return Result{Status: Inactive, Product: p}
	default:
		return Result{Status: Found, Product: p}
	}
}

// Product reports only active products, which is what pricing accepts. A
// fallback snapshot reports none, so every priced line is degraded.
func (c *Catalog) Product(id string) (models.Product, bool) {
	if c.fallback {
		return models.Product{}, false
	}
	r := c.Lookup(id)
	return r.Product, r.Status == Found
}

// Products returns every product in display order.
func (c *Catalog) Products() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Len() int {
	return len(c.products)
}
