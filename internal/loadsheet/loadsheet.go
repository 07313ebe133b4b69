// Package loadsheet aggregates the demand of pending orders into a shipment
// manifest: boxes, units, litres and kilograms per product, plus any surplus
// the operator decides to load on top of what was ordered.
package loadsheet

import (
	"sort"

	"github.com/safar/horeca-store/internal/models"
	"github.com/shopspring/decimal"
)

// KgPerLitre is the density used to turn oil volume into load weight.
var KgPerLitre = decimal.RequireFromString("0.916")

const UnknownProductName = "unknown product"

var thousand = decimal.NewFromInt(1000)

type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PendingOrder struct {
	OrderID int64  `json:"order_id"`
	Items   []Item `json:"items"`
}

type Line struct {
	ProductID    string              `json:"product_id"`
	Name         string              `json:"name"`
	Section      string              `json:"section,omitempty"`
	Unknown      bool                `json:"unknown,omitempty"`
	Ordered      int                 `json:"ordered"`
	Surplus      int                 `json:"surplus"`
	TotalBoxes   int                 `json:"total_boxes"`
	UnitsPerBox  int                 `json:"units_per_box"`
	TotalUnits   int                 `json:"total_units"`
	LitresPerBox decimal.NullDecimal `json:"litres_per_box"`
	TotalLitres  decimal.NullDecimal `json:"total_litres"`
	TotalKg      decimal.NullDecimal `json:"total_kg"`
	Orders       int                 `json:"orders"`
}

type Totals struct {
	Boxes  int             `json:"boxes"`
	Units  int             `json:"units"`
	Litres decimal.Decimal `json:"litres"`
	Kg     decimal.Decimal `json:"kg"`
}

type Manifest struct {
	Lines        []Line `json:"lines"`
	Totals       Totals `json:"totals"`
	OrderCount   int    `json:"order_count"`
	ProductCount int    `json:"product_count"`
}

// FromOrders keeps only what the manifest needs from stored orders.
func FromOrders(orders []models.Order) []PendingOrder {
	pending := make([]PendingOrder, 0, len(orders))
	for _, o := range orders {
		p := PendingOrder{OrderID: o.ID, Items: make([]Item, 0, len(o.Items))}
		for _, it := range o.Items {
			p.Items = append(p.Items, Item{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		pending = append(pending, p)
	}
	return pending
}

type demand struct {
	boxes  int
	orders map[int64]struct{}
}

// Build aggregates orders against catalog. Lines follow catalog display
// order; products ordered or carried as surplus but missing from the catalog
// come last, sorted by id. Negative surplus counts as zero.
func Build(orders []PendingOrder, catalog []models.Product, surplus map[string]int) *Manifest {
	ordered := make(map[string]*demand)
	orderIDs := make(map[int64]struct{}, len(orders))

	for _, o := range orders {
		orderIDs[o.OrderID] = struct{}{}
		for _, it := range o.Items {
			if it.Quantity <= 0 {
				continue
			}
			d, ok := ordered[it.ProductID]
			if !ok {
				d = &demand{orders: make(map[int64]struct{})}
				ordered[it.ProductID] = d
			}
			d.boxes += it.Quantity
			d.orders[o.OrderID] = struct{}{}
		}
	}

	m := &Manifest{
		Lines:      []Line{},
		Totals:     Totals{Litres: decimal.Zero, Kg: decimal.Zero},
		OrderCount: len(orderIDs),
	}

	known := make(map[string]struct{}, len(catalog))
	for _, p := range sortedCatalog(catalog) {
		known[p.ID] = struct{}{}
		if line, ok := buildLine(p, ordered[p.ID], surplusFor(surplus, p.ID)); ok {
			m.add(line)
		}
	}

	var unknown []string
	for id := range ordered {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	for id := range surplus {
		_, isKnown := known[id]
		_, isOrdered := ordered[id]
		if !isKnown && !isOrdered && surplusFor(surplus, id) > 0 {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		p := models.Product{ID: id, Name: UnknownProductName}
		line, ok := buildLine(p, ordered[id], surplusFor(surplus, id))
		if !ok {
			continue
		}
		line.Unknown = true
		m.add(line)
	}

	m.ProductCount = len(m.Lines)
	return m
}

func (m *Manifest) add(line Line) {
	m.Lines = append(m.Lines, line)
	m.Totals.Boxes += line.TotalBoxes
	m.Totals.Units += line.TotalUnits
	if line.TotalLitres.Valid {
		m.Totals.Litres = m.Totals.Litres.Add(line.TotalLitres.Decimal)
		m.Totals.Kg = m.Totals.Kg.Add(line.TotalKg.Decimal)
	}
}

func buildLine(p models.Product, d *demand, extra int) (Line, bool) {
	line := Line{
		ProductID:   p.ID,
		Name:        p.Name,
		Section:     p.Section,
		Surplus:     extra,
		UnitsPerBox: p.UnitsPerBox,
	}
	if d != nil {
		line.Ordered = d.boxes
		line.Orders = len(d.orders)
	}

	line.TotalBoxes = line.Ordered + line.Surplus
	if line.TotalBoxes == 0 {
		return Line{}, false
	}

	if line.UnitsPerBox <= 0 {
		line.UnitsPerBox = 1
	}
	line.TotalUnits = line.TotalBoxes * line.UnitsPerBox

	if p.MLPerUnit > 0 {
		perBox := decimal.NewFromInt(int64(line.UnitsPerBox * p.MLPerUnit)).Div(thousand)
		litres := perBox.Mul(decimal.NewFromInt(int64(line.TotalBoxes)))
		line.LitresPerBox = decimal.NewNullDecimal(perBox)
		line.TotalLitres = decimal.NewNullDecimal(litres)
		line.TotalKg = decimal.NewNullDecimal(litres.Mul(KgPerLitre))
	}

	return line, true
}

func surplusFor(surplus map[string]int, id string) int {
	if n := surplus[id]; n > 0 {
		return n
	}
	return 0
}

func sortedCatalog(catalog []models.Product) []models.Product {
	sorted := make([]models.Product, len(catalog))
	copy(sorted, catalog)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DisplayOrder != sorted[j].DisplayOrder {
			return sorted[i].DisplayOrder < sorted[j].DisplayOrder
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
