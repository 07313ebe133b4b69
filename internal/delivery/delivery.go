// Package delivery decides whether a driver changed an order at the door and
// reprices the edited lines against the prices frozen when it was placed.
package delivery

import (
	"fmt"
	"slices"
	"sort"

	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/pricing"
	"github.com/shopspring/decimal"
)

var (
	PaymentMethods = []string{"efectivo", "transferencia", "tarjeta"}
	DocumentTypes  = []string{"factura", "nota", "albaran"}
)

// Change is the outcome of comparing the delivered quantities with the
// ordered ones. Changed lists the affected product ids in ascending order.
type Change struct {
	Modified bool     `json:"modified"`
	Changed  []string `json:"changed,omitempty"`
}

// Diff compares two productId to quantity maps. A zero quantity is the same
// as the product being absent.
func Diff(original, edited map[string]int) Change {
	seen := make(map[string]struct{}, len(original)+len(edited))
	for id := range original {
		seen[id] = struct{}{}
	}
	for id := range edited {
		seen[id] = struct{}{}
	}

	var changed []string
	for id := range seen {
		if positive(original[id]) != positive(edited[id]) {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)

	return Change{Modified: len(changed) > 0, Changed: changed}
}

func positive(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Normalize drops zero quantities and merges repeated products, keeping the
// position of the first occurrence.
func Normalize(items []pricing.Selection) ([]pricing.Selection, error) {
	out := make([]pricing.Selection, 0, len(items))
	index := make(map[string]int, len(items))

	for _, it := range items {
		if it.Quantity < 0 {
			return nil, fmt.Errorf("%w: product %s quantity %d", pricing.ErrInvalidQuantity, it.ProductID, it.Quantity)
		}
		if it.Quantity == 0 {
			continue
		}
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

func Quantities(items []models.OrderItem) map[string]int {
	q := make(map[string]int, len(items))
	for _, it := range items {
		q[it.ProductID] += it.Quantity
	}
	return q
}

func selectionQuantities(items []pricing.Selection) map[string]int {
	q := make(map[string]int, len(items))
	for _, it := range items {
		q[it.ProductID] += it.Quantity
	}
	return q
}

// Replan is the new line set of a delivered order.
type Replan struct {
	Lines    []pricing.Line
	Original map[string]int
	pricing.Totals
	Change Change
}

// Plan reprices edited quantities. Products already on the order keep their
// frozen unit price and VAT rate; products added at the door are priced with
// the order's frozen discount. Removing every line is rejected.
func Plan(original []models.OrderItem, edited []pricing.Selection, discountPct decimal.Decimal, catalog pricing.Lookup) (*Replan, error) {
	items, err := Normalize(edited)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pricing.ErrEmptyOrder
	}

	frozen := make(map[string]models.OrderItem, len(original))
	originalQty := make(map[string]int, len(original))
	for _, it := range original {
		// Rows stored before carts were merged may repeat a product. The
		// first row carries the frozen price.
		if _, ok := frozen[it.ProductID]; !ok {
			frozen[it.ProductID] = it
		}
		originalQty[it.ProductID] += it.OriginalQuantity
	}

	plan := &Replan{
		Lines:    make([]pricing.Line, 0, len(items)),
		Original: originalQty,
		Change:   Diff(Quantities(original), selectionQuantities(items)),
	}

	for _, it := range items {
		if prev, ok := frozen[it.ProductID]; ok {
			base, vat, total := pricing.LineAmounts(prev.UnitPrice, prev.VATRate, it.Quantity)
			plan.Lines = append(plan.Lines, pricing.Line{
				ProductID:   it.ProductID,
				Quantity:    it.Quantity,
				UnitPrice:   prev.UnitPrice,
				VATRate:     prev.VATRate,
				DiscountPct: prev.DiscountPct,
				Base:        base,
				VAT:         vat,
				Total:       total,
			})
			continue
		}

		quote, err := pricing.PriceOrder(discountPct, []pricing.Selection{it}, catalog)
		if err != nil {
			return nil, err
		}
		plan.Lines = append(plan.Lines, quote.Lines[0])
	}

	plan.Totals = pricing.Summarize(plan.Lines)
	return plan, nil
}

func ValidPaymentMethod(m string) bool {
	return slices.Contains(PaymentMethods, m)
}

func ValidDocumentType(d string) bool {
	return slices.Contains(DocumentTypes, d)
}
