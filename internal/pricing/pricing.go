// Package pricing turns a client's cart into priced order lines and order
// totals. Money is rounded to cents half away from zero at every rounding
// point, and order totals are sums of the already rounded line amounts so
// that printed lines always reconcile with the printed total.
package pricing

import (
	"errors"
	"fmt"

	"github.com/safar/horeca-store/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOrder      = errors.New("cannot create an order with no items")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// Lookup resolves a product id against a catalog snapshot. Missing and
// inactive products report false.
type Lookup interface {
	Product(id string) (models.Product, bool)
}

type Selection struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type Line struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Base        decimal.Decimal `json:"line_base"`
	VAT         decimal.Decimal `json:"line_vat"`
	Total       decimal.Decimal `json:"line_total"`
	Degraded    bool            `json:"degraded,omitempty"`
}

type Totals struct {
	Base   decimal.Decimal `json:"total_base"`
	VAT    decimal.Decimal `json:"total_vat"`
	Amount decimal.Decimal `json:"total_amount"`
}

type Quote struct {
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Lines       []Line          `json:"lines"`
	Totals
	Degraded bool `json:"degraded,omitempty"`
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func ValidateDiscount(discountPct decimal.Decimal) error {
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s", ErrInvalidDiscount, discountPct)
	}
	return nil
}

// UnitPrice applies a percentage discount to a base price.
func UnitPrice(basePrice, discountPct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPct.Div(hundred))
	return Round2(basePrice.Mul(factor))
}

// LineAmounts prices quantity boxes at a frozen unit price and VAT rate.
func LineAmounts(unitPrice, vatRate decimal.Decimal, quantity int) (base, vat, total decimal.Decimal) {
	base = Round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	vat = Round2(base.Mul(vatRate))
	total = Round2(base.Add(vat))
	return base, vat, total
}

// Summarize accumulates the rounded line amounts into order totals.
func Summarize(lines []Line) Totals {
	totals := Totals{Base: decimal.Zero, VAT: decimal.Zero}
	for _, line := range lines {
		totals.Base = totals.Base.Add(line.Base)
		totals.VAT = totals.VAT.Add(line.VAT)
	}
	totals.Base = Round2(totals.Base)
	totals.VAT = Round2(totals.VAT)
	totals.Amount = Round2(totals.Base.Add(totals.VAT))
	return totals
}

// PriceLine prices one selection for a known product.
func PriceLine(product models.Product, discountPct decimal.Decimal, quantity int) Line {
	unitPrice := UnitPrice(product.BasePrice, discountPct)
	base, vat, total := LineAmounts(unitPrice, product.VATRate, quantity)
	return Line{
		ProductID:   product.ID,
		Name:        product.Name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     product.VATRate,
		DiscountPct: discountPct,
		Base:        base,
		VAT:         vat,
		Total:       total,
	}
}

func degradedLine(productID string, discountPct decimal.Decimal, quantity int) Line {
	return Line{
		ProductID:   productID,
		Quantity:    quantity,
		UnitPrice:   decimal.Zero,
		VATRate:     decimal.Zero,
		DiscountPct: discountPct,
		Base:        decimal.Zero,
		VAT:         decimal.Zero,
		Total:       decimal.Zero,
		Degraded:    true,
	}
}

// ValidateSelections rejects an empty cart or any non-positive quantity.
func ValidateSelections(items []Selection) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %s quantity %d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
	}
	return nil
}

// PriceOrder prices every selection in cart order with a single discount.
// A product the catalog cannot resolve is priced at zero and flagged as
// degraded instead of failing the order.
func PriceOrder(discountPct decimal.Decimal, items []Selection, catalog Lookup) (*Quote, error) {
	if err := ValidateSelections(items); err != nil {
		return nil, err
	}
	if err := ValidateDiscount(discountPct); err != nil {
		return nil, err
	}

	quote := &Quote{
		DiscountPct: discountPct,
		Lines:       make([]Line, 0, len(items)),
	}

	for _, item := range items {
		product, ok := catalog.Product(item.ProductID)
		if !ok || !product.Active {
			quote.Lines = append(quote.Lines, degradedLine(item.ProductID, discountPct, item.Quantity))
			quote.Degraded = true
			continue
		}
		quote.Lines = append(quote.Lines, PriceLine(product, discountPct, item.Quantity))
	}

	quote.Totals = Summarize(quote.Lines)
	return quote, nil
}
