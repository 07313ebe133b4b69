package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Section      string          `json:"section"`
	BasePrice    decimal.Decimal `json:"base_price"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	UnitsPerBox  int             `json:"units_per_box"`
	MLPerUnit    int             `json:"ml_per_unit"`
	Active       bool            `json:"active"`
	DisplayOrder int             `json:"display_order"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

type PriceLevel struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Description string          `json:"description,omitempty"`
	SortOrder   int             `json:"sort_order"`
}

// VolumeTier maps an annual spend range [MinAmount, MaxAmount) to an
// advisory extra discount. An invalid MaxAmount means unbounded.
type VolumeTier struct {
	ID               int64               `json:"id"`
	MinAmount        decimal.Decimal     `json:"min_amount"`
	MaxAmount        decimal.NullDecimal `json:"max_amount"`
	ExtraDiscountPct decimal.Decimal     `json:"extra_discount_pct"`
	SuggestedLevel   *string             `json:"suggested_level,omitempty"`
}

// Zone is a delivery area. Clients reference it by Code; RouteOrder sorts
// zones within a delivery day.
type Zone struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	DeliveryDay string    `json:"delivery_day"`
	PostalCodes []string  `json:"postal_codes"`
	RouteOrder  int       `json:"route_order"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

type Client struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	ContactPerson       string    `json:"contact_person,omitempty"`
	Email               string    `json:"email,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	Address             string    `json:"address,omitempty"`
	CIFNIF              string    `json:"cif_nif,omitempty"`
	PriceLevelID        string    `json:"price_level_id"`
	Active              bool      `json:"active"`
	InactiveReason      *string   `json:"inactive_reason,omitempty"`
	Zone                *string   `json:"zone,omitempty"`
	DeliveryFrequency   string    `json:"delivery_frequency"`
	WantsInvoiceDefault bool      `json:"wants_invoice_default"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	Version             int       `json:"version"`
}

type Delivery struct {
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	PaymentMethod string     `json:"payment_method"`
	DocumentType  string     `json:"document_type"`
	Modified      bool       `json:"modified"`
	DriverID      *string    `json:"driver_id,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
}

type Order struct {
	ID           int64           `json:"id"`
	ClientID     uuid.UUID       `json:"client_id"`
	Status       string          `json:"status"`
	DiscountPct  decimal.Decimal `json:"discount_pct"`
	TotalBase    decimal.Decimal `json:"total_base"`
	TotalVAT     decimal.Decimal `json:"total_vat"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	WantsInvoice bool            `json:"wants_invoice"`
	Notes        string          `json:"notes,omitempty"`
	Delivery     *Delivery       `json:"delivery,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
	Items        []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID               int64           `json:"id"`
	OrderID          int64           `json:"order_id"`
	ProductID        string          `json:"product_id"`
	Quantity         int             `json:"quantity"`
	OriginalQuantity int             `json:"original_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	DiscountPct      decimal.Decimal `json:"discount_pct"`
	LineBase         decimal.Decimal `json:"line_base"`
	LineVAT          decimal.Decimal `json:"line_vat"`
	LineTotal        decimal.Decimal `json:"line_total"`
	CreatedAt        time.Time       `json:"created_at"`
}

type OrderHistory struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Action    string          `json:"action"`
	ChangedBy *string         `json:"changed_by,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	HistoryActionCreated   = "created"
	HistoryActionDelivered = "delivered"
	HistoryActionCancelled = "cancelled"
)

const (
	FrequencyWeekly   = "semanal"
	FrequencyFortnite = "quincenal"
	FrequencyMonthly  = "mensual"
)
