package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/safar/horeca-store/internal/delivery"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/pricing"
	"github.com/safar/horeca-store/internal/store"
)

type quoteRequest struct {
	ClientID uuid.UUID           `json:"client_id" validate:"required"`
	Items    []pricing.Selection `json:"items"`
}

type createOrderRequest struct {
	ClientID uuid.UUID           `json:"client_id" validate:"required"`
	Items    []pricing.Selection `json:"items"`
	// WantsInvoice falls back to the client's default when omitted.
	WantsInvoice *bool   `json:"wants_invoice"`
	Notes        string  `json:"notes" validate:"max=1000"`
	CreatedBy    *string `json:"created_by"`
}

// quoteResponse flags quotes priced while the product catalog was
// unreadable. Every line of such a quote is degraded.
type quoteResponse struct {
	*pricing.Quote
	CatalogFallback bool `json:"catalog_fallback,omitempty"`
}

type createOrderResponse struct {
	Order *models.Order  `json:"order"`
	Quote *pricing.Quote `json:"quote"`
}

type deliverRequest struct {
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time          string  `json:"time" validate:"required,datetime=15:04"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	DocumentType  string  `json:"document_type" validate:"required"`
	DriverID      *string `json:"driver_id"`
	// Items is omitted when the order was delivered as placed.
	Items []pricing.Selection `json:"items"`
}

type cancelRequest struct {
	Reason    string  `json:"reason" validate:"max=500"`
	ChangedBy *string `json:"changed_by"`
}

func orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest("invalid order id")
	}
	return id, nil
}

func degradedCount(q *pricing.Quote) int {
	n := 0
	for _, line := range q.Lines {
		if line.Degraded {
			n++
		}
	}
	return n
}

// quoteOrder prices a cart with the client's current discount without
// persisting anything.
func (s *Server) quoteOrder(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := pricing.ValidateSelections(req.Items); err != nil {
		respondError(w, r, err)
		return
	}
	// same line set CreateOrder would store
	items, err := delivery.Normalize(req.Items)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ctx := r.Context()

	discount, err := store.GetClientDiscount(ctx, s.db, req.ClientID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	cat := s.loadCatalog(ctx)
	quote, err := pricing.PriceOrder(discount, items, cat)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quoteResponse{Quote: quote, CatalogFallback: cat.Fallback()})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := pricing.ValidateSelections(req.Items); err != nil {
		respondError(w, r, err)
		return
	}
	ctx := r.Context()

	cat, err := s.pricingCatalog(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var wantsInvoice bool
	if req.WantsInvoice != nil {
		wantsInvoice = *req.WantsInvoice
	} else {
		client, err := store.GetClient(ctx, s.db, req.ClientID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		wantsInvoice = client.WantsInvoiceDefault
	}

	order, quote, err := store.CreateOrder(ctx, s.db, cat, store.CreateOrderRequest{
		ClientID:     req.ClientID,
		Items:        req.Items,
		WantsInvoice: wantsInvoice,
		Notes:        req.Notes,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.metrics.orderCreated(degradedCount(quote))
	respondJSON(w, http.StatusCreated, createOrderResponse{Order: order, Quote: quote})
}

func (s *Server) listDeliveredOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize := store.ClampPage(queryInt(r, "page", 1), queryInt(r, "page_size", store.DefaultPageSize))

	result, err := store.ListDeliveredOrders(r.Context(), s.db, page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := store.GetOrder(r.Context(), s.db, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req deliverRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if !delivery.ValidPaymentMethod(req.PaymentMethod) {
		respondError(w, r, badRequest("unknown payment method %q", req.PaymentMethod))
		return
	}
	if !delivery.ValidDocumentType(req.DocumentType) {
		respondError(w, r, badRequest("unknown document type %q", req.DocumentType))
		return
	}
	ctx := r.Context()

	cat := s.loadCatalog(ctx)
	if req.Items != nil {
		// edited quantities may add products that need a live price
		if err := cat.Err(); err != nil {
			respondError(w, r, err)
			return
		}
	}

	order, err := store.ConfirmDelivery(ctx, s.db, cat, store.ConfirmDeliveryRequest{
		OrderID:       id,
		Date:          req.Date,
		Time:          req.Time,
		PaymentMethod: req.PaymentMethod,
		DocumentType:  req.DocumentType,
		DriverID:      req.DriverID,
		Items:         req.Items,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, err)
		return
	}

	order, err := store.CancelOrder(r.Context(), s.db, id, req.ChangedBy, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) orderHistory(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	history, err := store.GetOrderHistory(r.Context(), s.db, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}
