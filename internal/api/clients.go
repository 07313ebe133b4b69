package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/pricing"
	"github.com/safar/horeca-store/internal/store"
	"github.com/shopspring/decimal"
)

type createClientRequest struct {
	Name                string  `json:"name" validate:"required,max=200"`
	ContactPerson       string  `json:"contact_person" validate:"max=200"`
	Email               string  `json:"email" validate:"omitempty,email"`
	Phone               string  `json:"phone" validate:"max=50"`
	Address             string  `json:"address" validate:"max=500"`
	CIFNIF              string  `json:"cif_nif" validate:"max=20"`
	PriceLevelID        string  `json:"price_level_id" validate:"required"`
	Zone                *string `json:"zone"`
	DeliveryFrequency   string  `json:"delivery_frequency" validate:"omitempty,oneof=semanal quincenal mensual"`
	WantsInvoiceDefault bool    `json:"wants_invoice_default"`
}

type updateClientRequest struct {
	Name                string  `json:"name" validate:"required,max=200"`
	ContactPerson       string  `json:"contact_person" validate:"max=200"`
	Email               string  `json:"email" validate:"omitempty,email"`
	Phone               string  `json:"phone" validate:"max=50"`
	Address             string  `json:"address" validate:"max=500"`
	CIFNIF              string  `json:"cif_nif" validate:"max=20"`
	Zone                *string `json:"zone"`
	DeliveryFrequency   string  `json:"delivery_frequency" validate:"omitempty,oneof=semanal quincenal mensual"`
	WantsInvoiceDefault bool    `json:"wants_invoice_default"`
	Version             int     `json:"version"`
}

type bulkUpdateRequest struct {
	ClientIDs         []uuid.UUID `json:"client_ids" validate:"required,min=1,max=500"`
	Zone              *string     `json:"zone" validate:"omitempty,min=1"`
	DeliveryFrequency *string     `json:"delivery_frequency" validate:"omitempty,oneof=semanal quincenal mensual"`
}

type bulkDeactivateRequest struct {
	ClientIDs []uuid.UUID `json:"client_ids" validate:"required,min=1,max=500"`
	Reason    string      `json:"reason" validate:"required,max=500"`
}

type bulkResult struct {
	Updated int `json:"updated"`
}

type tierSuggestion struct {
	ClientID     uuid.UUID          `json:"client_id"`
	Year         int                `json:"year"`
	AnnualSpend  decimal.Decimal    `json:"annual_spend"`
	CurrentLevel string             `json:"current_level"`
	Tier         *models.VolumeTier `json:"tier"`
}

func clientID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid client id")
	}
	return id, nil
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	client, err := store.CreateClient(r.Context(), s.db, models.Client{
		Name:                req.Name,
		ContactPerson:       req.ContactPerson,
		Email:               req.Email,
		Phone:               req.Phone,
		Address:             req.Address,
		CIFNIF:              req.CIFNIF,
		PriceLevelID:        req.PriceLevelID,
		Zone:                req.Zone,
		DeliveryFrequency:   req.DeliveryFrequency,
		WantsInvoiceDefault: req.WantsInvoiceDefault,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, client)
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	page, pageSize := store.ClampPage(queryInt(r, "page", 1), queryInt(r, "page_size", store.DefaultPageSize))
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	result, err := store.ListClients(r.Context(), s.db, page, pageSize, includeInactive)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	client, err := store.GetClient(r.Context(), s.db, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// updateClientProfile replaces the contact and delivery fields. The price
// level and active flag are left alone.
func (s *Server) updateClientProfile(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Version < 1 {
		respondError(w, r, badRequest("version is required"))
		return
	}

	client, err := store.UpdateClientProfile(r.Context(), s.db, id, store.ClientProfile{
		Name:                req.Name,
		ContactPerson:       req.ContactPerson,
		Email:               req.Email,
		Phone:               req.Phone,
		Address:             req.Address,
		CIFNIF:              req.CIFNIF,
		Zone:                req.Zone,
		DeliveryFrequency:   req.DeliveryFrequency,
		WantsInvoiceDefault: req.WantsInvoiceDefault,
		Version:             req.Version,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// bulkUpdateClients moves every listed client to a zone or delivery
// frequency. A missing client fails the whole batch.
func (s *Server) bulkUpdateClients(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Zone == nil && req.DeliveryFrequency == nil {
		respondError(w, r, badRequest("zone or delivery_frequency is required"))
		return
	}

	n, err := store.BulkUpdateClients(r.Context(), s.db, req.ClientIDs, store.ClientChange{
		Zone:              req.Zone,
		DeliveryFrequency: req.DeliveryFrequency,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bulkResult{Updated: n})
}

func (s *Server) bulkDeactivateClients(w http.ResponseWriter, r *http.Request) {
	var req bulkDeactivateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	n, err := store.BulkDeactivateClients(r.Context(), s.db, req.ClientIDs, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bulkResult{Updated: n})
}

// updateClientPriceLevel only affects future orders. Placed orders keep the
// discount they were created with.
func (s *Server) updateClientPriceLevel(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		PriceLevelID string `json:"price_level_id" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	client, err := store.UpdateClientPriceLevel(r.Context(), s.db, id, req.PriceLevelID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (s *Server) deactivateClient(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Reason string `json:"reason" validate:"required,max=500"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	client, err := store.DeactivateClient(r.Context(), s.db, id, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (s *Server) reactivateClient(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	client, err := store.ReactivateClient(r.Context(), s.db, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (s *Server) listClientOrders(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	limit := queryInt(r, "limit", store.DefaultPageSize)
	if limit < 1 || limit > store.MaxPageSize {
		limit = store.DefaultPageSize
	}

	cursor := r.URL.Query().Get("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		respondError(w, r, badRequest("invalid cursor"))
		return
	}

	page, err := store.ListOrdersCursor(r.Context(), s.db, id, cursor, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// tierSuggestion reports the volume tier matching what the client was
// delivered this year. The tier is advisory and never changes prices.
func (s *Server) tierSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ctx := r.Context()

	client, err := store.GetClient(ctx, s.db, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	year := s.now().UTC().Year()
	spend, err := store.ClientAnnualSpend(ctx, s.db, id, year)
	if err != nil {
		respondError(w, r, err)
		return
	}

	tiers, err := store.ListVolumeTiers(ctx, s.db)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result := tierSuggestion{
		ClientID:     id,
		Year:         year,
		AnnualSpend:  spend,
		CurrentLevel: client.PriceLevelID,
	}
	if tier, ok := pricing.SuggestTier(tiers, spend); ok {
		result.Tier = &tier
	}
	respondJSON(w, http.StatusOK, result)
}
