package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/store"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	ID           string          `json:"id"`
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=500"`
	Section      string          `json:"section" validate:"required,max=100"`
	BasePrice    decimal.Decimal `json:"base_price"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	UnitsPerBox  int             `json:"units_per_box" validate:"gte=1"`
	MLPerUnit    int             `json:"ml_per_unit" validate:"gte=0"`
	Active       *bool           `json:"active"`
	DisplayOrder int             `json:"display_order" validate:"gte=0"`
	Version      int             `json:"version"`
}

func (req productRequest) product() (models.Product, error) {
	if req.BasePrice.IsNegative() {
		return models.Product{}, badRequest("base_price must not be negative")
	}
	if req.VATRate.IsNegative() || req.VATRate.GreaterThan(decimal.NewFromInt(1)) {
		return models.Product{}, badRequest("vat_rate must be a fraction between 0 and 1")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return models.Product{
		ID:           req.ID,
		Name:         req.Name,
		Description:  req.Description,
		Section:      req.Section,
		BasePrice:    req.BasePrice,
		VATRate:      req.VATRate,
		UnitsPerBox:  req.UnitsPerBox,
		MLPerUnit:    req.MLPerUnit,
		Active:       active,
		DisplayOrder: req.DisplayOrder,
		Version:      req.Version,
	}, nil
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := store.ClampPage(queryInt(r, "page", 1), queryInt(r, "page_size", store.DefaultPageSize))

	result, err := store.ListProducts(r.Context(), s.db, page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ID == "" {
		respondError(w, r, badRequest("id is required"))
		return
	}

	p, err := req.product()
	if err != nil {
		respondError(w, r, err)
		return
	}

	product, err := store.CreateProduct(r.Context(), s.db, p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateCatalog(r.Context())
	respondJSON(w, http.StatusCreated, product)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := store.GetProduct(r.Context(), s.db, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// updateProduct replaces a product. The body must carry the version that was
// read; a stale version is rejected with 409.
func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Version < 1 {
		respondError(w, r, badRequest("version is required"))
		return
	}
	req.ID = chi.URLParam(r, "id")

	p, err := req.product()
	if err != nil {
		respondError(w, r, err)
		return
	}

	product, err := store.UpdateProduct(r.Context(), s.db, p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateCatalog(r.Context())
	respondJSON(w, http.StatusOK, product)
}

func (s *Server) setProductActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	product, err := store.SetProductActive(r.Context(), s.db, chi.URLParam(r, "id"), *req.Active)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateCatalog(r.Context())
	respondJSON(w, http.StatusOK, product)
}

func (s *Server) listPriceLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := store.ListPriceLevels(r.Context(), s.db)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, levels)
}

func (s *Server) updatePriceLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string          `json:"name" validate:"required,max=100"`
		DiscountPct decimal.Decimal `json:"discount_pct"`
		Description string          `json:"description" validate:"max=500"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	level, err := store.UpdatePriceLevel(r.Context(), s.db, chi.URLParam(r, "id"), req.Name, req.DiscountPct, req.Description)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, level)
}

func (s *Server) listVolumeTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := store.ListVolumeTiers(r.Context(), s.db)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tiers)
}

func (s *Server) replaceVolumeTiers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tiers []models.VolumeTier `json:"tiers" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	tiers, err := store.ReplaceVolumeTiers(r.Context(), s.db, req.Tiers)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tiers)
}
