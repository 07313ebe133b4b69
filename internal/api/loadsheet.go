package api

import (
	"net/http"

	"github.com/safar/horeca-store/internal/catalog"
	"github.com/safar/horeca-store/internal/loadsheet"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/store"
	"golang.org/x/sync/errgroup"
)

type loadSheetRequest struct {
	// Surplus maps product ids to extra boxes loaded on top of the orders.
	Surplus map[string]int `json:"surplus"`
}

type loadSheetResponse struct {
	*loadsheet.Manifest
	CatalogFallback bool `json:"catalog_fallback,omitempty"`
}

// loadSheet aggregates every pending order into the truck manifest. GET
// builds it without surplus.
func (s *Server) loadSheet(w http.ResponseWriter, r *http.Request) {
	var req loadSheetRequest
	if r.Method == http.MethodPost {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	}

	var (
		cat     *catalog.Catalog
		pending []models.Order
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		cat = s.loadCatalog(ctx)
		return nil
	})
	g.Go(func() error {
		var err error
		pending, err = store.ListPendingOrders(ctx, s.db)
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(w, r, err)
		return
	}

	manifest := loadsheet.Build(loadsheet.FromOrders(pending), cat.Products(), req.Surplus)
	s.metrics.manifestBuilt()

	respondJSON(w, http.StatusOK, loadSheetResponse{Manifest: manifest, CatalogFallback: cat.Fallback()})
}
