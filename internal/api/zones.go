package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/safar/horeca-store/internal/models"
	"github.com/safar/horeca-store/internal/store"
)

type zoneRequest struct {
	Code        string   `json:"code" validate:"omitempty,max=20"`
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=500"`
	DeliveryDay string   `json:"delivery_day" validate:"required,oneof=lunes martes miercoles jueves viernes sabado"`
	PostalCodes []string `json:"postal_codes" validate:"dive,required,max=10"`
	RouteOrder  int      `json:"route_order" validate:"gte=0"`
	Active      *bool    `json:"active"`
	Version     int      `json:"version"`
}

// zone trims and drops empty postal codes and upper-cases the code.
func (req zoneRequest) zone() models.Zone {
	codes := make([]string, 0, len(req.PostalCodes))
	for _, c := range req.PostalCodes {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return models.Zone{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        req.Name,
		Description: req.Description,
		DeliveryDay: req.DeliveryDay,
		PostalCodes: codes,
		RouteOrder:  req.RouteOrder,
		Active:      active,
		Version:     req.Version,
	}
}

func (s *Server) listZones(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active_only"))

	zones, err := store.ListZones(r.Context(), s.db, activeOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, zones)
}

func (s *Server) createZone(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	zone := req.zone()
	if zone.Code == "" {
		respondError(w, r, badRequest("code is required"))
		return
	}

	created, err := store.CreateZone(r.Context(), s.db, zone)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) getZone(w http.ResponseWriter, r *http.Request) {
	zone, err := store.GetZone(r.Context(), s.db, chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, zone)
}

func (s *Server) updateZone(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Version < 1 {
		respondError(w, r, badRequest("version is required"))
		return
	}

	zone := req.zone()
	zone.Code = chi.URLParam(r, "code")

	updated, err := store.UpdateZone(r.Context(), s.db, zone)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteZone(w http.ResponseWriter, r *http.Request) {
	if err := store.DeleteZone(r.Context(), s.db, chi.URLParam(r, "code")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
