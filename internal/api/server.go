// Package api exposes the order desk over HTTP: catalog and client
// administration, order pricing and lifecycle, and the load sheet.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
	"github.com/safar/horeca-store/internal/catalog"
	"github.com/safar/horeca-store/internal/store"
)

// CatalogCache is the redis snapshot in front of the products table.
type CatalogCache interface {
	catalog.Source
	Invalidate(ctx context.Context) error
}

type Options struct {
	// Cache is optional. Without it every request reads the products table.
	Cache             CatalogCache
	Metrics           *Metrics
	RequestsPerMinute int
}

type Server struct {
	db      *sql.DB
	cache   CatalogCache
	metrics *Metrics
	now     func() time.Time
}

func NewServer(db *sql.DB, opts Options) *Server {
	return &Server{
		db:      db,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// NewRouter wires the middleware stack and every route.
func NewRouter(db *sql.DB, opts Options) http.Handler {
	s := NewServer(db, opts)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.Middleware)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if opts.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.RequestsPerMinute, time.Minute))
		}

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/", s.createProduct)
			r.Get("/{id}", s.getProduct)
			r.Put("/{id}", s.updateProduct)
			r.Patch("/{id}/active", s.setProductActive)
		})

		r.Get("/price-levels", s.listPriceLevels)
		r.Put("/price-levels/{id}", s.updatePriceLevel)

		r.Get("/volume-tiers", s.listVolumeTiers)
		r.Put("/volume-tiers", s.replaceVolumeTiers)

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", s.listZones)
			r.Post("/", s.createZone)
			r.Get("/{code}", s.getZone)
			r.Put("/{code}", s.updateZone)
			r.Delete("/{code}", s.deleteZone)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.listClients)
			r.Post("/", s.createClient)
			r.Post("/bulk", s.bulkUpdateClients)
			r.Post("/bulk/deactivate", s.bulkDeactivateClients)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getClient)
				r.Put("/", s.updateClientProfile)
				r.Put("/price-level", s.updateClientPriceLevel)
				r.Post("/deactivate", s.deactivateClient)
				r.Post("/reactivate", s.reactivateClient)
				r.Get("/orders", s.listClientOrders)
				r.Get("/tier-suggestion", s.tierSuggestion)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", s.createOrder)
			r.Post("/quote", s.quoteOrder)
			r.Get("/delivered", s.listDeliveredOrders)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getOrder)
				r.Post("/deliver", s.confirmDelivery)
				r.Post("/cancel", s.cancelOrder)
				r.Get("/history", s.orderHistory)
			})
		})

		r.Get("/load-sheet", s.loadSheet)
		r.Post("/load-sheet", s.loadSheet)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		log.Warn().Err(err).Msg("health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) catalogSource() catalog.Source {
	if s.cache != nil {
		return s.cache
	}
	return store.CatalogSource(s.db)
}

// loadCatalog never fails. When the products table cannot be read the
// built-in range is used.
func (s *Server) loadCatalog(ctx context.Context) *catalog.Catalog {
	return catalog.Load(ctx, s.catalogSource(), catalog.Default())
}

// pricingCatalog is loadCatalog for writes that freeze prices. The fallback
// range has no prices, so it is refused with catalog.ErrUnavailable.
func (s *Server) pricingCatalog(ctx context.Context) (*catalog.Catalog, error) {
	cat := s.loadCatalog(ctx)
	if err := cat.Err(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Server) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

// requestLogger writes one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
