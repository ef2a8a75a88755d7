// Package httpapi exposes the journal backend over HTTP JSON.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/service"
)

// maxBody bounds request documents; entries are small text.
const maxBody = 4 << 20

// Server wires services into HTTP handlers.
type Server struct {
	keys    service.KeyService
	entries service.EntryService
	tokens  TokenVerifier
	log     *zap.Logger
	reg     *prometheus.Registry
	metrics *Metrics
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithCORS allows browser access from origins.
func WithCORS(origins ...string) Option { return func(s *Server) { s.origins = origins } }

// New constructs a server with injected services.
func New(keys service.KeyService, entries service.EntryService, tokens TokenVerifier, opts ...Option) *Server {
	s := &Server{
		keys:    keys,
		entries: entries,
		tokens:  tokens,
		log:     zap.NewNop(),
		reg:     prometheus.NewRegistry(),
	}
	for _, o := range opts {
		o(s)
	}
	s.metrics = NewMetrics(s.reg)
	return s
}

// Routes returns the root handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(s.log))
	r.Use(s.metrics.Handler)
	r.Use(Recover(s.log))
	if len(s.origins) > 0 {
		r.Use(CORS(s.origins))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/entries/public/{id}", s.getPublicEntry)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.tokens))

			r.Put("/keys/wrapped", s.putWrappedKey)
			r.Get("/keys/wrapped", s.getWrappedKey)
			r.Delete("/keys/wrapped", s.deleteKeyMaterial)
			r.Get("/users/{id}/public-key", s.getPublicKey)
			r.Delete("/grants", s.purgeGrants)

			r.Get("/entries/shared-with-me", s.sharedWithMe)
			r.Get("/entries/{id}", s.getEntry)
			r.Put("/entries/{id}", s.publishEntry)
			r.Delete("/entries/{id}", s.unpublishEntry)
			r.Put("/entries/{id}/grants/{recipient}", s.putGrant)
			r.Delete("/entries/{id}/grants/{recipient}", s.revokeGrant)
		})
	})
	return r
}
