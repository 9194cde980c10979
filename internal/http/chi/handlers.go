package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-analyzer/routes"
	"github.com/marcelsud/webhook-analyzer/webhook"
	"github.com/rs/zerolog"
)

const (
	ServiceName = "webhook-analyzer"

	defaultMaxBodyBytes   = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

// Options carries the transport settings taken from the configuration
type Options struct {
	Logger         zerolog.Logger
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	Metrics        http.Handler // optional /metrics handler
}

// Handlers sets up the HTTP API
func Handlers(webhookService webhook.UseCase, routeLoader *routes.Loader, opts Options) *chi.Mux {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if routeLoader == nil {
		routeLoader = routes.NewLoader()
	}
	logger := opts.Logger

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Method(http.MethodGet, "/health", health())
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	// Inbound webhooks
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(opts.MaxBodyBytes))
		r.Method(http.MethodPost, "/webhook", postWebhook(webhookService, logger))
		r.Method(http.MethodPost, "/webhook/{source}", postWebhook(webhookService, logger))
	})

	// Stored events and configuration
	r.Route("/v1", func(r chi.Router) {
		r.Method(http.MethodGet, "/events", getEvents(webhookService, logger))
		r.Method(http.MethodGet, "/events/{id}", getEvent(webhookService, logger))
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestSize(64 << 10))
			r.Method(http.MethodPost, "/events/{id}/reanalyze", postReanalyze(webhookService, logger))
			r.Method(http.MethodPost, "/events/{id}/forward", postForward(webhookService, logger))
		})
		r.Method(http.MethodGet, "/routes", getRoutes(routeLoader))
	})

	return r
}
